package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-perpus/models"
)

// CatalogHeader is the column order of the catalog CSV output.
var CatalogHeader = []string{"nim", "judul", "pengarang", "penerbit", "klasifikasi", "call_number", "bahasa", "tahun", "halaman", "url"}

const catalogKeyColumn = "url"

func catalogRow(r *models.Record) []string {
	return []string{
		r.Identifier,
		r.Title,
		r.AuthorList(),
		r.Publisher,
		r.Classification,
		r.CallNumber,
		r.Language,
		r.Year,
		r.PageCount,
		r.DetailURL,
	}
}

// CSVWriter appends records to a CSV file. The file and its header row are
// created on the first write; an existing file is appended to as-is.
type CSVWriter struct {
	filename string
	file     *os.File
	writer   *csv.Writer
	mu       sync.Mutex
}

// NewCSVWriter prepares a CSV writer for filename without touching the disk.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("csv filename cannot be empty")
	}
	return &CSVWriter{filename: filename}, nil
}

func (cw *CSVWriter) open() error {
	if cw.file != nil {
		return nil
	}
	if err := ensureDir(cw.filename); err != nil {
		return err
	}

	f, err := os.OpenFile(cw.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(CatalogHeader); err != nil {
			f.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	cw.file = f
	cw.writer = writer
	return nil
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.open(); err != nil {
		return err
	}
	for _, record := range records {
		if err := cw.writer.Write(catalogRow(record)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return cw.file.Sync()
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.file == nil {
		return nil
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	err := cw.file.Close()
	cw.file = nil
	return err
}

// Validate ensures an existing output file has content.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.filename, "csv")
}

// Filename returns the output path.
func (cw *CSVWriter) Filename() string {
	return cw.filename
}

// JSONWriter appends newline-delimited JSON records.
type JSONWriter struct {
	filename string
	file     *os.File
	writer   *bufio.Writer
	encoder  *json.Encoder
	mu       sync.Mutex
}

// NewJSONWriter prepares the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("json filename cannot be empty")
	}
	return &JSONWriter{filename: filename}, nil
}

// jsonRecord flattens authors into the same display string the CSV uses.
type jsonRecord struct {
	*models.Record
	Authors string `json:"pengarang"`
}

// Write appends records in JSONL format.
func (jw *JSONWriter) Write(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file == nil {
		if err := ensureDir(jw.filename); err != nil {
			return err
		}
		f, err := os.OpenFile(jw.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json file: %w", err)
		}
		jw.file = f
		jw.writer = bufio.NewWriter(f)
		jw.encoder = json.NewEncoder(jw.writer)
	}

	for _, record := range records {
		if err := jw.encoder.Encode(jsonRecord{Record: record, Authors: record.AuthorList()}); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file == nil {
		return nil
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	err := jw.file.Close()
	jw.file = nil
	return err
}

// Validate ensures an existing JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateFile(jw.filename, "json")
}

// Filename returns the output path.
func (jw *JSONWriter) Filename() string {
	return jw.filename
}

func validateFile(filename, kind string) error {
	info, err := os.Stat(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
