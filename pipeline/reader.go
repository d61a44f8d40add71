package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/xuri/excelize/v2"
)

// Output formats.
const (
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
	FormatJSONL = "jsonl"
	FormatDual  = "dual"
)

// FormatFromPath guesses the format from the file extension, defaulting to CSV.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX
	case ".jsonl", ".json":
		return FormatJSONL
	default:
		return FormatCSV
	}
}

// columns maps lower-cased header names from both output layouts to record fields.
var columns = map[string]func(r *models.Record, v string){
	"judul":       func(r *models.Record, v string) { r.Title = v },
	"nim":         func(r *models.Record, v string) { r.Identifier = v },
	"pengarang":   func(r *models.Record, v string) { r.Authors = models.SplitAuthors(v) },
	"penulis":     func(r *models.Record, v string) { r.Authors = models.SplitAuthors(v) },
	"penerbit":    func(r *models.Record, v string) { r.Publisher = v },
	"klasifikasi": func(r *models.Record, v string) { r.Classification = v },
	"call_number": func(r *models.Record, v string) { r.CallNumber = v },
	"bahasa":      func(r *models.Record, v string) { r.Language = v },
	"tahun":       func(r *models.Record, v string) { r.Year = v },
	"halaman":     func(r *models.Record, v string) { r.PageCount = v },
	"url":         func(r *models.Record, v string) { r.DetailURL = v },
	"file":        func(r *models.Record, v string) { r.DetailURL = v },
}

// ParseRows converts a header row plus data rows into records. The header
// must name a key column (url or File).
func ParseRows(rows [][]string) ([]*models.Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	setters := make([]func(*models.Record, string), len(rows[0]))
	hasKey := false
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		setters[i] = columns[name]
		if name == strings.ToLower(catalogKeyColumn) || name == strings.ToLower(thesisKeyColumn) {
			hasKey = true
		}
	}
	if !hasKey {
		return nil, fmt.Errorf("header %v has no key column", rows[0])
	}

	records := make([]*models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := &models.Record{}
		empty := true
		for i, value := range row {
			if i >= len(setters) || setters[i] == nil {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				empty = false
			}
			setters[i](record, value)
		}
		if !empty {
			records = append(records, record)
		}
	}
	return records, nil
}

// ReadCSV reads records from CSV content with a header row.
func ReadCSV(r io.Reader) ([]*models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ParseRows(rows)
}

func readCSVFile(filename string) ([]*models.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func readXLSXFile(filename string) ([]*models.Record, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return ParseRows(rows)
}

func readJSONLFile(filename string) ([]*models.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []*models.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		decoded := jsonRecord{Record: &models.Record{}}
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			return nil, fmt.Errorf("decode json line %d: %w", line, err)
		}
		decoded.Record.Authors = models.SplitAuthors(decoded.Authors)
		records = append(records, decoded.Record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan json: %w", err)
	}
	return records, nil
}

// ReadRecords loads every record stored in an output file of the given format.
func ReadRecords(format, filename string) ([]*models.Record, error) {
	switch format {
	case FormatCSV, FormatDual:
		return readCSVFile(filename)
	case FormatXLSX:
		return readXLSXFile(filename)
	case FormatJSONL:
		return readJSONLFile(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// LoadExistingKeys rebuilds the seen-URL set from an output file. A missing
// file yields an empty set; a read failure yields an empty set and a warning,
// so the crawl degrades to treating everything as new.
func LoadExistingKeys(format, filename string) map[string]struct{} {
	keys := make(map[string]struct{})

	records, err := ReadRecords(format, filename)
	if errors.Is(err, os.ErrNotExist) {
		return keys
	}
	if err != nil {
		slog.Warn("existing output unreadable, treating all items as new",
			slog.String("file", filename),
			slog.Any("error", err),
		)
		return keys
	}

	for _, record := range records {
		if record.DetailURL != "" {
			keys[record.DetailURL] = struct{}{}
		}
	}
	return keys
}
