package pipeline

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/xuri/excelize/v2"
)

// ThesisHeader is the column order of the thesis spreadsheet.
var ThesisHeader = []string{"Judul", "NIM", "Tahun", "Penulis", "File"}

const thesisKeyColumn = "File"

func thesisRow(r *models.Record) []interface{} {
	return []interface{}{r.Title, r.Identifier, r.Year, r.AuthorList(), r.DetailURL}
}

// XLSXWriter appends records to the first sheet of a spreadsheet, after its
// last used row. A new workbook gets a bold, centered header.
type XLSXWriter struct {
	filename string
	file     *excelize.File
	sheet    string
	nextRow  int
	mu       sync.Mutex
}

// NewXLSXWriter prepares a spreadsheet writer for filename.
func NewXLSXWriter(filename string) (*XLSXWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("xlsx filename cannot be empty")
	}
	return &XLSXWriter{filename: filename}, nil
}

func (xw *XLSXWriter) open() error {
	if xw.file != nil {
		return nil
	}
	if err := ensureDir(xw.filename); err != nil {
		return err
	}

	if _, err := os.Stat(xw.filename); err == nil {
		f, err := excelize.OpenFile(xw.filename)
		if err != nil {
			return fmt.Errorf("open xlsx file: %w", err)
		}
		sheet := f.GetSheetName(0)
		rows, err := f.GetRows(sheet)
		if err != nil {
			f.Close()
			return fmt.Errorf("read xlsx rows: %w", err)
		}
		xw.file, xw.sheet, xw.nextRow = f, sheet, len(rows)+1
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat xlsx file: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(ThesisHeader))
	for i, h := range ThesisHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return fmt.Errorf("write xlsx header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(ThesisHeader), 1)
	if err := f.SetCellStyle(sheet, "A1", lastCol, style); err != nil {
		f.Close()
		return fmt.Errorf("style xlsx header: %w", err)
	}
	_ = f.SetColWidth(sheet, "A", "A", 60)
	_ = f.SetColWidth(sheet, "D", "E", 40)

	xw.file, xw.sheet, xw.nextRow = f, sheet, 2
	return nil
}

// Write appends records and saves the workbook.
func (xw *XLSXWriter) Write(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	xw.mu.Lock()
	defer xw.mu.Unlock()

	if err := xw.open(); err != nil {
		return err
	}
	for _, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, xw.nextRow)
		if err != nil {
			return fmt.Errorf("xlsx cell: %w", err)
		}
		row := thesisRow(record)
		if err := xw.file.SetSheetRow(xw.sheet, cell, &row); err != nil {
			return fmt.Errorf("write xlsx record: %w", err)
		}
		xw.nextRow++
	}
	if err := xw.file.SaveAs(xw.filename); err != nil {
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return nil
}

// Close releases the workbook.
func (xw *XLSXWriter) Close() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	if xw.file == nil {
		return nil
	}
	err := xw.file.Close()
	xw.file = nil
	return err
}

// Validate ensures an existing workbook has content.
func (xw *XLSXWriter) Validate() error {
	return validateFile(xw.filename, "xlsx")
}

// Filename returns the output path.
func (xw *XLSXWriter) Filename() string {
	return xw.filename
}
