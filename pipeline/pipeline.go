package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/aluiziolira/go-scrape-perpus/parser"
)

var (
	// ErrPipelineClosed is returned when Append is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output. Writers append only:
// rows written by earlier calls, or by earlier runs, are never rewritten.
type OutputWriter interface {
	Write(records []*models.Record) error
	Close() error
	Validate() error
	Filename() string
}

// NewWriter creates the writer for a configured output format.
func NewWriter(format, filename string) (OutputWriter, error) {
	var (
		w   OutputWriter
		err error
	)
	switch format {
	case FormatCSV:
		w, err = NewCSVWriter(filename)
	case FormatJSONL:
		w, err = NewJSONWriter(filename)
	case FormatXLSX:
		w, err = NewXLSXWriter(filename)
	case FormatDual:
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		w, err = NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Pipeline validates records and appends them to the output in batches.
// Append runs synchronously; when it returns nil the records are on disk.
type Pipeline struct {
	writer    OutputWriter
	batchSize int

	metrics metrics

	mu     sync.Mutex // guards closed
	closed bool
}

// NewPipeline wraps writer.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:    writer,
		batchSize: 64,
		metrics:   newMetrics(),
	}
}

// Writer returns the underlying output writer.
func (p *Pipeline) Writer() OutputWriter {
	return p.writer
}

// Append validates records and appends the valid ones to the output.
func (p *Pipeline) Append(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineClosed
	}

	batch := make([]*models.Record, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		p.metrics.addWritten(len(batch))
		batch = batch[:0]
		return nil
	}

	for _, record := range records {
		if err := parser.ValidateRecord(record); err != nil {
			p.metrics.addValidation("invalid_record")
			slog.Debug("dropping invalid record", slog.Any("error", err))
			continue
		}
		batch = append(batch, record)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Close prevents more submissions and closes the writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         sync.Mutex
	written    int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"written_records":   m.written,
		"validation_errors": copyValidation,
	}
}
