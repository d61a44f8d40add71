// Package progress persists the crawl checkpoint used to resume interrupted runs.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-perpus/models"
)

// DefaultFile is the checkpoint location used when none is configured.
const DefaultFile = "scraping_progress.json"

// Store reads and writes a single checkpoint file.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{path: path}
}

// Path returns the checkpoint location.
func (s *Store) Path() string {
	return s.path
}

// Save overwrites the checkpoint. The file is replaced through a rename so a
// crash mid-write leaves the previous checkpoint in place.
func (s *Store) Save(p models.Progress) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}

// Load returns the checkpoint, or nil when there is none. An unreadable or
// malformed checkpoint is reported and treated as absent.
func (s *Store) Load() *models.Progress {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		slog.Warn("progress unreadable, starting fresh", slog.String("path", s.path), slog.Any("error", err))
		return nil
	}

	var p models.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("progress malformed, starting fresh", slog.String("path", s.path), slog.Any("error", err))
		return nil
	}
	if p.PageCount < 0 || p.TotalData < 0 || p.Category < 0 {
		slog.Warn("progress has negative counters, starting fresh", slog.String("path", s.path))
		return nil
	}
	return &p
}

// Clear removes the checkpoint. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove progress: %w", err)
	}
	return nil
}
