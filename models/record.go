// Package models defines data structures for the scraper.
package models

import (
	"strings"
	"time"
)

// Record represents one catalog entry collected from the library portal.
type Record struct {
	Identifier     string   `csv:"nim" json:"nim"`
	Title          string   `csv:"judul" json:"judul"`
	Authors        []string `csv:"-" json:"-"`
	Publisher      string   `csv:"penerbit" json:"penerbit,omitempty"`
	Classification string   `csv:"klasifikasi" json:"klasifikasi,omitempty"`
	CallNumber     string   `csv:"call_number" json:"call_number,omitempty"`
	Language       string   `csv:"bahasa" json:"bahasa,omitempty"`
	Year           string   `csv:"tahun" json:"tahun,omitempty"`
	PageCount      string   `csv:"halaman" json:"halaman,omitempty"`
	DetailURL      string   `csv:"url" json:"url"`
}

// AuthorList renders the authors the way they are displayed on the portal.
func (r *Record) AuthorList() string {
	return strings.Join(r.Authors, ", ")
}

// SplitAuthors is the inverse of AuthorList for rows read back from disk.
func SplitAuthors(joined string) []string {
	joined = strings.TrimSpace(joined)
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ", ")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Progress is the persisted crawl position used to resume an interrupted run.
type Progress struct {
	PageCount  int    `json:"page_count"`
	NextURL    string `json:"next_url"`
	TotalData  int    `json:"total_data"`
	OutputFile string `json:"csv_filename"`
	Category   int    `json:"category,omitempty"`
}

// StopReason records why a crawl stopped paging.
type StopReason string

const (
	StopNone            StopReason = ""
	StopEmptyPage       StopReason = "empty_page"
	StopFullyIndexed    StopReason = "fully_indexed"
	StopDuplicateStreak StopReason = "duplicate_streak"
	StopMaxPages        StopReason = "max_pages"
	StopNoNextPage      StopReason = "no_next_page"
	StopInterrupted     StopReason = "interrupted"
	StopFetchFailed     StopReason = "fetch_failed"
	StopDeclined        StopReason = "declined"
)

// KeepsProgress reports whether a run ending for this reason leaves its
// checkpoint behind for a later resume.
func (r StopReason) KeepsProgress() bool {
	switch r {
	case StopInterrupted, StopFetchFailed, StopMaxPages, StopDeclined:
		return true
	default:
		return false
	}
}

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	Records      []*Record
	Baseline     int
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	Duplicates   int
	Filtered     int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	StopReason   StopReason
	Interrupted  bool
}

// TotalCount is the number of records in the output after the run.
func (r *CrawlResult) TotalCount() int {
	return r.Baseline + len(r.Records)
}
