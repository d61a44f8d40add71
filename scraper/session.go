package scraper

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Session is the per-run crawl state: the records accumulated so far, the
// seen-URL set and the consecutive-duplicate streak. It is owned by one Run.
type Session struct {
	records  []*models.Record
	flushed  int
	seen     map[string]struct{}
	baseline int

	streak     int
	duplicates int
	filtered   int

	// rejected remembers detail pages that failed the classification filter
	// so they are not fetched twice in one run.
	rejected *lru.Cache[string, struct{}]
	// listings guards against pagination loops.
	listings *bloom.BloomFilter
}

// NewSession seeds the seen set with the keys already present in the output.
func NewSession(existing map[string]struct{}, rejectedSize int) (*Session, error) {
	rejected, err := lru.New[string, struct{}](rejectedSize)
	if err != nil {
		return nil, fmt.Errorf("rejected cache: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for key := range existing {
		seen[key] = struct{}{}
	}
	return &Session{
		seen:     seen,
		baseline: len(seen),
		rejected: rejected,
		listings: bloom.NewWithEstimates(10000, 0.001),
	}, nil
}

// Seen reports whether url is already collected.
func (s *Session) Seen(url string) bool {
	_, ok := s.seen[url]
	return ok
}

// Add appends a record, marks its URL seen and resets the duplicate streak.
func (s *Session) Add(record *models.Record) {
	s.records = append(s.records, record)
	s.seen[record.DetailURL] = struct{}{}
	s.streak = 0
}

// Duplicate counts a seen item and returns the current streak.
func (s *Session) Duplicate() int {
	s.duplicates++
	s.streak++
	return s.streak
}

// ResetStreak clears the duplicate streak when a listing starts or an unseen item turns up.
func (s *Session) ResetStreak() {
	s.streak = 0
}

// Reject remembers a filtered detail URL.
func (s *Session) Reject(url string) {
	s.filtered++
	s.rejected.Add(url, struct{}{})
}

// Rejected reports whether url was filtered earlier in this run.
func (s *Session) Rejected(url string) bool {
	return s.rejected.Contains(url)
}

// VisitListing records a listing URL and reports whether it was visited before.
func (s *Session) VisitListing(url string) bool {
	return s.listings.TestAndAddString(url)
}

// Pending returns the records not yet handed to the output.
func (s *Session) Pending() []*models.Record {
	return s.records[s.flushed:]
}

// MarkFlushed records that every pending record reached the output.
func (s *Session) MarkFlushed() {
	s.flushed = len(s.records)
}

// Records returns the records collected in this run.
func (s *Session) Records() []*models.Record {
	return s.records
}

// Total is the number of records in the output once everything is flushed.
func (s *Session) Total() int {
	return s.baseline + len(s.records)
}

// Baseline is the number of keys loaded from the output at the start.
func (s *Session) Baseline() int {
	return s.baseline
}
