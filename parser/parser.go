package parser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-perpus/models"
)

var (
	// ErrNoFieldList is returned when a detail page lacks the labelled field list.
	ErrNoFieldList = errors.New("parser: field list not found")
	// ErrMissingTitle is returned for records that carry no title.
	ErrMissingTitle = errors.New("parser: record missing title")
)

// FilteredError reports a record excluded by the classification filter.
type FilteredError struct {
	Classification string
	Prefix         string
}

func (e *FilteredError) Error() string {
	return fmt.Sprintf("classification %q does not start with %q", e.Classification, e.Prefix)
}

// ValidateRecord ensures the scraper captured the required fields.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(r.DetailURL) == "" {
		return fmt.Errorf("record missing url for %s", r.Title)
	}
	return nil
}

// NormalizeSpace collapses runs of whitespace into single spaces.
func NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ResolveURL resolves href against the site base, returning "" for unusable links.
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
