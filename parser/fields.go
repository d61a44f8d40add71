package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-perpus/models"
)

const (
	identifierSelector = `p[style*="font-size: small"]`
	fieldListSelector  = `ul[style*="font-weight: bold"]`
)

// Field labels as printed on the portal.
const (
	LabelTitle          = "Judul :"
	LabelAuthors        = "Pengarang :"
	LabelWriter         = "Penulis :"
	LabelPublisher      = "Penerbit :"
	LabelClassification = "Klasifikasi :"
	LabelCallNumber     = "Call Number :"
	LabelLanguage       = "Bahasa :"
	LabelYear           = "Tahun :"
	LabelPages          = "Halaman :"
	LabelIdentifier     = "NIM :"
)

// valueFunc picks the raw values of one field entry. rest is the entry text after its label.
type valueFunc func(entry *goquery.Selection, rest string) []string

type fieldRule struct {
	label string
	value valueFunc
	set   func(r *models.Record, values []string)
	// gate, when set, runs right after the field is assigned; an error aborts the extraction.
	gate func(r *models.Record) error
}

func linkOrRest(entry *goquery.Selection, rest string) []string {
	if link := entry.Find("a").First(); link.Length() > 0 {
		return []string{NormalizeSpace(link.Text())}
	}
	return []string{rest}
}

func everyLink(entry *goquery.Selection, rest string) []string {
	var names []string
	entry.Find("a").Each(func(_ int, a *goquery.Selection) {
		if name := NormalizeSpace(a.Text()); name != "" {
			names = append(names, name)
		}
	})
	if len(names) > 0 {
		return names
	}
	return models.SplitAuthors(rest)
}

func restOnly(_ *goquery.Selection, rest string) []string {
	return []string{rest}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func setTitle(r *models.Record, v []string)          { r.Title = first(v) }
func setAuthors(r *models.Record, v []string)        { r.Authors = v }
func setPublisher(r *models.Record, v []string)      { r.Publisher = first(v) }
func setClassification(r *models.Record, v []string) { r.Classification = first(v) }
func setCallNumber(r *models.Record, v []string)     { r.CallNumber = first(v) }
func setLanguage(r *models.Record, v []string)       { r.Language = first(v) }
func setYear(r *models.Record, v []string)           { r.Year = first(v) }
func setPageCount(r *models.Record, v []string)      { r.PageCount = first(v) }
func setIdentifier(r *models.Record, v []string)     { r.Identifier = first(v) }

// applyRules evaluates rules in order against each entry. Unknown labels are ignored.
func applyRules(rules []fieldRule, entries *goquery.Selection, r *models.Record) error {
	var gateErr error
	entries.EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		text := NormalizeSpace(entry.Text())
		for _, rule := range rules {
			if !strings.HasPrefix(text, rule.label) {
				continue
			}
			rest := strings.TrimSpace(strings.TrimPrefix(text, rule.label))
			rule.set(r, rule.value(entry, rest))
			if rule.gate != nil {
				if err := rule.gate(r); err != nil {
					gateErr = err
					return false
				}
			}
			break
		}
		return true
	})
	return gateErr
}

// DetailExtractor turns catalog detail pages into records.
type DetailExtractor struct {
	rules  []fieldRule
	prefix string
}

// NewDetailExtractor builds an extractor that keeps only records whose
// classification starts with prefix. An empty prefix keeps everything.
func NewDetailExtractor(prefix string) *DetailExtractor {
	classification := fieldRule{label: LabelClassification, value: linkOrRest, set: setClassification}
	if prefix != "" {
		classification.gate = func(r *models.Record) error {
			if !strings.HasPrefix(r.Classification, prefix) {
				return &FilteredError{Classification: r.Classification, Prefix: prefix}
			}
			return nil
		}
	}

	return &DetailExtractor{
		rules: []fieldRule{
			{label: LabelTitle, value: linkOrRest, set: setTitle},
			{label: LabelAuthors, value: everyLink, set: setAuthors},
			{label: LabelPublisher, value: linkOrRest, set: setPublisher},
			classification,
			{label: LabelCallNumber, value: restOnly, set: setCallNumber},
			{label: LabelLanguage, value: linkOrRest, set: setLanguage},
			{label: LabelYear, value: linkOrRest, set: setYear},
			{label: LabelPages, value: linkOrRest, set: setPageCount},
		},
		prefix: prefix,
	}
}

// Extract parses one detail page. detailURL becomes the record key.
//
// A page without the field list yields ErrNoFieldList, a rejected or missing
// classification yields *FilteredError and a record without a title yields
// ErrMissingTitle. A missing identifier line is not an error.
func (x *DetailExtractor) Extract(doc *goquery.Document, detailURL string) (*models.Record, error) {
	record := &models.Record{DetailURL: detailURL}

	if p := doc.Find(identifierSelector).First(); p.Length() > 0 {
		record.Identifier = NormalizeSpace(p.Text())
	}

	list := doc.Find(fieldListSelector).First()
	if list.Length() == 0 {
		return nil, ErrNoFieldList
	}

	if err := applyRules(x.rules, list.Find("li"), record); err != nil {
		return nil, err
	}
	// The gate only fires on a classification entry; pages without one are rejected here.
	if x.prefix != "" && !strings.HasPrefix(record.Classification, x.prefix) {
		return nil, &FilteredError{Classification: record.Classification, Prefix: x.prefix}
	}
	if err := ValidateRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}
