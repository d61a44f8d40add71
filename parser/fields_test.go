package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func detailPage(identifier, classification string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"detail\">")
	if identifier != "" {
		b.WriteString("<p style=\"font-size: small; color: grey\">\n  " + identifier + "\n</p>")
	}
	b.WriteString("<ul style=\"font-weight: bold; list-style: none\">")
	b.WriteString("<li>Judul : <a href=\"/perpus/search?q=x\">Sistem Pakar Diagnosa Penyakit Anjing</a></li>")
	b.WriteString("<li>Pengarang : <a href=\"/a/1\">Budi Santoso</a> <a href=\"/a/2\">Ani Lestari</a></li>")
	b.WriteString("<li>Penerbit : <a href=\"/p/1\">STMIK Palangkaraya</a></li>")
	b.WriteString("<li>Klasifikasi : <a href=\"/k/1\">" + classification + "</a></li>")
	b.WriteString("<li>Call Number : TA TI 2021 BUD s</li>")
	b.WriteString("<li>Bahasa : <a href=\"/b/1\">Indonesia</a></li>")
	b.WriteString("<li>Tahun : 2021</li>")
	b.WriteString("<li>Halaman : 112 hlm</li>")
	b.WriteString("<li>Lokasi : Rak 3</li>")
	b.WriteString("</ul></div></body></html>")
	return b.String()
}

func TestDetailExtractorExtract(t *testing.T) {
	x := NewDetailExtractor("TA TI")
	doc := mustDoc(t, detailPage("C1855201 \n  042", "TA TI 2021"))

	record, err := x.Extract(doc, "http://example.test/item/7")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	checks := map[string][2]string{
		"identifier":     {record.Identifier, "C1855201 042"},
		"title":          {record.Title, "Sistem Pakar Diagnosa Penyakit Anjing"},
		"authors":        {record.AuthorList(), "Budi Santoso, Ani Lestari"},
		"publisher":      {record.Publisher, "STMIK Palangkaraya"},
		"classification": {record.Classification, "TA TI 2021"},
		"call number":    {record.CallNumber, "TA TI 2021 BUD s"},
		"language":       {record.Language, "Indonesia"},
		"year":           {record.Year, "2021"},
		"pages":          {record.PageCount, "112 hlm"},
		"url":            {record.DetailURL, "http://example.test/item/7"},
	}
	for field, pair := range checks {
		if pair[0] != pair[1] {
			t.Errorf("%s = %q, want %q", field, pair[0], pair[1])
		}
	}
}

func TestDetailExtractorMissingIdentifier(t *testing.T) {
	x := NewDetailExtractor("TA TI")
	record, err := x.Extract(mustDoc(t, detailPage("", "TA TI 2020")), "http://example.test/item/8")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.Identifier != "" {
		t.Fatalf("identifier = %q, want empty", record.Identifier)
	}
	if record.Title == "" || record.Publisher == "" || record.Year == "" || len(record.Authors) != 2 {
		t.Fatalf("other fields should be populated: %+v", record)
	}
}

func TestDetailExtractorClassificationFilter(t *testing.T) {
	x := NewDetailExtractor("TA TI")
	record, err := x.Extract(mustDoc(t, detailPage("C1", "TA SI 2021")), "http://example.test/item/9")
	if record != nil {
		t.Fatalf("record should be filtered, got %+v", record)
	}
	var filtered *FilteredError
	if !errors.As(err, &filtered) {
		t.Fatalf("error = %v, want *FilteredError", err)
	}
	if filtered.Classification != "TA SI 2021" {
		t.Fatalf("classification = %q", filtered.Classification)
	}
}

func TestDetailExtractorMissingClassificationFiltered(t *testing.T) {
	html := `<ul style="font-weight: bold">
		<li>Judul : Sistem X</li>
		<li>Tahun : 2020</li>
	</ul>`

	x := NewDetailExtractor("TA TI")
	record, err := x.Extract(mustDoc(t, html), "http://example.test/item/15")
	if record != nil {
		t.Fatalf("record without classification should be filtered, got %+v", record)
	}
	var filtered *FilteredError
	if !errors.As(err, &filtered) {
		t.Fatalf("error = %v, want *FilteredError", err)
	}
	if filtered.Classification != "" || filtered.Prefix != "TA TI" {
		t.Fatalf("filtered = %+v", filtered)
	}

	if _, err := NewDetailExtractor("").Extract(mustDoc(t, html), "http://example.test/item/15"); err != nil {
		t.Fatalf("empty prefix should keep unclassified records: %v", err)
	}
}

func TestDetailExtractorFilterShortCircuits(t *testing.T) {
	// A gate that fails must stop before later labels are read.
	html := `<ul style="font-weight: bold">
		<li>Judul : Rejected Thesis</li>
		<li>Klasifikasi : TA SI 2019</li>
		<li>Tahun : 2019</li>
	</ul>`
	x := NewDetailExtractor("TA TI")
	if _, err := x.Extract(mustDoc(t, html), "http://example.test/item/10"); err == nil {
		t.Fatalf("expected filter error")
	}
}

func TestDetailExtractorEmptyPrefixKeepsAll(t *testing.T) {
	x := NewDetailExtractor("")
	record, err := x.Extract(mustDoc(t, detailPage("", "TA SI 2021")), "http://example.test/item/11")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.Classification != "TA SI 2021" {
		t.Fatalf("classification = %q", record.Classification)
	}
}

func TestDetailExtractorStructuralMismatch(t *testing.T) {
	x := NewDetailExtractor("TA TI")
	_, err := x.Extract(mustDoc(t, "<html><body><p>Not found</p></body></html>"), "http://example.test/item/12")
	if !errors.Is(err, ErrNoFieldList) {
		t.Fatalf("error = %v, want ErrNoFieldList", err)
	}
}

func TestDetailExtractorMissingTitle(t *testing.T) {
	html := `<ul style="font-weight: bold"><li>Klasifikasi : TA TI 2022</li></ul>`
	x := NewDetailExtractor("TA TI")
	_, err := x.Extract(mustDoc(t, html), "http://example.test/item/13")
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("error = %v, want ErrMissingTitle", err)
	}
}

func TestDetailExtractorPlainTextValues(t *testing.T) {
	html := `<ul style="font-weight: bold">
		<li>Judul : Aplikasi Kasir Berbasis Web</li>
		<li>Pengarang : Rina, Joko</li>
		<li>Klasifikasi : TA TI 2023</li>
	</ul>`
	x := NewDetailExtractor("TA TI")
	record, err := x.Extract(mustDoc(t, html), "http://example.test/item/14")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.Title != "Aplikasi Kasir Berbasis Web" {
		t.Fatalf("title = %q", record.Title)
	}
	if record.AuthorList() != "Rina, Joko" {
		t.Fatalf("authors = %q", record.AuthorList())
	}
}
