package parser

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-perpus/models"
)

const (
	entrySelector      = "article.item"
	paginationSelector = "div.pagination"
	nextLinkSelector   = "a.nextLink"
)

// ListingItem is one entry of a listing page. Record is only set when the
// entry carries enough inline data to skip the detail page.
type ListingItem struct {
	URL    string
	Record *models.Record
}

// Listing is the parsed form of one listing page.
type Listing struct {
	Items []ListingItem
	// Next is the absolute next-page URL, "" at the end of the listing.
	Next string
}

// ParseListing collects the detail links and the next-page link of a catalog listing page.
func ParseListing(doc *goquery.Document, base *url.URL) Listing {
	listing := Listing{Next: nextLink(doc, base)}
	doc.Find(entrySelector).Each(func(_ int, entry *goquery.Selection) {
		href, ok := entry.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		if u := ResolveURL(base, href); u != "" {
			listing.Items = append(listing.Items, ListingItem{URL: u})
		}
	})
	return listing
}

var thesisRules = []fieldRule{
	{label: LabelTitle, value: linkOrRest, set: setTitle},
	{label: LabelIdentifier, value: restOnly, set: setIdentifier},
	{label: LabelYear, value: linkOrRest, set: setYear},
	{label: LabelWriter, value: everyLink, set: setAuthors},
	{label: LabelAuthors, value: everyLink, set: setAuthors},
}

// ParseThesisListing is ParseListing for the thesis archive, whose entries
// carry title, identifier, year and authors inline. Entries without a title
// keep their URL but no record.
func ParseThesisListing(doc *goquery.Document, base *url.URL) Listing {
	listing := Listing{Next: nextLink(doc, base)}
	doc.Find(entrySelector).Each(func(_ int, entry *goquery.Selection) {
		link := entry.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		u := ResolveURL(base, href)
		if u == "" {
			return
		}

		record := &models.Record{
			Title:     NormalizeSpace(link.Text()),
			DetailURL: u,
		}
		// no gates in thesisRules
		_ = applyRules(thesisRules, entry.Find("li"), record)

		item := ListingItem{URL: u}
		if ValidateRecord(record) == nil {
			item.Record = record
		}
		listing.Items = append(listing.Items, item)
	})
	return listing
}

func nextLink(doc *goquery.Document, base *url.URL) string {
	pagination := doc.Find(paginationSelector).First()
	if pagination.Length() == 0 {
		return ""
	}
	href, ok := pagination.Find(nextLinkSelector).First().Attr("href")
	if !ok {
		return ""
	}
	return ResolveURL(base, href)
}
