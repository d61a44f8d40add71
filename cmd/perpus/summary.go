package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// sampleSize is how many of the newest records the summary shows.
const sampleSize = 3

func printSummary(w io.Writer, result *models.CrawlResult, outputFile string, metrics map[string]interface{}) {
	duration := result.EndTime.Sub(result.StartTime).Round(time.Millisecond)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Crawl complete")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"New records", len(result.Records)},
		{"Total records", result.TotalCount()},
		{"Already present", result.Baseline},
		{"Listing pages", result.PageCount},
		{"Duplicates", result.Duplicates},
		{"Filtered", result.Filtered},
		{"Fetch errors", result.ErrorCount},
	})
	if len(result.ErrorsByType) > 0 {
		t.AppendRow(table.Row{"Error types", formatCounts(result.ErrorsByType)})
	}
	if invalid, ok := metrics["validation_errors"].(map[string]int); ok && len(invalid) > 0 {
		t.AppendRow(table.Row{"Dropped invalid", formatCounts(invalid)})
	}
	t.AppendRows([]table.Row{
		{"Stop reason", stopLabel(result.StopReason)},
		{"Duration", duration},
		{"Output file", outputFile},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	printSample(w, result.Records)
}

func printSample(w io.Writer, records []*models.Record) {
	if len(records) == 0 {
		return
	}
	start := len(records) - sampleSize
	if start < 0 {
		start = 0
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Latest records")
	t.AppendHeader(table.Row{"NIM", "Judul", "Pengarang", "Tahun"})
	for _, r := range records[start:] {
		t.AppendRow(table.Row{r.Identifier, r.Title, r.AuthorList(), r.Year})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func stopLabel(reason models.StopReason) string {
	if reason == models.StopNone {
		return "completed"
	}
	return strings.ReplaceAll(string(reason), "_", " ")
}

// formatCounts renders counts sorted by key, e.g. "not_found=2 timeout=1".
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
