package similarity

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/aluiziolira/go-scrape-perpus/pipeline"
	"github.com/go-resty/resty/v2"
)

// Loader reads datasets and stopword lists from local files or URLs.
type Loader struct {
	client *resty.Client
}

// NewLoader returns a loader whose downloads time out after timeout.
func NewLoader(timeout time.Duration, userAgent string) *Loader {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
	return &Loader{client: client}
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (l *Loader) download(ctx context.Context, u string) ([]byte, error) {
	resp, err := l.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download %s: %s", u, resp.Status())
	}
	return resp.Body(), nil
}

// Dataset loads records from a crawl output file or a published CSV URL.
func (l *Loader) Dataset(ctx context.Context, source string) ([]*models.Record, error) {
	var (
		records []*models.Record
		err     error
	)
	if isRemote(source) {
		var body []byte
		body, err = l.download(ctx, source)
		if err != nil {
			return nil, err
		}
		records, err = pipeline.ReadCSV(bytes.NewReader(body))
	} else {
		records, err = pipeline.ReadRecords(pipeline.FormatFromPath(source), source)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", source, err)
	}

	titled := records[:0]
	for _, r := range records {
		if strings.TrimSpace(r.Title) != "" {
			titled = append(titled, r)
		}
	}
	if len(titled) == 0 {
		return nil, fmt.Errorf("load dataset %s: no titled rows", source)
	}
	slog.Debug("dataset loaded", slog.String("source", source), slog.Int("records", len(titled)))
	return titled, nil
}

// Stopwords loads one word per line. An empty source yields no stopwords.
func (l *Loader) Stopwords(ctx context.Context, source string) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	if source == "" {
		return words, nil
	}

	var body []byte
	var err error
	if isRemote(source) {
		body, err = l.download(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load stopwords: %w", err)
	}
	return ParseStopwords(string(body)), nil
}

// ParseStopwords reads one lower-cased word per line; quotes from
// spreadsheet exports are stripped and blank lines skipped.
func ParseStopwords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		w := strings.ToLower(strings.Trim(strings.TrimSpace(line), `",`))
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}
