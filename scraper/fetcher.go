package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-perpus/config"
	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves one page at a time and hands back its parsed tree.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewFetcher builds a synchronous collector restricted to the portal host.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
	})
	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("body", r.Body)
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			metrics.ObserveDuration(time.Since(start))
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put("status", r.StatusCode)
		}
	})

	return &Fetcher{collector: collector, metrics: metrics}, nil
}

// Fetch issues a GET for rawURL. Failures come back classified as one of the
// typed transport errors; non-2xx responses are failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, kind string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.metrics.IncRequest(kind)

	reqCtx := colly.NewContext()
	if err := f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil); err != nil {
		status, _ := reqCtx.GetAny("status").(int)
		classified := classifyError(err, status)
		category := errorTypeLabel(classified)
		f.metrics.IncError(category)
		slog.Error("request error",
			slog.String("url", rawURL),
			slog.String("category", category),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("fetch %s: %w", rawURL, classified)
	}

	body, _ := reqCtx.GetAny("body").([]byte)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}
