package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-perpus/config"
	"github.com/aluiziolira/go-scrape-perpus/models"
	"github.com/aluiziolira/go-scrape-perpus/parser"
	"github.com/aluiziolira/go-scrape-perpus/pipeline"
	"github.com/aluiziolira/go-scrape-perpus/progress"
)

// source is the variant-specific half of the crawl: how a listing page is
// read and how one of its items becomes a record.
type source interface {
	listing(doc *goquery.Document, base *url.URL) parser.Listing
	resolve(ctx context.Context, item parser.ListingItem) (*models.Record, Outcome, error)
}

// catalogSource follows every new item to its detail page.
type catalogSource struct {
	fetcher   *Fetcher
	extractor *parser.DetailExtractor
	pace      *pacer
}

func (c *catalogSource) listing(doc *goquery.Document, base *url.URL) parser.Listing {
	return parser.ParseListing(doc, base)
}

func (c *catalogSource) resolve(ctx context.Context, item parser.ListingItem) (*models.Record, Outcome, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return nil, OutcomeTransportError, err
	}
	slog.Debug("visiting detail page", slog.String("url", item.URL))
	doc, err := c.fetcher.Fetch(ctx, item.URL, "detail")
	c.pace.Done()
	if err != nil {
		return nil, OutcomeTransportError, err
	}
	record, err := c.extractor.Extract(doc, item.URL)
	return record, outcomeOf(err), err
}

// thesisSource takes records straight from the listing entries.
type thesisSource struct{}

func (thesisSource) listing(doc *goquery.Document, base *url.URL) parser.Listing {
	return parser.ParseThesisListing(doc, base)
}

func (thesisSource) resolve(_ context.Context, item parser.ListingItem) (*models.Record, Outcome, error) {
	if item.Record == nil {
		return nil, OutcomeStructuralMismatch, fmt.Errorf("listing entry %s: %w", item.URL, parser.ErrMissingTitle)
	}
	return item.Record, OutcomeSuccess, nil
}

// cursor is where a walk over one listing starts.
type cursor struct {
	category int
	url      string
	// page is the number of listing pages already behind url.
	page    int
	resumed bool
}

// Scraper drives the paginated crawl: it walks listing pages, dedupes items
// against the output, applies the early-stop policy and checkpoints progress.
type Scraper struct {
	cfg     *config.Config
	base    *url.URL
	fetcher *Fetcher
	source  source
	store   *progress.Store
	confirm Confirmer
	pages   *pacer
	Metrics *Metrics

	pageCount    int
	errorCount   int
	failedURLs   []string
	errorsByType map[string]int
	checkpointed bool
	// pinned holds the checkpoint of an earlier walk that stopped short, so
	// later walks cannot move the resume point past it.
	pinned bool
}

// NewScraper builds a scraper for the variant named in cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:          cfg,
		base:         base,
		fetcher:      fetcher,
		store:        progress.NewStore(cfg.ProgressFile),
		confirm:      AlwaysConfirm{},
		pages:        newPacer(cfg.PageDelay),
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}
	switch cfg.Variant {
	case config.VariantTheses:
		s.source = thesisSource{}
	default:
		s.source = &catalogSource{
			fetcher:   fetcher,
			extractor: parser.NewDetailExtractor(cfg.ClassificationPrefix),
			pace:      newPacer(cfg.ItemDelay),
		}
	}
	return s, nil
}

// SetConfirmer replaces the prompt used when auto mode is off.
func (s *Scraper) SetConfirmer(c Confirmer) {
	if c != nil {
		s.confirm = c
	}
}

// Store returns the checkpoint store.
func (s *Scraper) Store() *progress.Store {
	return s.store
}

// Run crawls until an early-stop condition, the end of the listing, max
// pages or cancellation of ctx. Records reach p after every page and once
// more on the way out, whatever the reason for stopping.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	outputFile := p.Writer().Filename()
	s.pageCount, s.errorCount, s.failedURLs = 0, 0, nil
	s.errorsByType = make(map[string]int)

	var checkpoint *models.Progress
	if s.cfg.Resume {
		checkpoint = s.validCheckpoint(s.store.Load(), outputFile)
	}
	s.checkpointed = checkpoint != nil
	s.pinned = false

	existing := map[string]struct{}{}
	if s.cfg.LoadExisting || checkpoint != nil {
		existing = pipeline.LoadExistingKeys(s.cfg.OutputFormat, outputFile)
	}
	sess, err := NewSession(existing, s.cfg.RejectedCacheSize)
	if err != nil {
		return nil, err
	}

	if checkpoint != nil {
		slog.Info("resuming crawl",
			slog.Int("page", checkpoint.PageCount),
			slog.String("next_url", checkpoint.NextURL),
			slog.Int("total", checkpoint.TotalData),
			slog.Int("existing", sess.Baseline()),
		)
	} else {
		slog.Info("starting crawl",
			slog.String("variant", s.cfg.Variant),
			slog.Int("existing", sess.Baseline()),
			slog.String("output", outputFile),
		)
	}

	reason := models.StopNone
	if !s.cfg.AutoMode {
		ok, err := s.confirm.Confirm(ctx, "Start crawling?")
		switch {
		case ctx.Err() != nil:
			reason = models.StopInterrupted
		case err != nil:
			return nil, err
		case !ok:
			reason = models.StopDeclined
		}
	}

	keep := reason.KeepsProgress()
	if reason == models.StopNone {
		for _, c := range s.plan(checkpoint) {
			reason, err = s.walk(ctx, sess, p, c)
			if err != nil {
				return nil, err
			}
			if reason.KeepsProgress() {
				keep = true
				s.pinned = true
			}
			if reason == models.StopInterrupted || reason == models.StopFetchFailed {
				break
			}
		}
	}

	if err := s.flush(sess, p); err != nil {
		return nil, err
	}
	if !keep {
		if err := s.store.Clear(); err != nil {
			return nil, err
		}
	}

	slog.Info("crawl finished",
		slog.String("reason", string(reason)),
		slog.Int("new_records", len(sess.Records())),
		slog.Int("total", sess.Total()),
	)

	return &models.CrawlResult{
		Records:      sess.Records(),
		Baseline:     sess.Baseline(),
		StartTime:    start,
		EndTime:      time.Now(),
		PageCount:    s.pageCount,
		Duplicates:   sess.duplicates,
		Filtered:     sess.filtered,
		ErrorCount:   s.errorCount,
		FailedURLs:   append([]string(nil), s.failedURLs...),
		ErrorsByType: s.snapshotErrors(),
		StopReason:   reason,
		Interrupted:  reason == models.StopInterrupted,
	}, nil
}

// validCheckpoint drops checkpoints that cannot be resumed by this configuration.
func (s *Scraper) validCheckpoint(cp *models.Progress, outputFile string) *models.Progress {
	if cp == nil {
		return nil
	}
	if cp.NextURL == "" {
		slog.Warn("progress has no next url, starting fresh", slog.String("path", s.store.Path()))
		return nil
	}
	limit := 1
	if s.cfg.Variant == config.VariantTheses {
		limit = len(s.cfg.Categories)
	}
	if cp.Category >= limit {
		slog.Warn("progress category out of range, starting fresh", slog.Int("category", cp.Category))
		return nil
	}
	if cp.OutputFile != "" && cp.OutputFile != outputFile {
		slog.Warn("progress was written for another output file",
			slog.String("progress_output", cp.OutputFile),
			slog.String("output", outputFile),
		)
	}
	return cp
}

// plan lists the walks of this run in order.
func (s *Scraper) plan(cp *models.Progress) []cursor {
	if s.cfg.Variant != config.VariantTheses {
		if cp != nil {
			return []cursor{{url: cp.NextURL, page: cp.PageCount, resumed: true}}
		}
		return []cursor{{url: s.cfg.StartURL(), page: s.cfg.StartPage - 1}}
	}

	from := 0
	if cp != nil {
		from = cp.Category
	}
	cursors := make([]cursor, 0, len(s.cfg.Categories)-from)
	for i := from; i < len(s.cfg.Categories); i++ {
		if i == from && cp != nil {
			cursors = append(cursors, cursor{category: i, url: cp.NextURL, page: cp.PageCount, resumed: true})
			continue
		}
		cursors = append(cursors, cursor{category: i, url: s.cfg.CategoryURL(i)})
	}
	return cursors
}

// walk follows one listing from c until it stops, returning the reason.
// Duplicate-driven stops are suspended on a resumed page, whose head may
// have been flushed just before the interruption.
func (s *Scraper) walk(ctx context.Context, sess *Session, p *pipeline.Pipeline, c cursor) (models.StopReason, error) {
	pageURL, page, resumed := c.url, c.page, c.resumed
	sess.VisitListing(pageURL)
	sess.ResetStreak()
	if !resumed && !s.pinned {
		// A checkpoint left by a finished walk points into another listing.
		s.checkpointed = false
	}
	outputFile := p.Writer().Filename()

	for {
		if err := s.pages.Wait(ctx); err != nil {
			return s.interrupted(sess, c.category, page, pageURL, outputFile)
		}

		doc, err := s.fetcher.Fetch(ctx, pageURL, "listing")
		s.pages.Done()
		if err != nil {
			if ctx.Err() != nil {
				return s.interrupted(sess, c.category, page, pageURL, outputFile)
			}
			s.recordFailure(pageURL, err)
			slog.Error("listing page unavailable, stopping",
				slog.Int("page", page+1),
				slog.String("url", pageURL),
			)
			if !s.checkpointed {
				if err := s.saveCheckpoint(sess, c.category, page, pageURL, outputFile); err != nil {
					return models.StopNone, err
				}
			}
			return models.StopFetchFailed, nil
		}
		page++
		s.pageCount++
		s.Metrics.IncPages()

		listing := s.source.listing(doc, s.base)
		slog.Info("processing listing page",
			slog.Int("page", page),
			slog.Int("category", c.category),
			slog.Int("items", len(listing.Items)),
			slog.String("url", pageURL),
		)

		if len(listing.Items) == 0 {
			slog.Info("listing page has no items, stopping", slog.Int("page", page))
			return models.StopEmptyPage, nil
		}

		fresh := 0
		for _, item := range listing.Items {
			if ctx.Err() != nil {
				return s.interrupted(sess, c.category, page-1, pageURL, outputFile)
			}

			if sess.Seen(item.URL) {
				s.Metrics.IncDuplicates()
				streak := sess.Duplicate()
				slog.Debug("already collected", slog.String("url", item.URL), slog.Int("streak", streak))
				if !resumed && streak >= s.cfg.DuplicateThreshold {
					slog.Info("consecutive duplicates reached threshold, stopping",
						slog.Int("page", page),
						slog.Int("streak", streak),
					)
					return models.StopDuplicateStreak, nil
				}
				continue
			}

			fresh++
			sess.ResetStreak()
			if sess.Rejected(item.URL) {
				continue
			}

			record, outcome, err := s.source.resolve(ctx, item)
			if outcome == OutcomeTransportError && ctx.Err() != nil {
				return s.interrupted(sess, c.category, page-1, pageURL, outputFile)
			}
			s.Metrics.IncOutcome(outcome)

			switch outcome {
			case OutcomeSuccess:
				sess.Add(record)
				slog.Debug("record collected", slog.String("title", record.Title), slog.String("url", item.URL))
			case OutcomeFiltered:
				sess.Reject(item.URL)
				slog.Warn("record filtered", slog.String("url", item.URL), slog.Any("reason", err))
			case OutcomeTransportError:
				s.recordFailure(item.URL, err)
			default:
				slog.Warn("item skipped",
					slog.String("url", item.URL),
					slog.String("outcome", outcome.String()),
					slog.Any("error", err),
				)
			}
		}

		if fresh == 0 && !resumed {
			slog.Info("no new items on page, output is up to date", slog.Int("page", page))
			return models.StopFullyIndexed, nil
		}

		next := listing.Next
		if next != "" && sess.VisitListing(next) {
			slog.Warn("pagination points back to a visited page", slog.String("url", next))
			next = ""
		}
		if next == "" {
			slog.Info("no next page", slog.Int("page", page))
			return models.StopNoNextPage, nil
		}

		if err := s.flush(sess, p); err != nil {
			return models.StopNone, err
		}
		if err := s.saveCheckpoint(sess, c.category, page, next, outputFile); err != nil {
			return models.StopNone, err
		}

		if s.cfg.MaxPages > 0 && page >= s.cfg.MaxPages {
			slog.Info("max pages reached", slog.Int("max_pages", s.cfg.MaxPages))
			return models.StopMaxPages, nil
		}

		pageURL, resumed = next, false
	}
}

// interrupted ends a walk on cancellation. An existing checkpoint is left as
// is; without one, the current page becomes the resume point.
func (s *Scraper) interrupted(sess *Session, category, page int, pageURL, outputFile string) (models.StopReason, error) {
	slog.Warn("crawl interrupted", slog.String("url", pageURL))
	if !s.checkpointed {
		if err := s.saveCheckpoint(sess, category, page, pageURL, outputFile); err != nil {
			return models.StopNone, err
		}
	}
	return models.StopInterrupted, nil
}

func (s *Scraper) flush(sess *Session, p *pipeline.Pipeline) error {
	pending := sess.Pending()
	if len(pending) == 0 {
		return nil
	}
	if err := p.Append(pending); err != nil {
		return fmt.Errorf("append records: %w", err)
	}
	sess.MarkFlushed()
	slog.Debug("records appended", slog.Int("count", len(pending)), slog.Int("total", sess.Total()))
	return nil
}

func (s *Scraper) saveCheckpoint(sess *Session, category, page int, next, outputFile string) error {
	if s.pinned {
		return nil
	}
	err := s.store.Save(models.Progress{
		PageCount:  page,
		NextURL:    next,
		TotalData:  sess.Total(),
		OutputFile: outputFile,
		Category:   category,
	})
	if err != nil {
		return err
	}
	s.checkpointed = true
	s.Metrics.IncCheckpoints()
	slog.Debug("progress saved", slog.Int("page", page), slog.Int("total", sess.Total()))
	return nil
}

func (s *Scraper) recordFailure(u string, err error) {
	s.errorCount++
	s.failedURLs = append(s.failedURLs, u)
	s.errorsByType[errorTypeLabel(err)]++
}

func (s *Scraper) snapshotErrors() map[string]int {
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
