package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-perpus/config"
	"github.com/aluiziolira/go-scrape-perpus/pipeline"
	"github.com/aluiziolira/go-scrape-perpus/progress"
	"github.com/aluiziolira/go-scrape-perpus/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// exitInterrupted is the conventional status of a SIGINT-terminated process.
const exitInterrupted = 130

func newCrawlCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect classified catalog records into a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, config.DefaultConfig())
		},
	}

	flags := cmd.Flags()
	addCrawlFlags(flags, defaults)
	flags.String("start-path", defaults.StartPath, "listing path of page 1")
	flags.Int("start-page", defaults.StartPage, "first listing page of a fresh crawl")
	flags.Int("items-per-page", defaults.ItemsPerPage, "items per listing page, used to address start pages")
	flags.String("classification-prefix", defaults.ClassificationPrefix, "keep only records whose classification starts with this prefix")
	flags.Duration("item-delay", defaults.ItemDelay, "delay between detail page fetches")
	return cmd
}

func newThesesCmd() *cobra.Command {
	defaults := config.DefaultThesisConfig()
	cmd := &cobra.Command{
		Use:   "theses",
		Short: "Collect thesis archive records into a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, config.DefaultThesisConfig())
		},
	}

	flags := cmd.Flags()
	addCrawlFlags(flags, defaults)
	flags.StringSlice("categories", defaults.Categories, "category listing paths, walked in order")
	return cmd
}

// addCrawlFlags registers the flags shared by both crawl variants. Names
// match the config keys with dashes for underscores.
func addCrawlFlags(flags *pflag.FlagSet, defaults *config.Config) {
	flags.String("base-url", defaults.BaseURL, "portal base URL")
	flags.Int("max-pages", defaults.MaxPages, "maximum listing pages per run (0 = unbounded)")
	flags.Bool("resume", defaults.Resume, "continue from the saved progress file")
	flags.Bool("auto", defaults.AutoMode, "start without asking for confirmation")
	flags.Bool("load-existing", defaults.LoadExisting, "skip records already in the output file")
	flags.Int("duplicate-threshold", defaults.DuplicateThreshold, "consecutive duplicates that end the crawl")
	flags.Duration("page-delay", defaults.PageDelay, "delay between listing page fetches")
	flags.Duration("timeout", defaults.Timeout, "HTTP request timeout")
	flags.StringP("output", "o", defaults.OutputFile, "output file path")
	flags.String("format", defaults.OutputFormat, "output format: csv, xlsx, jsonl, or dual")
	flags.String("progress-file", defaults.ProgressFile, "progress checkpoint path")
	flags.String("user-agent", defaults.UserAgent, "User-Agent header sent to the portal")
}

// loadCrawlConfig layers config sources over base and pins the variant.
func loadCrawlConfig(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg, err := config.Load(base, cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	cfg.Variant = base.Variant
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Resume && !cmd.Flags().Changed("output") {
		if cp := progress.NewStore(cfg.ProgressFile).Load(); cp != nil && cp.OutputFile != "" && cp.OutputFile != cfg.OutputFile {
			slog.Info("resuming into the output named by the progress file", slog.String("output", cp.OutputFile))
			cfg.OutputFile = cp.OutputFile
		}
	}
	return cfg, nil
}

func runCrawl(cmd *cobra.Command, base *config.Config) error {
	cfg, err := loadCrawlConfig(cmd, base)
	if err != nil {
		return err
	}
	if cfg.Verbose && !verbose {
		logger, level := newLogger(true)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())
	}

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}
	if !cfg.AutoMode {
		s.SetConfirmer(scraper.LineConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()})
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	p := pipeline.NewPipeline(writer)
	defer func() {
		if err := p.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, flushing collected records")
	}()

	metricsServer := startMetricsServer(cfg.MetricsAddr, s.Metrics)

	result, err := s.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	if len(result.Records) > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}
	stopMetricsServer(metricsServer)

	out := cmd.OutOrStdout()
	printSummary(out, result, writer.Filename(), p.GetMetrics())
	if result.Interrupted {
		fmt.Fprintf(out, "\nInterrupted. Continue later with: %s --resume\n", cmd.CommandPath())
		return exitError{code: exitInterrupted}
	}
	return nil
}

func startMetricsServer(addr string, m *scraper.Metrics) *http.Server {
	if addr == "" || m == nil {
		return nil
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return srv
}

func stopMetricsServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}
