package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Crawl variants.
const (
	VariantCatalog = "catalog"
	VariantTheses  = "theses"
)

// DefaultCategories are the thesis archive listings walked in order by the theses variant.
var DefaultCategories = []string{
	"/perpus/skripsi/index?prodi=TI",
	"/perpus/skripsi/index?prodi=SI",
	"/perpus/skripsi/index?prodi=MI",
}

// Config holds crawler configuration.
type Config struct {
	Variant              string        `mapstructure:"variant"`
	BaseURL              string        `mapstructure:"base_url"`
	StartPath            string        `mapstructure:"start_path"`
	StartPage            int           `mapstructure:"start_page"`
	ItemsPerPage         int           `mapstructure:"items_per_page"`
	MaxPages             int           `mapstructure:"max_pages"` // 0 means unbounded
	Resume               bool          `mapstructure:"resume"`
	AutoMode             bool          `mapstructure:"auto"`
	LoadExisting         bool          `mapstructure:"load_existing"`
	ClassificationPrefix string        `mapstructure:"classification_prefix"`
	DuplicateThreshold   int           `mapstructure:"duplicate_threshold"`
	PageDelay            time.Duration `mapstructure:"page_delay"`
	ItemDelay            time.Duration `mapstructure:"item_delay"`
	Timeout              time.Duration `mapstructure:"timeout"`
	RejectedCacheSize    int           `mapstructure:"rejected_cache_size"`
	Categories           []string      `mapstructure:"categories"`
	OutputFile           string        `mapstructure:"output"`
	OutputFormat         string        `mapstructure:"format"` // csv, xlsx, jsonl, or dual
	ProgressFile         string        `mapstructure:"progress_file"`
	UserAgent            string        `mapstructure:"user_agent"`
	MetricsAddr          string        `mapstructure:"metrics_addr"`
	Verbose              bool          `mapstructure:"verbose"`
}

// DefaultConfig returns the defaults for the catalog crawl.
func DefaultConfig() *Config {
	return &Config{
		Variant:              VariantCatalog,
		BaseURL:              "https://perpus.stmikplk.ac.id",
		StartPath:            "/perpus/main",
		StartPage:            1,
		ItemsPerPage:         12,
		MaxPages:             0,
		Resume:               false,
		AutoMode:             true,
		LoadExisting:         true,
		ClassificationPrefix: "TA TI",
		DuplicateThreshold:   2,
		PageDelay:            2 * time.Second,
		ItemDelay:            1 * time.Second,
		Timeout:              10 * time.Second,
		RejectedCacheSize:    4096,
		OutputFile:           "data_ta_ti.csv",
		OutputFormat:         "csv",
		ProgressFile:         "scraping_progress.json",
		UserAgent:            "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:              false,
	}
}

// DefaultThesisConfig returns the defaults for the thesis archive crawl.
func DefaultThesisConfig() *Config {
	cfg := DefaultConfig()
	cfg.Variant = VariantTheses
	cfg.ClassificationPrefix = ""
	cfg.Categories = append([]string(nil), DefaultCategories...)
	cfg.OutputFile = "data_skripsi.xlsx"
	cfg.OutputFormat = "xlsx"
	cfg.ProgressFile = "scraping_progress_skripsi.json"
	return cfg
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Variant != VariantCatalog && c.Variant != VariantTheses {
		return fmt.Errorf("variant must be %s or %s", VariantCatalog, VariantTheses)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.StartPage <= 0 {
		return fmt.Errorf("start page must be positive")
	}
	if c.ItemsPerPage <= 0 {
		return fmt.Errorf("items per page must be positive")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.DuplicateThreshold <= 0 {
		return fmt.Errorf("duplicate threshold must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("item delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RejectedCacheSize <= 0 {
		return fmt.Errorf("rejected cache size must be positive")
	}
	if c.Variant == VariantCatalog && c.StartPath == "" {
		return fmt.Errorf("start path cannot be empty")
	}
	if c.Variant == VariantTheses && len(c.Categories) == 0 {
		return fmt.Errorf("theses variant needs at least one category")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "xlsx", "jsonl", "dual":
	default:
		return fmt.Errorf("output format must be csv, xlsx, jsonl, or dual")
	}
	if c.ProgressFile == "" {
		return fmt.Errorf("progress file cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// StartURL returns the first listing URL of a fresh catalog crawl. Start
// pages after the first are addressed by offset.
func (c *Config) StartURL() string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	if c.StartPage > 1 {
		offset := (c.StartPage - 1) * c.ItemsPerPage
		return fmt.Sprintf("%s%s/index?offset=%d&max=%d", base, c.StartPath, offset, c.ItemsPerPage)
	}
	return base + c.StartPath
}

// CategoryURL returns the absolute listing URL of category i.
func (c *Config) CategoryURL(i int) string {
	return strings.TrimSuffix(c.BaseURL, "/") + c.Categories[i]
}
