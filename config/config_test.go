package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "unknown variant",
			mutate: func(cfg *Config) {
				cfg.Variant = "journals"
			},
			wantErr: "variant",
		},
		{
			name: "negative max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = -1
			},
			wantErr: "max pages",
		},
		{
			name: "zero start page",
			mutate: func(cfg *Config) {
				cfg.StartPage = 0
			},
			wantErr: "start page",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative page delay",
			mutate: func(cfg *Config) {
				cfg.PageDelay = -time.Second
			},
			wantErr: "page delay",
		},
		{
			name: "zero duplicate threshold",
			mutate: func(cfg *Config) {
				cfg.DuplicateThreshold = 0
			},
			wantErr: "duplicate threshold",
		},
		{
			name: "unsupported format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "parquet"
			},
			wantErr: "output format",
		},
		{
			name: "theses without categories",
			mutate: func(cfg *Config) {
				cfg.Variant = VariantTheses
				cfg.Categories = nil
			},
			wantErr: "category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	for _, cfg := range []*Config{DefaultConfig(), DefaultThesisConfig()} {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("default %s config should validate, got %v", cfg.Variant, err)
		}
	}
}

func TestStartURL(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.StartURL(), "https://perpus.stmikplk.ac.id/perpus/main"; got != want {
		t.Fatalf("StartURL() = %q, want %q", got, want)
	}

	cfg.StartPage = 5
	if got, want := cfg.StartURL(), "https://perpus.stmikplk.ac.id/perpus/main/index?offset=48&max=12"; got != want {
		t.Fatalf("StartURL() = %q, want %q", got, want)
	}
}

func TestLoadLayers(t *testing.T) {
	t.Run("defaults pass through", func(t *testing.T) {
		cfg, err := Load(DefaultConfig(), "", nil)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.PageDelay != 2*time.Second || cfg.ClassificationPrefix != "TA TI" || !cfg.AutoMode {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("environment overrides config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "perpus.yaml")
		content := "max_pages: 4\npage_delay: 500ms\noutput: from-file.csv\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		t.Setenv("PERPUS_MAX_PAGES", "9")

		cfg, err := Load(DefaultConfig(), path, nil)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.MaxPages != 9 {
			t.Fatalf("max pages = %d, want 9 from environment", cfg.MaxPages)
		}
		if cfg.PageDelay != 500*time.Millisecond {
			t.Fatalf("page delay = %v, want 500ms from file", cfg.PageDelay)
		}
		if cfg.OutputFile != "from-file.csv" {
			t.Fatalf("output = %q, want from-file.csv", cfg.OutputFile)
		}
	})

	t.Run("changed flags win", func(t *testing.T) {
		t.Setenv("PERPUS_MAX_PAGES", "9")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("max-pages", 0, "")
		flags.Duration("item-delay", time.Second, "")
		flags.Bool("resume", false, "")
		if err := flags.Parse([]string{"--max-pages=3", "--resume"}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		cfg, err := Load(DefaultConfig(), "", flags)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.MaxPages != 3 || !cfg.Resume {
			t.Fatalf("flags not applied: max=%d resume=%v", cfg.MaxPages, cfg.Resume)
		}
		if cfg.ItemDelay != time.Second {
			t.Fatalf("unchanged flag should keep default, got %v", cfg.ItemDelay)
		}
	})

	t.Run("missing explicit config file fails", func(t *testing.T) {
		if _, err := Load(DefaultConfig(), filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})
}
