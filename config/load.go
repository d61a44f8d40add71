package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PERPUS_MAX_PAGES.
const EnvPrefix = "PERPUS"

// Load layers configuration sources over base: .env file, optional config
// file, PERPUS_* environment, then any flag the user changed. flags may be nil.
func Load(base *Config, configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}

	v := viper.New()
	keys := setDefaults(v, base)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("perpus")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := keys[key]; !ok {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, nil
}

// setDefaults registers base as the lowest layer and returns the known keys.
func setDefaults(v *viper.Viper, base *Config) map[string]struct{} {
	defaults := map[string]interface{}{
		"variant":               base.Variant,
		"base_url":              base.BaseURL,
		"start_path":            base.StartPath,
		"start_page":            base.StartPage,
		"items_per_page":        base.ItemsPerPage,
		"max_pages":             base.MaxPages,
		"resume":                base.Resume,
		"auto":                  base.AutoMode,
		"load_existing":         base.LoadExisting,
		"classification_prefix": base.ClassificationPrefix,
		"duplicate_threshold":   base.DuplicateThreshold,
		"page_delay":            base.PageDelay,
		"item_delay":            base.ItemDelay,
		"timeout":               base.Timeout,
		"rejected_cache_size":   base.RejectedCacheSize,
		"categories":            base.Categories,
		"output":                base.OutputFile,
		"format":                base.OutputFormat,
		"progress_file":         base.ProgressFile,
		"user_agent":            base.UserAgent,
		"metrics_addr":          base.MetricsAddr,
		"verbose":               base.Verbose,
	}
	keys := make(map[string]struct{}, len(defaults))
	for key, value := range defaults {
		v.SetDefault(key, value)
		keys[key] = struct{}{}
	}
	return keys
}
