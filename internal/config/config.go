// Package config loads CLI settings from flags, HTTPTIMER_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/joeabbey/httptimer/internal/aws"
	"github.com/joeabbey/httptimer/internal/logging"
	"github.com/joeabbey/httptimer/internal/report"
)

// EnvPrefix is prepended to every environment variable, e.g.
// HTTPTIMER_ITERATIONS.
const EnvPrefix = "HTTPTIMER"

// Config holds the application configuration
type Config struct {
	LogLevel     string        `mapstructure:"log_level"`
	Output       string        `mapstructure:"output"`
	Iterations   int           `mapstructure:"iterations"`
	Concurrency  int           `mapstructure:"concurrency"`
	Method       string        `mapstructure:"method"`
	Timeout      time.Duration `mapstructure:"timeout"`
	KeepAlives   bool          `mapstructure:"keep_alives"`
	Details      bool          `mapstructure:"details"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool          `mapstructure:"otlp_insecure"`
	Regions      []string      `mapstructure:"regions"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("output", report.FormatText)
	v.SetDefault("iterations", 1)
	v.SetDefault("concurrency", 1)
	v.SetDefault("method", http.MethodGet)
	v.SetDefault("timeout", "30s")
	v.SetDefault("keep_alives", false)
	v.SetDefault("details", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("otlp_insecure", false)
	v.SetDefault("regions", []string{})
}

// Load reads configuration into a Config. Values resolve in the order flags
// set on the command line, environment, config file (when file is non-empty),
// flag defaults, package defaults. flags may be nil.
func Load(v *viper.Viper, file string, flags *pflag.FlagSet) (*Config, error) {
	SetDefaults(v)
	if flags != nil {
		bindFlags(v, flags)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	cfg.Regions = splitList(cfg.Regions)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field and combines all problems into one error.
func (c *Config) Validate() error {
	var err error
	if _, perr := logging.ParseLevel(c.LogLevel); perr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level: %w", perr))
	}
	if !slices.Contains(report.Formats, c.Output) {
		err = multierr.Append(err, fmt.Errorf("output: unknown format %q (want one of %s)", c.Output, strings.Join(report.Formats, ", ")))
	}
	if c.Iterations < 1 {
		err = multierr.Append(err, fmt.Errorf("iterations: must be at least 1, got %d", c.Iterations))
	}
	if c.Concurrency < 1 {
		err = multierr.Append(err, fmt.Errorf("concurrency: must be at least 1, got %d", c.Concurrency))
	}
	if c.Method == "" {
		err = multierr.Append(err, errors.New("method: must not be empty"))
	}
	if c.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("timeout: must not be negative, got %v", c.Timeout))
	}
	if _, rerr := aws.Select(c.Regions); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("regions: %w", rerr))
	}
	return err
}

// bindFlags binds every flag to the key of the same name, dashes replaced by
// underscores. An unset flag's default replaces the package default so each
// command can pick its own.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		_ = v.BindPFlag(key, f)
		if !f.Changed && f.DefValue != "" && f.DefValue != "[]" {
			v.SetDefault(key, f.DefValue)
		}
	})
}

// splitList accepts both list values and a single comma-separated string,
// which is how environment variables arrive.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
