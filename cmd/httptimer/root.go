package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joeabbey/httptimer/internal/config"
	"github.com/joeabbey/httptimer/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger

	// v is the viper instance flags are bound to.
	v = viper.New()

	// stdout receives report output; tests swap it for a buffer.
	stdout io.Writer = os.Stdout
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "httptimer",
	Short: "Measure where HTTP request latency goes",
	Long: `httptimer sends HTTP requests through an instrumented transport and reports
how long each lifecycle phase took: queueing, DNS, TCP connect, TLS handshake,
request upload, time to first byte and download.

Settings can also come from a YAML file (--config) or from HTTPTIMER_*
environment variables, e.g. HTTPTIMER_ITERATIONS=20.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format: text, json, yaml or short")
}

// loadConfig resolves the configuration for the running command before it
// runs.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(v, cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = loaded

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = logging.New("httptimer", level, cmd.ErrOrStderr())
	logger.Debug("configuration loaded", "config_file", v.ConfigFileUsed(), "output", cfg.Output)
	return nil
}
