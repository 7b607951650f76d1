// Package cli implements the billing command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abelcubano/main-project/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Monthly billing and invoice generation engine",
	Long: `billing generates one invoice per active customer per calendar month,
emails it to the customer and serves invoice documents as PDF.

Examples:
  billing serve
  billing run --date 2026-03-01
  billing render 550e8400-e29b-41d4-a716-446655440000 -o invoice.pdf
  billing migrate up`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/billing/config.yaml)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration, honouring --config.
func loadConfig() (*config.Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	cfg, err := config.LoadWith(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the JSON logger for the configured level. DEBUG=true
// forces debug output.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if os.Getenv("DEBUG") == "true" {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
