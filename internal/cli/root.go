// Package cli wires the cobra command tree: flag registration, logger
// setup and the run command that drives a crawl.
package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/productsnap/crawl/internal/config"
)

var rootCmd = &cobra.Command{
	Use:     "productsnap",
	Short:   "Extract product records from a JS-rendered storefront",
	Long:    `Productsnap drives a headless browser through storefront listing and category pages, assembles normalized product records and stores their images alongside a CSV dataset.`,
	Version: "0.1.0",
}

// Execute runs the command tree. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterGlobalFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Logger setup must precede any command body; config.Load is called
	// again per command with the full flag set.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger(cmd)
	}
}

func setupLogger(cmd *cobra.Command) {
	cfg, err := config.Load(cmd)
	if err != nil {
		// Flag validation errors resurface in the command body; logging
		// falls back to defaults here.
		cfg = &config.Config{LogLevel: config.DefaultLogLevel}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.JSONLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
