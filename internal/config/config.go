// Package config builds the explicit configuration value handed to the
// crawl controller and browser session. There are no process-wide mutable
// settings: defaults, environment variables and CLI flags are folded into
// one Config at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Config holds every knob for one crawl run.
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Entry points and bounds
	Entries          []string
	EntryMode        string // "listing" or "categories"
	MaxPagesPerEntry int
	MaxItemsPerPage  int

	// Rate limiting between navigations
	DelayMin time.Duration
	DelayMax time.Duration

	// Browser session
	UserAgent   string
	Proxy       string
	ChromePath  string
	Headless    bool
	WindowSize  string
	NavTimeout  time.Duration
	WaitTimeout time.Duration
	ScrollPause time.Duration
	TopPause    time.Duration
	SettlePause time.Duration

	// Asset downloads
	HTTPTimeout         time.Duration
	ImageRateLimitRPS   float64
	ImageRateLimitBurst int

	// Output
	DatasetRoot string
	FlushEvery  int

	// Policies
	BaseURL          string
	AuthDialogMarker string
	NoTitleSentinel  string
	SkipUntitled     bool

	// Theme labels every record of the run (e.g. a seasonal collection).
	Theme string
}

// Load builds a Config from defaults, then PRODUCTSNAP_* environment
// variables, then flags registered on cmd. Callers pass the command whose
// flag set should win.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:            DefaultLogLevel,
		JSONLog:             DefaultJSONLog,
		EntryMode:           "listing",
		MaxPagesPerEntry:    DefaultMaxPagesPerEntry,
		MaxItemsPerPage:     DefaultMaxItemsPerPage,
		DelayMin:            DefaultDelayMin,
		DelayMax:            DefaultDelayMax,
		UserAgent:           DefaultUserAgent,
		Headless:            DefaultHeadless,
		WindowSize:          DefaultWindowSize,
		NavTimeout:          DefaultNavTimeout,
		WaitTimeout:         DefaultWaitTimeout,
		ScrollPause:         DefaultScrollPause,
		TopPause:            DefaultTopPause,
		SettlePause:         DefaultSettlePause,
		HTTPTimeout:         DefaultHTTPTimeout,
		ImageRateLimitRPS:   DefaultImageRateLimitRPS,
		ImageRateLimitBurst: DefaultImageRateLimitBurst,
		DatasetRoot:         DefaultDatasetRoot,
		FlushEvery:          DefaultFlushEvery,
		BaseURL:             DefaultBaseURL,
		AuthDialogMarker:    DefaultAuthDialogMarker,
		NoTitleSentinel:     DefaultNoTitleSentinel,
	}

	applyEnv(cfg)
	if cmd != nil {
		applyFlags(cfg, cmd)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRODUCTSNAP_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("PRODUCTSNAP_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("PRODUCTSNAP_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("PRODUCTSNAP_DATASET_ROOT"); v != "" {
		cfg.DatasetRoot = v
	}
	if v := os.Getenv("PRODUCTSNAP_FLUSH_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlushEvery = n
		}
	}
}

func applyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if v, err := flags.GetString("user-agent"); err == nil && v != "" {
		cfg.UserAgent = v
	}
	if v, err := flags.GetString("proxy"); err == nil && v != "" {
		cfg.Proxy = v
	}
	if v, err := flags.GetString("chrome-path"); err == nil && v != "" {
		cfg.ChromePath = v
	}
	if v, err := flags.GetString("timeout"); err == nil && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if flags.Changed("headless") {
		if v, err := flags.GetBool("headless"); err == nil {
			cfg.Headless = v
		}
	}
	if v, err := flags.GetBool("json"); err == nil && v {
		cfg.JSONLog = true
	}
	if v, err := flags.GetBool("verbose"); err == nil && v {
		cfg.LogLevel = "debug"
	}
	if v, err := flags.GetBool("quiet"); err == nil && v {
		cfg.LogLevel = "error"
	}

	// run-command flags; absent on other commands.
	if v, err := flags.GetStringSlice("entry"); err == nil && len(v) > 0 {
		cfg.Entries = v
	}
	if v, err := flags.GetString("mode"); err == nil && v != "" {
		cfg.EntryMode = v
	}
	if v, err := flags.GetInt("max-pages"); err == nil && flags.Changed("max-pages") {
		cfg.MaxPagesPerEntry = v
	}
	if v, err := flags.GetInt("max-items"); err == nil && flags.Changed("max-items") {
		cfg.MaxItemsPerPage = v
	}
	if v, err := flags.GetDuration("delay-min"); err == nil && flags.Changed("delay-min") {
		cfg.DelayMin = v
	}
	if v, err := flags.GetDuration("delay-max"); err == nil && flags.Changed("delay-max") {
		cfg.DelayMax = v
	}
	if v, err := flags.GetString("out"); err == nil && v != "" {
		cfg.DatasetRoot = v
	}
	if v, err := flags.GetInt("flush-every"); err == nil && flags.Changed("flush-every") {
		cfg.FlushEvery = v
	}
	if v, err := flags.GetBool("skip-untitled"); err == nil && v {
		cfg.SkipUntitled = true
	}
	if v, err := flags.GetString("base-url"); err == nil && v != "" {
		cfg.BaseURL = v
	}
	if v, err := flags.GetString("theme"); err == nil && v != "" {
		cfg.Theme = v
	}
}
