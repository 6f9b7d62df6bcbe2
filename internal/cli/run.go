package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/productsnap/crawl/internal/assets"
	"github.com/productsnap/crawl/internal/browser"
	"github.com/productsnap/crawl/internal/config"
	"github.com/productsnap/crawl/internal/crawler"
	"github.com/productsnap/crawl/internal/dataset"
	"github.com/productsnap/crawl/internal/ratelimit"
	"github.com/productsnap/crawl/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl the configured entry points and build the dataset",
	Example: `  # Three products from the default listing
  productsnap run --entry https://gift.kakao.com/ranking --max-items 3

  # Walk every category behind a hub page, two pages each
  productsnap run --entry https://gift.kakao.com/home --mode categories --max-pages 2`,
	RunE: runCrawl,
}

func init() {
	config.RegisterRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Entries) == 0 {
		return fmt.Errorf("at least one --entry URL is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer, err := dataset.NewWriter(cfg.DatasetRoot, cfg.FlushEvery)
	if err != nil {
		return err
	}
	defer writer.Close()

	limiter := ratelimit.NewHostLimiter(cfg.ImageRateLimitRPS, cfg.ImageRateLimitBurst)
	store, err := assets.NewStore(cfg.DatasetRoot, cfg.HTTPTimeout, cfg.UserAgent, limiter)
	if err != nil {
		return err
	}

	session, err := browser.NewSession(browser.SessionConfig{
		Headless:         cfg.Headless,
		UserAgent:        cfg.UserAgent,
		Proxy:            cfg.Proxy,
		ChromePath:       cfg.ChromePath,
		WindowSize:       cfg.WindowSize,
		NavTimeout:       cfg.NavTimeout,
		WaitTimeout:      cfg.WaitTimeout,
		ScrollPause:      cfg.ScrollPause,
		TopPause:         cfg.TopPause,
		SettlePause:      cfg.SettlePause,
		AuthDialogMarker: cfg.AuthDialogMarker,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	page := browser.NewPage(session)
	assembler := crawler.NewAssembler(page, store, cfg.NoTitleSentinel)
	controller := crawler.NewController(page, assembler, crawler.Options{
		MaxPagesPerEntry: cfg.MaxPagesPerEntry,
		MaxItemsPerPage:  cfg.MaxItemsPerPage,
		DelayMin:         cfg.DelayMin,
		DelayMax:         cfg.DelayMax,
		SkipUntitled:     cfg.SkipUntitled,
		NoTitleSentinel:  cfg.NoTitleSentinel,
		BaseURL:          cfg.BaseURL,
	})

	// Stream results to disk as they arrive; the total is unknown up front
	// so the bar runs in spinner mode.
	var bar *progressbar.ProgressBar
	if !cfg.JSONLog {
		bar = progressbar.Default(-1, "products")
	}
	controller.OnProduct = func(url string) {
		if bar != nil {
			bar.Add(1)
		}
	}
	controller.OnRecord = func(rec *models.ProductRecord) {
		if err := writer.Append(rec); err != nil {
			log.Error().Str("product_id", rec.ProductID).Err(err).Msg("record write failed")
		}
	}
	controller.OnFailure = func(f models.CrawlFailure) {
		if err := writer.AppendFailure(f); err != nil {
			log.Error().Str("url", f.URL).Err(err).Msg("failure write failed")
		}
	}

	entries := buildEntries(cfg)
	_, _, runErr := controller.Run(ctx, entries)
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize dataset: %w", err)
	}

	records, failures := writer.Counts()
	log.Info().
		Int("records", records).
		Int("failures", failures).
		Str("dataset", cfg.DatasetRoot).
		Msg("crawl finished")
	fmt.Fprintf(os.Stdout, "%d records, %d failures -> %s\n", records, failures, cfg.DatasetRoot)
	if runErr != nil {
		return runErr
	}
	return nil
}

func buildEntries(cfg *config.Config) []crawler.Entry {
	kind := crawler.EntryListing
	if cfg.EntryMode == string(crawler.EntryCategories) {
		kind = crawler.EntryCategories
	}
	entries := make([]crawler.Entry, 0, len(cfg.Entries))
	for _, u := range cfg.Entries {
		entries = append(entries, crawler.Entry{URL: u, Kind: kind, Theme: cfg.Theme})
	}
	return entries
}
