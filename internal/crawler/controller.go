package crawler

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/productsnap/crawl/internal/selector"
	"github.com/productsnap/crawl/pkg/models"
)

var errUntitled = errors.New("untitled record excluded by policy")

// EntryKind selects how an entry point is walked.
type EntryKind string

const (
	// EntryListing paginates a listing page with the next-control chain.
	EntryListing EntryKind = "listing"

	// EntryCategories opens a category hub, enumerates its category tabs
	// and harvests each tab as its own listing with a category hint.
	EntryCategories EntryKind = "categories"
)

// Entry is one starting point for the crawl.
type Entry struct {
	URL      string
	Kind     EntryKind
	Category string // optional hint, wins over the breadcrumb heuristic
	Theme    string
}

// Options bound one crawl run.
type Options struct {
	MaxPagesPerEntry int
	MaxItemsPerPage  int

	// Randomized pause window applied between any two navigations. This is
	// a scheduling throttle and is never skipped.
	DelayMin time.Duration
	DelayMax time.Duration

	// SkipUntitled reroutes records named with the sentinel to the failure
	// ledger instead of the result set.
	SkipUntitled    bool
	NoTitleSentinel string

	// BaseURL resolves relative category tab hrefs.
	BaseURL string

	// CategoryTabLabel identifies the hub tab that reveals the category
	// list (matched against tab text).
	CategoryTabLabel string
}

// Controller walks entry points sequentially on the shared browser session,
// aggregating records and the failure ledger. One bad product never halts
// the run.
type Controller struct {
	driver    Driver
	assembler *Assembler
	opts      Options

	// sleep is replaceable so tests can observe the rate-limit pauses.
	sleep func(time.Duration)
	rng   *rand.Rand

	// OnProduct, when set, is invoked after each attempted product (for
	// progress reporting). OnRecord/OnFailure stream results to a sink as
	// they are produced.
	OnProduct func(url string)
	OnRecord  func(rec *models.ProductRecord)
	OnFailure func(f models.CrawlFailure)
}

// NewController builds a controller over the shared driver and assembler.
func NewController(driver Driver, assembler *Assembler, opts Options) *Controller {
	if opts.MaxPagesPerEntry <= 0 {
		opts.MaxPagesPerEntry = 1
	}
	if opts.MaxItemsPerPage <= 0 {
		opts.MaxItemsPerPage = 1
	}
	if opts.CategoryTabLabel == "" {
		opts.CategoryTabLabel = "카테고리"
	}
	return &Controller{
		driver:    driver,
		assembler: assembler,
		opts:      opts,
		sleep:     time.Sleep,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSleep replaces the pause function. Intended for tests.
func (c *Controller) SetSleep(fn func(time.Duration)) {
	if fn != nil {
		c.sleep = fn
	}
}

// Run walks every entry point and returns the aggregated records plus the
// failure ledger. The record sequence is append-only and never reordered.
func (c *Controller) Run(ctx context.Context, entries []Entry) ([]*models.ProductRecord, []models.CrawlFailure, error) {
	var (
		records  []*models.ProductRecord
		failures []models.CrawlFailure
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return records, failures, err
		}

		log.Info().Str("url", entry.URL).Str("kind", string(entry.Kind)).Msg("crawling entry point")

		var err error
		switch entry.Kind {
		case EntryCategories:
			err = c.runCategories(ctx, entry, &records, &failures)
		default:
			err = c.runListing(ctx, entry, &records, &failures)
		}
		if err != nil {
			if ctx.Err() != nil {
				return records, failures, err
			}
			log.Error().Str("url", entry.URL).Err(err).Msg("entry point failed")
			failures = c.ledger(failures, entry.URL, err)
		}
	}

	return records, failures, nil
}

// runListing paginates one listing entry up to MaxPagesPerEntry pages.
func (c *Controller) runListing(ctx context.Context, entry Entry, records *[]*models.ProductRecord, failures *[]models.CrawlFailure) error {
	if err := c.driver.Navigate(ctx, entry.URL); err != nil {
		return err
	}
	c.pause()

	listingURL := entry.URL

	for page := 1; page <= c.opts.MaxPagesPerEntry; page++ {
		links := c.productLinks(ctx)
		if len(links) == 0 {
			log.Warn().Int("page", page).Msg("no product links found on listing page")
			return nil
		}

		log.Info().Int("page", page).Int("count", len(links)).Msg("harvesting products")
		c.visitProducts(ctx, links, entry.Category, entry.Theme, records, failures)

		if page == c.opts.MaxPagesPerEntry {
			return nil
		}

		// Detail visits left the session on a product page; return to the
		// listing before looking for the pagination control.
		if err := c.driver.Navigate(ctx, listingURL); err != nil {
			return err
		}
		c.pause()

		found, err := c.driver.ClickNext(ctx)
		if err != nil {
			return err
		}
		if !found {
			log.Info().Msg("no further pages")
			return nil
		}
		c.pause()
		if u, err := c.driver.CurrentURL(ctx); err == nil && u != "" {
			listingURL = u
		}
	}
	return nil
}

// runCategories opens the hub, reveals the category list, snapshots every
// tab's name and href up front and then harvests each category.
func (c *Controller) runCategories(ctx context.Context, entry Entry, records *[]*models.ProductRecord, failures *[]models.CrawlFailure) error {
	if err := c.driver.Navigate(ctx, entry.URL); err != nil {
		return err
	}
	c.pause()

	c.openCategoryTab(ctx)

	hit, tabs, err := c.driver.ResolveHit(ctx, selector.CategoryTabs)
	if err != nil {
		return err
	}
	if len(tabs) == 0 {
		log.Warn().Msg("no category tabs found")
		return nil
	}

	type category struct {
		name string
		href string
	}
	cats := make([]category, 0, len(tabs))
	for _, tab := range tabs {
		name := tab.Aria
		if name == "" {
			name = strings.TrimSpace(tab.Text)
		}
		cats = append(cats, category{name: name, href: tab.Href})
	}
	log.Info().Int("count", len(cats)).Msg("categories discovered")

	for i, cat := range cats {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cat.href != "" && cat.href != "#none" {
			target := cat.href
			if !strings.HasPrefix(target, "http") {
				target = strings.TrimRight(c.opts.BaseURL, "/") + target
			}
			if err := c.driver.Navigate(ctx, target); err != nil {
				log.Error().Str("category", cat.name).Err(err).Msg("category navigation failed")
				continue
			}
		} else {
			if err := c.driver.Click(ctx, hit.Query, i); err != nil {
				log.Warn().Str("category", cat.name).Err(err).Msg("category tab click failed")
				continue
			}
		}
		c.pause()

		links := c.productLinks(ctx)
		if len(links) == 0 {
			log.Warn().Str("category", cat.name).Msg("no products in category")
			continue
		}

		log.Info().Str("category", cat.name).Int("count", len(links)).Msg("harvesting category")
		c.visitProducts(ctx, links, cat.name, entry.Theme, records, failures)
	}
	return nil
}

// openCategoryTab clicks the hub tab that reveals the category list:
// matched by label, falling back to the second tab when labels changed.
func (c *Controller) openCategoryTab(ctx context.Context) {
	hit, tabs, err := c.driver.ResolveHit(ctx, selector.TabGroup)
	if err != nil || len(tabs) == 0 {
		log.Warn().Msg("category tab group not found")
		return
	}

	index := -1
	for i, tab := range tabs {
		if strings.Contains(tab.Text, c.opts.CategoryTabLabel) {
			index = i
			break
		}
	}
	if index < 0 && len(tabs) >= 2 {
		index = 1
	}
	if index < 0 {
		log.Warn().Msg("category tab not identified")
		return
	}

	if err := c.driver.Click(ctx, hit.Query, index); err != nil {
		log.Warn().Err(err).Msg("category tab click failed")
		return
	}
	c.pause()
}

// productLinks resolves candidate detail URLs on the current page, bounded
// by MaxItemsPerPage.
func (c *Controller) productLinks(ctx context.Context) []string {
	matches, err := c.driver.Resolve(ctx, selector.ProductLinks)
	if err != nil {
		log.Warn().Err(err).Msg("product link resolution failed")
		return nil
	}

	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Href != "" {
			links = append(links, m.Href)
		}
	}
	if len(links) > c.opts.MaxItemsPerPage {
		links = links[:c.opts.MaxItemsPerPage]
	}
	return links
}

// visitProducts assembles a record per link, ledgering per-product failures
// and applying the untitled policy.
func (c *Controller) visitProducts(ctx context.Context, links []string, categoryHint, themeHint string, records *[]*models.ProductRecord, failures *[]models.CrawlFailure) {
	for _, link := range links {
		if ctx.Err() != nil {
			return
		}
		c.pause()

		rec, err := c.assembler.Assemble(ctx, link, categoryHint, themeHint)
		if c.OnProduct != nil {
			c.OnProduct(link)
		}
		if err != nil {
			log.Error().Str("url", link).Err(err).Msg("product failed")
			*failures = c.ledger(*failures, link, err)
			continue
		}

		if c.opts.SkipUntitled && rec.Name == c.opts.NoTitleSentinel {
			log.Warn().Str("url", link).Msg("untitled record skipped by policy")
			*failures = c.ledger(*failures, link, errUntitled)
			continue
		}

		*records = append(*records, rec)
		if c.OnRecord != nil {
			c.OnRecord(rec)
		}
		log.Info().Str("name", rec.Name).Str("product_id", rec.ProductID).Msg("product recorded")
	}
}

func (c *Controller) ledger(failures []models.CrawlFailure, url string, err error) []models.CrawlFailure {
	f := models.CrawlFailure{URL: url, ErrorSummary: err.Error()}
	failures = append(failures, f)
	if c.OnFailure != nil {
		c.OnFailure(f)
	}
	return failures
}

// pause sleeps for a random duration inside the configured window. Applied
// between any two navigations to bound request rate.
func (c *Controller) pause() {
	min, max := c.opts.DelayMin, c.opts.DelayMax
	if max <= 0 {
		return
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(c.rng.Int63n(int64(span)))
	}
	c.sleep(d)
}
