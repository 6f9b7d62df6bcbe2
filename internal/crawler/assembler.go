package crawler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/productsnap/crawl/internal/extract"
	"github.com/productsnap/crawl/internal/selector"
	"github.com/productsnap/crawl/pkg/models"
)

// Assembler builds one normalized ProductRecord per detail-page visit. Only
// navigation failures and unexpected driver errors during the mandatory
// title wait abort assembly; every field-level miss degrades to an absent
// or sentinel value.
type Assembler struct {
	driver Driver
	store  AssetStore

	// NoTitleSentinel is recorded as the name when title extraction times
	// out; name absence is never fatal here (the controller applies the
	// untitled policy).
	NoTitleSentinel string
}

// NewAssembler wires the assembler to the shared browser session and the
// asset store.
func NewAssembler(driver Driver, store AssetStore, noTitleSentinel string) *Assembler {
	return &Assembler{
		driver:          driver,
		store:           store,
		NoTitleSentinel: noTitleSentinel,
	}
}

// Assemble navigates to url and extracts a complete record. The returned
// error is non-nil only for failures the controller must ledger.
func (a *Assembler) Assemble(ctx context.Context, url, categoryHint, themeHint string) (*models.ProductRecord, error) {
	if err := a.driver.Navigate(ctx, url); err != nil {
		return nil, err
	}

	name, err := a.extractName(ctx)
	if err != nil {
		return nil, err
	}

	rec := &models.ProductRecord{
		ProductID: extract.ProductID(url),
		Name:      name,
		Category:  categoryHint,
		Theme:     themeHint,
		SourceURL: url,
		CrawledAt: time.Now(),
	}

	if v, ok := a.extractPrice(ctx); ok {
		rec.Price = &v
	} else {
		log.Warn().Str("url", url).Msg("price not found")
	}

	mainURL := a.extractMainImageURL(ctx)
	detailURLs := a.extractDetailImageURLs(ctx)

	if rec.Category == "" {
		rec.Category = a.breadcrumbCategory(ctx)
	}

	a.persistImages(ctx, rec, extract.Candidates(mainURL, detailURLs))

	return rec, nil
}

// extractName waits for the title to become visible, then resolves it. A
// bounded-wait timeout degrades to the sentinel; any other driver error
// during this mandatory step aborts assembly.
func (a *Assembler) extractName(ctx context.Context) (string, error) {
	if err := a.driver.WaitVisible(ctx, selector.Title); err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			log.Error().Msg("product title not found, recording sentinel")
			return a.NoTitleSentinel, nil
		}
		return "", err
	}

	matches, err := a.driver.Resolve(ctx, selector.Title)
	if err != nil || len(matches) == 0 {
		return a.NoTitleSentinel, nil
	}
	name := strings.TrimSpace(matches[0].Text)
	if name == "" {
		return a.NoTitleSentinel, nil
	}
	return name, nil
}

func (a *Assembler) extractPrice(ctx context.Context) (int, bool) {
	matches, err := a.driver.Resolve(ctx, selector.Price)
	if err != nil || len(matches) == 0 {
		return 0, false
	}
	return extract.Price(matches[0].Text)
}

// extractMainImageURL prefers the page-metadata image tag parsed from the
// captured HTML, then falls back to the live meta-tag locator; promotion of
// the first detail image happens later in extract.Candidates.
func (a *Assembler) extractMainImageURL(ctx context.Context) string {
	html, err := a.driver.OuterHTML(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("could not capture page HTML for metadata")
	} else if og := extract.Meta(html).OGImage; og != "" && extract.UsableImageURL(og) {
		return og
	}

	matches, err := a.driver.Resolve(ctx, selector.MetaImage)
	if err != nil || len(matches) == 0 {
		return ""
	}
	if u := matches[0].Content; extract.UsableImageURL(u) {
		return u
	}
	return ""
}

// extractDetailImageURLs pierces the shadow-rooted description component;
// when that is structurally unavailable it walks the plain-DOM fallback
// locators instead. Both paths end in the same filter.
func (a *Assembler) extractDetailImageURLs(ctx context.Context) []string {
	sources, err := a.driver.DetailImageSources(ctx)
	if err == nil {
		return extract.FilterSources(sources)
	}
	if !errors.Is(err, ErrShadowRootUnavailable) {
		log.Warn().Err(err).Msg("detail image materialization failed")
		return nil
	}

	log.Warn().Msg("shadow root unavailable, using plain-DOM image locators")
	matches, err := a.driver.Resolve(ctx, selector.DetailImages)
	if err != nil {
		log.Warn().Err(err).Msg("plain-DOM image fallback failed")
		return nil
	}
	fallback := make([]extract.Source, len(matches))
	for i, m := range matches {
		fallback[i] = extract.Source{
			Src:             m.Src,
			DataSrc:         m.DataSrc,
			DataOriginalSrc: m.DataOriginalSrc,
		}
	}
	return extract.FilterSources(fallback)
}

// breadcrumbCategory applies the index-1 heuristic: with two or more
// crumbs, the second approximates the parent category. Approximate, not
// authoritative.
func (a *Assembler) breadcrumbCategory(ctx context.Context) string {
	matches, err := a.driver.Resolve(ctx, selector.Breadcrumbs)
	if err != nil {
		return ""
	}
	var crumbs []string
	for _, m := range matches {
		if t := strings.TrimSpace(m.Text); t != "" {
			crumbs = append(crumbs, t)
		}
	}
	if len(crumbs) >= 2 {
		return crumbs[1]
	}
	return ""
}

// persistImages downloads every candidate under the record's product id. A
// single failed download is logged and skipped; MainImagePath is only set
// when the main candidate was actually written.
func (a *Assembler) persistImages(ctx context.Context, rec *models.ProductRecord, candidates []models.ImageCandidate) {
	for _, c := range candidates {
		rel, err := a.store.Save(ctx, rec.ProductID, c.Role, c.URL)
		if err != nil {
			log.Warn().
				Str("product_id", rec.ProductID).
				Str("role", c.Role).
				Err(err).
				Msg("image download failed, skipping")
			continue
		}
		if c.Role == "main" {
			rec.MainImagePath = rel
		} else {
			rec.DetailImagePaths = append(rec.DetailImagePaths, rel)
		}
	}
}
