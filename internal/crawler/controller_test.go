package crawler

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/productsnap/crawl/internal/extract"
	"github.com/productsnap/crawl/internal/selector"
	"github.com/productsnap/crawl/pkg/models"
)

// fakeProduct scripts everything a detail-page visit can observe.
type fakeProduct struct {
	title        string
	priceText    string
	html         string
	metaImage    string // served by the live meta-tag locator
	sources      []extract.Source
	shadowErr    error
	plainSources []extract.Source
	breadcrumbs  []string
	navErr       error
}

type fakeListing struct {
	links []string
	next  string // URL the next control leads to, "" when last page
}

type fakeSite struct {
	listings map[string]*fakeListing
	products map[string]*fakeProduct
	tabGroup []selector.Match
	catTabs  []selector.Match
}

// fakeDriver walks the scripted site, recording every navigation.
type fakeDriver struct {
	site    *fakeSite
	current string
	visits  []string
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.visits = append(d.visits, url)
	if p, ok := d.site.products[url]; ok && p.navErr != nil {
		return p.navErr
	}
	d.current = url
	return nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	return d.current, nil
}

func (d *fakeDriver) WaitVisible(ctx context.Context, target selector.Target) error {
	if target == selector.Title {
		if p, ok := d.site.products[d.current]; ok && p.title == "" {
			return ErrWaitTimeout
		}
	}
	return nil
}

func (d *fakeDriver) Resolve(ctx context.Context, target selector.Target) ([]selector.Match, error) {
	_, matches, err := d.ResolveHit(ctx, target)
	return matches, err
}

func (d *fakeDriver) ResolveHit(ctx context.Context, target selector.Target) (selector.Strategy, []selector.Match, error) {
	hit := selector.Strategy{Query: string(target)}
	switch target {
	case selector.ProductLinks:
		listing, ok := d.site.listings[d.current]
		if !ok {
			return selector.Strategy{}, nil, nil
		}
		matches := make([]selector.Match, len(listing.links))
		for i, link := range listing.links {
			matches[i] = selector.Match{Href: link}
		}
		return hit, matches, nil
	case selector.Title:
		if p, ok := d.site.products[d.current]; ok && p.title != "" {
			return hit, []selector.Match{{Text: p.title}}, nil
		}
	case selector.Price:
		if p, ok := d.site.products[d.current]; ok && p.priceText != "" {
			return hit, []selector.Match{{Text: p.priceText}}, nil
		}
	case selector.MetaImage:
		if p, ok := d.site.products[d.current]; ok && p.metaImage != "" {
			return hit, []selector.Match{{Content: p.metaImage}}, nil
		}
	case selector.Breadcrumbs:
		if p, ok := d.site.products[d.current]; ok {
			matches := make([]selector.Match, len(p.breadcrumbs))
			for i, crumb := range p.breadcrumbs {
				matches[i] = selector.Match{Text: crumb}
			}
			return hit, matches, nil
		}
	case selector.DetailImages:
		if p, ok := d.site.products[d.current]; ok {
			matches := make([]selector.Match, len(p.plainSources))
			for i, s := range p.plainSources {
				matches[i] = selector.Match{Src: s.Src, DataSrc: s.DataSrc, DataOriginalSrc: s.DataOriginalSrc}
			}
			return hit, matches, nil
		}
	case selector.TabGroup:
		return hit, d.site.tabGroup, nil
	case selector.CategoryTabs:
		return hit, d.site.catTabs, nil
	}
	return selector.Strategy{}, nil, nil
}

func (d *fakeDriver) Click(ctx context.Context, query string, index int) error {
	return nil
}

func (d *fakeDriver) ClickNext(ctx context.Context) (bool, error) {
	listing, ok := d.site.listings[d.current]
	if !ok || listing.next == "" {
		return false, nil
	}
	d.current = listing.next
	return true, nil
}

func (d *fakeDriver) DetailImageSources(ctx context.Context) ([]extract.Source, error) {
	p, ok := d.site.products[d.current]
	if !ok {
		return nil, ErrShadowRootUnavailable
	}
	if p.shadowErr != nil {
		return nil, p.shadowErr
	}
	return p.sources, nil
}

func (d *fakeDriver) OuterHTML(ctx context.Context) (string, error) {
	if p, ok := d.site.products[d.current]; ok {
		return p.html, nil
	}
	return "<html></html>", nil
}

type savedAsset struct {
	productID, role, url string
}

type fakeStore struct {
	saves    []savedAsset
	failURLs map[string]bool
}

func (s *fakeStore) Save(ctx context.Context, productID, role, rawURL string) (string, error) {
	if s.failURLs[rawURL] {
		return "", errors.New("download refused")
	}
	s.saves = append(s.saves, savedAsset{productID, role, rawURL})
	return path.Join("images", productID, role+".jpg"), nil
}

func productHTML(mainImage string) string {
	return `<html><head><meta property="og:image" content="` + mainImage + `"></head></html>`
}

func scriptedProduct(id string) *fakeProduct {
	return &fakeProduct{
		title:     "상품 " + id,
		priceText: id + "9,000원",
		html:      productHTML("https://cdn.example.com/goods/" + id + "/main.jpg"),
		sources: []extract.Source{
			{DataOriginalSrc: "https://cdn.example.com/goods/" + id + "/d1.jpg"},
			{Src: "https://cdn.example.com/goods/" + id + "/d2.jpg"},
		},
		breadcrumbs: []string{"홈", "디저트", "초콜릿"},
	}
}

func scriptedSite(listingURL string, ids ...string) (*fakeSite, []string) {
	site := &fakeSite{
		listings: map[string]*fakeListing{listingURL: {}},
		products: map[string]*fakeProduct{},
	}
	links := make([]string, len(ids))
	for i, id := range ids {
		link := "https://shop.example.com/product/" + id
		links[i] = link
		site.products[link] = scriptedProduct(id)
	}
	site.listings[listingURL].links = links
	return site, links
}

func newTestController(site *fakeSite, opts Options) (*Controller, *fakeDriver, *fakeStore) {
	driver := &fakeDriver{site: site}
	store := &fakeStore{failURLs: map[string]bool{}}
	assembler := NewAssembler(driver, store, "제목 없음")
	c := NewController(driver, assembler, opts)
	c.SetSleep(func(time.Duration) {})
	return c, driver, store
}

func TestRun_ListingEndToEnd(t *testing.T) {
	listing := "https://shop.example.com/ranking"
	site, links := scriptedSite(listing, "101", "102", "103")

	c, _, store := newTestController(site, Options{MaxItemsPerPage: 3})
	records, failures, err := c.Run(context.Background(), []Entry{{URL: listing, Kind: EntryListing}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failure ledger not empty: %+v", failures)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	for i, rec := range records {
		id := []string{"101", "102", "103"}[i]
		if rec.ProductID != id {
			t.Errorf("record %d id = %q, want %q", i, rec.ProductID, id)
		}
		if rec.SourceURL != links[i] {
			t.Errorf("record %d source = %q", i, rec.SourceURL)
		}
		if rec.Price == nil {
			t.Errorf("record %d has no price", i)
		}
		if rec.MainImagePath != path.Join("images", id, "main.jpg") {
			t.Errorf("record %d main image = %q", i, rec.MainImagePath)
		}
		if len(rec.DetailImagePaths) != 2 {
			t.Errorf("record %d detail paths = %v, want 2", i, rec.DetailImagePaths)
		}
		if rec.Category != "디저트" {
			t.Errorf("record %d category = %q", i, rec.Category)
		}
	}

	// 3 images per product: main plus two details.
	if len(store.saves) != 9 {
		t.Errorf("saved %d assets, want 9", len(store.saves))
	}
}

func TestRun_OneBadProductDoesNotHaltTheRun(t *testing.T) {
	listing := "https://shop.example.com/ranking"
	site, links := scriptedSite(listing, "201", "202", "203")
	site.products[links[1]].navErr = errors.New("connection reset")

	c, _, _ := newTestController(site, Options{MaxItemsPerPage: 3})
	records, failures, err := c.Run(context.Background(), []Entry{{URL: listing}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	if failures[0].URL != links[1] {
		t.Errorf("failure URL = %q, want %q", failures[0].URL, links[1])
	}
	if failures[0].ErrorSummary == "" {
		t.Error("failure has no error summary")
	}
}

func TestRun_PaginationFollowsNextControl(t *testing.T) {
	page1 := "https://shop.example.com/list"
	page2 := "https://shop.example.com/list?page=2"

	site, _ := scriptedSite(page1, "301")
	site.listings[page1].next = page2
	site.listings[page2] = &fakeListing{links: []string{"https://shop.example.com/product/302"}}
	site.products["https://shop.example.com/product/302"] = scriptedProduct("302")

	c, _, _ := newTestController(site, Options{MaxPagesPerEntry: 2, MaxItemsPerPage: 5})
	records, failures, err := c.Run(context.Background(), []Entry{{URL: page1}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures: %+v", failures)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records across 2 pages, want 2", len(records))
	}
	if records[0].ProductID != "301" || records[1].ProductID != "302" {
		t.Errorf("record order = %q, %q", records[0].ProductID, records[1].ProductID)
	}
}

func TestRun_PaginationStopsWhenNoNextControl(t *testing.T) {
	listing := "https://shop.example.com/list"
	site, _ := scriptedSite(listing, "401")

	c, driver, _ := newTestController(site, Options{MaxPagesPerEntry: 5, MaxItemsPerPage: 5})
	records, _, err := c.Run(context.Background(), []Entry{{URL: listing}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	// The single page must not be harvested five times.
	visits := 0
	for _, v := range driver.visits {
		if strings.Contains(v, "/product/401") {
			visits++
		}
	}
	if visits != 1 {
		t.Errorf("product visited %d times, want 1", visits)
	}
}

func TestRun_MaxItemsBoundsHarvest(t *testing.T) {
	listing := "https://shop.example.com/ranking"
	site, _ := scriptedSite(listing, "501", "502", "503", "504")

	c, _, _ := newTestController(site, Options{MaxItemsPerPage: 2})
	records, _, err := c.Run(context.Background(), []Entry{{URL: listing}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestRun_PausesStayInsideConfiguredWindow(t *testing.T) {
	listing := "https://shop.example.com/ranking"
	site, _ := scriptedSite(listing, "601", "602", "603")

	c, _, _ := newTestController(site, Options{
		MaxItemsPerPage: 3,
		DelayMin:        100 * time.Millisecond,
		DelayMax:        200 * time.Millisecond,
	})

	var pauses []time.Duration
	c.SetSleep(func(d time.Duration) { pauses = append(pauses, d) })

	if _, _, err := c.Run(context.Background(), []Entry{{URL: listing}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One pause after the listing load plus one before each product visit.
	if len(pauses) < 3 {
		t.Fatalf("recorded %d pauses, want at least 3", len(pauses))
	}
	for i, d := range pauses {
		if d < 100*time.Millisecond || d > 200*time.Millisecond {
			t.Errorf("pause %d = %v, outside [100ms, 200ms]", i, d)
		}
	}
}

func TestRun_UntitledPolicy(t *testing.T) {
	listing := "https://shop.example.com/ranking"

	build := func() *fakeSite {
		site, links := scriptedSite(listing, "701")
		site.products[links[0]].title = ""
		return site
	}

	t.Run("kept by default", func(t *testing.T) {
		c, _, _ := newTestController(build(), Options{MaxItemsPerPage: 1, NoTitleSentinel: "제목 없음"})
		records, failures, err := c.Run(context.Background(), []Entry{{URL: listing}})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(records) != 1 || records[0].Name != "제목 없음" {
			t.Fatalf("records = %+v, want one sentinel-named record", records)
		}
		if len(failures) != 0 {
			t.Errorf("failures = %+v", failures)
		}
	})

	t.Run("skipped when policy set", func(t *testing.T) {
		c, _, _ := newTestController(build(), Options{
			MaxItemsPerPage: 1,
			NoTitleSentinel: "제목 없음",
			SkipUntitled:    true,
		})
		records, failures, err := c.Run(context.Background(), []Entry{{URL: listing}})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("records = %+v, want none", records)
		}
		if len(failures) != 1 {
			t.Errorf("failures = %+v, want the skipped product", failures)
		}
	})
}

func TestRun_CategoriesEntry(t *testing.T) {
	hub := "https://shop.example.com/home"
	catA := "https://shop.example.com/home/category/1"
	catB := "https://shop.example.com/home/category/2"

	site := &fakeSite{
		listings: map[string]*fakeListing{
			hub:  {},
			catA: {links: []string{"https://shop.example.com/product/801"}},
			catB: {links: []string{"https://shop.example.com/product/802"}},
		},
		products: map[string]*fakeProduct{
			"https://shop.example.com/product/801": scriptedProduct("801"),
			"https://shop.example.com/product/802": scriptedProduct("802"),
		},
		tabGroup: []selector.Match{{Text: "브랜드"}, {Text: "카테고리"}},
		catTabs: []selector.Match{
			{Aria: "케이크", Href: "/home/category/1"},
			{Aria: "꽃배달", Href: catB},
		},
	}

	c, _, _ := newTestController(site, Options{
		MaxItemsPerPage: 5,
		BaseURL:         "https://shop.example.com",
	})
	records, failures, err := c.Run(context.Background(), []Entry{{URL: hub, Kind: EntryCategories}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures: %+v", failures)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Category hint from the tab label wins over the breadcrumb heuristic.
	if records[0].Category != "케이크" {
		t.Errorf("record 0 category = %q, want tab label", records[0].Category)
	}
	if records[1].Category != "꽃배달" {
		t.Errorf("record 1 category = %q, want tab label", records[1].Category)
	}
}

func TestRun_ContextCancellationStopsTheRun(t *testing.T) {
	listing := "https://shop.example.com/ranking"
	site, _ := scriptedSite(listing, "901", "902", "903")

	ctx, cancel := context.WithCancel(context.Background())

	c, _, _ := newTestController(site, Options{MaxItemsPerPage: 3})
	c.OnProduct = func(string) { cancel() }

	records, _, _ := c.Run(ctx, []Entry{{URL: listing}})
	if len(records) >= 3 {
		t.Errorf("got %d records, cancellation should have cut the run short", len(records))
	}
}

func TestRun_EntryLevelFailureIsLedgered(t *testing.T) {
	listing := "https://shop.example.com/broken"
	site := &fakeSite{
		listings: map[string]*fakeListing{},
		products: map[string]*fakeProduct{
			listing: {navErr: errors.New("502 from edge")},
		},
	}

	c, _, _ := newTestController(site, Options{MaxItemsPerPage: 1})
	records, failures, err := c.Run(context.Background(), []Entry{{URL: listing}})
	if err != nil {
		t.Fatalf("Run must outlive a bad entry, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v", records)
	}
	if len(failures) != 1 || failures[0].URL != listing {
		t.Errorf("failures = %+v, want the entry URL", failures)
	}
}

func TestRun_StreamsResultsToHooks(t *testing.T) {
	listing := "https://shop.example.com/ranking"
	site, links := scriptedSite(listing, "111", "112")
	site.products[links[1]].navErr = errors.New("gone")

	c, _, _ := newTestController(site, Options{MaxItemsPerPage: 2})

	var streamedRecords, streamedFailures, attempted int
	c.OnProduct = func(string) { attempted++ }
	c.OnRecord = func(rec *models.ProductRecord) { streamedRecords++ }
	c.OnFailure = func(f models.CrawlFailure) { streamedFailures++ }

	records, failures, err := c.Run(context.Background(), []Entry{{URL: listing}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if streamedRecords != len(records) {
		t.Errorf("streamed %d records, ledger has %d", streamedRecords, len(records))
	}
	if streamedFailures != len(failures) {
		t.Errorf("streamed %d failures, ledger has %d", streamedFailures, len(failures))
	}
	if attempted != 2 {
		t.Errorf("OnProduct fired %d times, want 2", attempted)
	}
}
