package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/productsnap/crawl/internal/crawler"
	"github.com/productsnap/crawl/internal/extract"
	"github.com/productsnap/crawl/internal/selector"
)

// Storefront-specific structure: the product description is rendered by a
// shadow-encapsulated component whose content container lazy-loads images.
const (
	shadowHostQuery      = "app-view-encapsuled-product-desc"
	shadowContainerQuery = "div._editor_contents"
	scrollCycles         = 3
	scrollStep           = 100
)

// ErrNavigationTimeout signals that a page load exceeded the navigation
// timeout. Entry-level; the controller ledgers the URL and moves on.
var ErrNavigationTimeout = errors.New("navigation timed out")

// Page adapts the chromedp session to the crawler.Driver contract.
type Page struct {
	s *Session
}

var _ crawler.Driver = (*Page)(nil)

// NewPage returns the driver view of a session.
func NewPage(s *Session) *Page {
	return &Page{s: s}
}

// Navigate loads the URL and waits for the body to be ready. A dialog that
// interrupts navigation is answered by the guard and the navigation retried
// once.
func (p *Page) Navigate(ctx context.Context, url string) error {
	log.Debug().Str("url", url).Msg("navigating")
	err := p.s.guard.Do(ctx, func() error {
		return p.s.run(ctx, p.s.cfg.NavTimeout,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
	}
	return err
}

// CurrentURL reports the document location.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var u string
	err := p.s.run(ctx, p.s.cfg.NavTimeout, chromedp.Location(&u))
	return u, err
}

// WaitVisible blocks until the target's primary locator is visible, mapping
// the bounded-wait expiry to crawler.ErrWaitTimeout.
func (p *Page) WaitVisible(ctx context.Context, target selector.Target) error {
	strategies := selector.Strategies(target)
	if len(strategies) == 0 {
		return crawler.ErrWaitTimeout
	}
	err := p.s.guard.Do(ctx, func() error {
		return p.s.run(ctx, p.s.cfg.WaitTimeout,
			chromedp.WaitVisible(strategies[0].Query, chromedp.ByQuery),
		)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", crawler.ErrWaitTimeout, strategies[0].Query)
	}
	return err
}

// Resolve runs the target's fallback chain against the live document.
func (p *Page) Resolve(ctx context.Context, target selector.Target) ([]selector.Match, error) {
	_, matches, err := p.ResolveHit(ctx, target)
	return matches, err
}

// ResolveHit resolves and reports the winning strategy. Each locator
// attempt goes through the dialog guard since evaluating a selector can
// surface a blocking dialog.
func (p *Page) ResolveHit(ctx context.Context, target selector.Target) (selector.Strategy, []selector.Match, error) {
	eval := func(query string) ([]selector.Match, error) {
		var matches []selector.Match
		err := p.s.guard.Do(ctx, func() error {
			return p.s.run(ctx, p.s.cfg.WaitTimeout,
				chromedp.Evaluate(matchScript(query), &matches),
			)
		})
		return matches, err
	}
	return selector.ResolveHit(selector.Strategies(target), eval)
}

// Click fires a JS click on the index-th match of query. JS clicks work on
// controls that chromedp's MouseClick cannot reach under fixed overlays.
func (p *Page) Click(ctx context.Context, query string, index int) error {
	var clicked bool
	err := p.s.guard.Do(ctx, func() error {
		return p.s.run(ctx, p.s.cfg.WaitTimeout,
			chromedp.Evaluate(clickScript(query, index), &clicked),
		)
	})
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no element at index %d for %q", index, query)
	}
	return nil
}

// ClickNext locates a visible pagination control and clicks it.
func (p *Page) ClickNext(ctx context.Context) (bool, error) {
	hit, matches, err := p.ResolveHit(ctx, selector.NextControl)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}
	if err := p.Click(ctx, hit.Query, 0); err != nil {
		return false, err
	}
	if err := p.s.run(ctx, p.s.cfg.NavTimeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return false, err
	}
	return true, nil
}

// DetailImageSources drives the scroll cycles that defeat lazy-loading
// inside the shadow-rooted description, then enumerates the image elements.
// Each cycle scrolls the content container incrementally to the bottom,
// pauses for network-triggered loads, returns to the top and pauses again;
// a final settle pause precedes enumeration.
func (p *Page) DetailImageSources(ctx context.Context) ([]extract.Source, error) {
	var present bool
	err := p.s.run(ctx, p.s.cfg.WaitTimeout, chromedp.Evaluate(shadowPresentScript, &present))
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, crawler.ErrShadowRootUnavailable
	}

	cfg := p.s.cfg
	actions := []chromedp.Action{}
	for i := 0; i < scrollCycles; i++ {
		actions = append(actions,
			chromedp.Evaluate(shadowScrollBottomScript, nil),
			chromedp.Sleep(cfg.ScrollPause),
			chromedp.Evaluate(shadowScrollTopScript, nil),
			chromedp.Sleep(cfg.TopPause),
		)
	}
	actions = append(actions, chromedp.Sleep(cfg.SettlePause))

	var sources []extract.Source
	actions = append(actions, chromedp.Evaluate(shadowCollectScript, &sources))

	// The budget must cover every fixed pause plus evaluation overhead.
	budget := time.Duration(scrollCycles)*(cfg.ScrollPause+cfg.TopPause) + cfg.SettlePause + cfg.WaitTimeout
	if err := p.s.run(ctx, budget, actions...); err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(sources)).Msg("shadow images materialized")
	return sources, nil
}

// OuterHTML captures the rendered document.
func (p *Page) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := p.s.run(ctx, p.s.cfg.WaitTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// matchScript flattens every element matching query into the attribute set
// selector.Match carries.
func matchScript(query string) string {
	return fmt.Sprintf(`(() => {
	const els = Array.from(document.querySelectorAll(%s));
	return els.map(el => ({
		text: (el.textContent || '').trim(),
		href: el.href || el.getAttribute('href') || '',
		content: el.getAttribute('content') || '',
		aria: el.getAttribute('aria-label') || '',
		src: el.getAttribute('src') || '',
		dataSrc: el.getAttribute('data-src') || '',
		dataOriginalSrc: el.getAttribute('data-original-src') || '',
		visible: !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length),
	}));
})()`, strconv.Quote(query))
}

func clickScript(query string, index int) string {
	return fmt.Sprintf(`(() => {
	const els = document.querySelectorAll(%s);
	if (els.length <= %d) return false;
	els[%d].click();
	return true;
})()`, strconv.Quote(query), index, index)
}

var shadowPresentScript = fmt.Sprintf(`(() => {
	const host = document.querySelector(%s);
	return !!(host && host.shadowRoot);
})()`, strconv.Quote(shadowHostQuery))

var shadowScrollBottomScript = fmt.Sprintf(`(() => {
	const host = document.querySelector(%s);
	const root = host && host.shadowRoot;
	if (!root) return false;
	const container = root.querySelector(%s);
	if (!container) return false;
	const height = container.scrollHeight;
	for (let y = 0; y < height; y += %d) { container.scrollTop = y; }
	container.scrollTop = height;
	return true;
})()`, strconv.Quote(shadowHostQuery), strconv.Quote(shadowContainerQuery), scrollStep)

var shadowScrollTopScript = fmt.Sprintf(`(() => {
	const host = document.querySelector(%s);
	const root = host && host.shadowRoot;
	if (!root) return false;
	const container = root.querySelector(%s);
	if (!container) return false;
	container.scrollTop = 0;
	return true;
})()`, strconv.Quote(shadowHostQuery), strconv.Quote(shadowContainerQuery))

var shadowCollectScript = fmt.Sprintf(`(() => {
	const host = document.querySelector(%s);
	const root = host && host.shadowRoot;
	if (!root) return [];
	const container = root.querySelector(%s);
	if (!container) return [];
	return Array.from(container.querySelectorAll('img')).map(img => ({
		src: img.getAttribute('src') || '',
		dataSrc: img.getAttribute('data-src') || '',
		dataOriginalSrc: img.getAttribute('data-original-src') || '',
	}));
})()`, strconv.Quote(shadowHostQuery), strconv.Quote(shadowContainerQuery))
