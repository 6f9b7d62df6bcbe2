package crawler

import (
	"context"
	"errors"

	"github.com/productsnap/crawl/internal/extract"
	"github.com/productsnap/crawl/internal/selector"
)

var (
	// ErrShadowRootUnavailable signals that the product-description host
	// exposes no shadow root; callers fall back to plain-DOM locators.
	ErrShadowRootUnavailable = errors.New("shadow root unavailable")

	// ErrWaitTimeout is returned by Driver.WaitVisible when the element
	// never became visible within the bounded wait. It resolves to "not
	// found" for every field except navigation readiness.
	ErrWaitTimeout = errors.New("wait for element timed out")
)

// Driver is the single browser session every component serializes on. The
// chromedp implementation lives in internal/browser; tests substitute a
// scripted fake.
type Driver interface {
	// Navigate loads the URL and waits for minimal document readiness.
	Navigate(ctx context.Context, url string) error

	// CurrentURL reports the document's location after client-side
	// pagination moved it.
	CurrentURL(ctx context.Context) (string, error)

	// WaitVisible blocks until the target's primary locator is visible or
	// the bounded wait elapses (ErrWaitTimeout).
	WaitVisible(ctx context.Context, target selector.Target) error

	// Resolve runs the target's locator fallback chain against the live
	// document. An empty result is "not found", not an error.
	Resolve(ctx context.Context, target selector.Target) ([]selector.Match, error)

	// ResolveHit is Resolve plus the strategy that produced the matches,
	// for callers that must click what they located.
	ResolveHit(ctx context.Context, target selector.Target) (selector.Strategy, []selector.Match, error)

	// Click fires a JS click on the index-th element matching query.
	Click(ctx context.Context, query string, index int) error

	// ClickNext locates a visible pagination control via the fallback
	// chain and clicks it; found is false when no control exists.
	ClickNext(ctx context.Context) (found bool, err error)

	// DetailImageSources materializes lazy-loaded images inside the
	// shadow-rooted description component and returns their raw source
	// attributes. Returns ErrShadowRootUnavailable when the component has
	// no shadow root.
	DetailImageSources(ctx context.Context) ([]extract.Source, error)

	// OuterHTML captures the rendered document for metadata parsing.
	OuterHTML(ctx context.Context) (string, error)
}

// AssetStore persists one image under a product namespace and returns its
// dataset-relative path.
type AssetStore interface {
	Save(ctx context.Context, productID, role, rawURL string) (string, error)
}
