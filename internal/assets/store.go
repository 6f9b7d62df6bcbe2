// Package assets persists downloaded product images under a per-product
// namespace, returning dataset-relative paths so records stay portable
// across machines.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/productsnap/crawl/internal/ratelimit"
	"github.com/productsnap/crawl/internal/retry"
)

// ErrAssetDownloadFailed wraps any network or IO failure while saving an
// image. Non-fatal to record assembly; the caller logs and skips.
var ErrAssetDownloadFailed = errors.New("asset download failed")

// DefaultExtension is used when the image URL carries no recognizable file
// extension.
const DefaultExtension = ".jpg"

// Store downloads images synchronously with a bounded timeout and writes
// them under <root>/images/<productID>/<role><ext>. Saving the same
// (productID, role) twice overwrites the same path, which is what makes
// re-crawls idempotent.
type Store struct {
	root      string
	client    *http.Client
	limiter   ratelimit.RateLimiter
	retryCfg  retry.Config
	userAgent string
}

// NewStore creates a store rooted at the dataset directory. The cookie jar
// matters: the storefront's CDN sets a session cookie on the first hit and
// throttles jarless clients.
func NewStore(root string, timeout time.Duration, userAgent string, limiter ratelimit.RateLimiter) (*Store, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := &http.Client{
		Timeout: timeout,
		Jar:     jar,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Store{
		root:      root,
		client:    client,
		limiter:   limiter,
		retryCfg:  retry.DefaultConfig(),
		userAgent: userAgent,
	}, nil
}

// Save downloads rawURL and persists it as <role><ext> inside the product's
// image directory, returning the dataset-relative path (always with forward
// slashes). Any failure is reported as ErrAssetDownloadFailed.
func (s *Store) Save(ctx context.Context, productID, role, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", ErrAssetDownloadFailed, rawURL)
	}

	filename := role + extensionOf(u)
	dir := filepath.Join(s.root, "images", productID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrAssetDownloadFailed, dir, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return "", fmt.Errorf("%w: %v", ErrAssetDownloadFailed, err)
		}
	}

	dest := filepath.Join(dir, filename)
	err = retry.WithRetry(ctx, s.retryCfg, func() error {
		return s.download(ctx, rawURL, dest)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssetDownloadFailed, err)
	}

	rel := path.Join("images", productID, filename)
	log.Debug().Str("url", rawURL).Str("path", rel).Msg("image saved")
	return rel, nil
}

// download streams one response body to dest, removing partial files on
// write failure.
func (s *Store) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return retry.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

// extensionOf picks the image extension from the URL path, defaulting when
// missing or implausibly long (CDN cache-buster suffixes).
func extensionOf(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		return DefaultExtension
	}
	return ext
}
