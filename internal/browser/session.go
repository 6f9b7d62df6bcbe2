// Package browser owns the single headless Chrome session the crawl
// serializes on: allocator setup, navigation readiness, dialog
// interception, selector evaluation and shadow-content materialization.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ErrNoSession signals a command issued after the session was torn down.
var ErrNoSession = errors.New("browser session closed")

// SessionConfig carries the browser-facing subset of the run configuration.
type SessionConfig struct {
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	WindowSize string

	NavTimeout  time.Duration
	WaitTimeout time.Duration
	ScrollPause time.Duration
	TopPause    time.Duration
	SettlePause time.Duration

	AuthDialogMarker string
}

// Session is one live Chrome instance. It must be torn down exactly once
// via Close, even on abnormal exit paths.
type Session struct {
	ctx       context.Context
	guard     *DialogGuard
	cfg       SessionConfig
	cancelers []context.CancelFunc
	closeOnce sync.Once
}

// webdriverMask hides the automation flag the storefront sniffs for.
const webdriverMask = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// NewSession launches Chrome with the stealth flag set the storefront
// tolerates and attaches the dialog guard before any navigation happens.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.WindowSize == "" {
		cfg.WindowSize = "1440,900"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", cfg.WindowSize),
		chromedp.UserAgent(cfg.UserAgent),
	}
	if chromePath := FindChrome(cfg.ChromePath); chromePath != "" {
		opts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, opts...)
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:       browserCtx,
		guard:     NewDialogGuard(cfg.AuthDialogMarker),
		cfg:       cfg,
		cancelers: []context.CancelFunc{browserCancel, allocCancel},
	}
	s.guard.Attach(browserCtx)

	// Start the browser and mask the webdriver flag on every document
	// before any site script runs.
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(webdriverMask).Do(ctx)
			return err
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser session: %w", err)
	}

	log.Info().Bool("headless", cfg.Headless).Msg("browser session started")
	return s, nil
}

// Guard exposes the session's dialog guard.
func (s *Session) Guard() *DialogGuard {
	return s.guard
}

// Close tears the session down. Safe to call multiple times; only the
// first call does anything.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, cancel := range s.cancelers {
			cancel()
		}
		log.Info().Msg("browser session closed")
	})
}

// run executes actions under the session's command timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ctx.Err() != nil {
		return ErrNoSession
	}
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tctx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}
