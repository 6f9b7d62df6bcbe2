package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// DialogGuard intercepts native browser dialogs before they can block a
// driver command. Chrome parks every command behind an open javascript
// dialog, so the guard answers each one the moment it opens: dialogs whose
// text carries the authentication marker are dismissed (the action needs a
// logged-in session the crawler intentionally does not have and accepting
// would hang on a login redirect), everything else is informational and
// accepted.
type DialogGuard struct {
	authMarker string

	mu       sync.Mutex
	handled  uint64
	observed uint64 // snapshot consumed by HandledSince
	lastText string
}

// NewDialogGuard creates a guard that dismisses dialogs containing
// authMarker and accepts all others.
func NewDialogGuard(authMarker string) *DialogGuard {
	return &DialogGuard{authMarker: authMarker}
}

// Accept decides the response for a dialog with the given text: true to
// accept, false to dismiss.
func Accept(text, authMarker string) bool {
	return authMarker == "" || !strings.Contains(text, authMarker)
}

// Attach subscribes the guard to the browser target's dialog events. Must
// be called once per chromedp context, before the first navigation.
func (g *DialogGuard) Attach(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		dlg, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}

		accept := Accept(dlg.Message, g.authMarker)
		log.Info().Str("text", dlg.Message).Bool("accept", accept).Msg("browser dialog intercepted")

		g.record(dlg.Message)

		// Must run on a separate goroutine: the event arrives on the
		// target's message loop and answering synchronously deadlocks.
		go func() {
			if err := chromedp.Run(ctx, page.HandleJavaScriptDialog(accept)); err != nil {
				log.Warn().Err(err).Msg("failed to answer browser dialog")
			}
		}()
	})
}

func (g *DialogGuard) record(text string) {
	g.mu.Lock()
	g.handled++
	g.lastText = text
	g.mu.Unlock()
}

// HandledSince reports whether any dialog was handled since the previous
// call. This is the non-blocking probe callers use to decide whether an
// operation was interrupted mid-flight.
func (g *DialogGuard) HandledSince() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	fired := g.handled > g.observed
	g.observed = g.handled
	return fired
}

// LastText returns the text of the most recently handled dialog.
func (g *DialogGuard) LastText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastText
}

// Do runs op, and when a dialog fired during it and op failed, retries it
// exactly once. Dialogs that open mid-command abort that command in the
// driver even though the guard answers them; the single retry makes the
// interruption invisible to callers.
func (g *DialogGuard) Do(ctx context.Context, op func() error) error {
	g.HandledSince() // drain stale state

	err := op()
	if err == nil {
		return nil
	}
	if !g.HandledSince() {
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	log.Debug().Err(err).Msg("operation interrupted by dialog, retrying once")
	return op()
}
