// Package selector models the ordered locator fallback used against the
// storefront's unstable markup. Each semantic target owns a fixed priority
// list of strategies; the first strategy that yields a usable match wins and
// later strategies are never consulted or merged in.
package selector

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Target names a semantic thing to locate on a page, independent of the
// CSS that currently happens to match it.
type Target string

const (
	ProductLinks Target = "product_links"
	Title        Target = "title"
	Price        Target = "price"
	MetaImage    Target = "meta_image"
	DetailImages Target = "detail_images" // plain-DOM fallback when the shadow root is unreachable
	Breadcrumbs  Target = "breadcrumbs"
	NextControl  Target = "next_control"
	CategoryTabs Target = "category_tabs"
	TabGroup     Target = "tab_group"
)

// Match is one element matched by a strategy, flattened to the attributes
// the crawler cares about. Field names line up with the collection script
// run inside the browser.
type Match struct {
	Text            string `json:"text"`
	Href            string `json:"href"`
	Content         string `json:"content"`
	Aria            string `json:"aria"`
	Src             string `json:"src"`
	DataSrc         string `json:"dataSrc"`
	DataOriginalSrc string `json:"dataOriginalSrc"`
	Visible         bool   `json:"visible"`
}

// Strategy is a single declarative locator. A strategy "hits" when its query
// returns at least one element that passes the Usable check.
type Strategy struct {
	Query string

	// HrefContains, when set, requires the match's href to contain the
	// marker (e.g. the product detail path segment).
	HrefContains string

	// RequireText requires non-empty trimmed text content.
	RequireText bool

	// RequireVisible requires the element to be rendered (next controls).
	RequireVisible bool

	// RequireSrc requires some image source attribute to be populated.
	RequireSrc bool
}

// Usable reports whether a match satisfies the strategy's attribute
// requirements.
func (s Strategy) Usable(m Match) bool {
	if s.HrefContains != "" && !strings.Contains(m.Href, s.HrefContains) {
		return false
	}
	if s.RequireText && m.Text == "" {
		return false
	}
	if s.RequireVisible && !m.Visible {
		return false
	}
	if s.RequireSrc && m.Src == "" && m.DataSrc == "" && m.DataOriginalSrc == "" {
		return false
	}
	return true
}

// EvalFunc runs one CSS query against a live context (document or shadow
// root) and returns all raw matches. Implementations may fail per-query;
// the resolver treats that as a miss and moves on.
type EvalFunc func(query string) ([]Match, error)

// Resolve tries the target's configured strategies in priority order and
// returns the usable matches of the first strategy that hits, deduplicated
// in first-seen order. An empty result is a legitimate "not found", not an
// error.
func Resolve(target Target, eval EvalFunc) ([]Match, error) {
	_, matches, err := ResolveHit(Strategies(target), eval)
	return matches, err
}

// ResolveHit is Resolve exposed over an explicit strategy list, also
// reporting which strategy hit (callers that need to click what they found
// must reuse the winning query). The returned Strategy is the zero value
// when nothing hit.
func ResolveHit(strategies []Strategy, eval EvalFunc) (Strategy, []Match, error) {
	for _, strat := range strategies {
		raw, err := eval(strat.Query)
		if err != nil {
			// A single bad query (or a dialog surfacing mid-evaluation)
			// must not end the fallback chain.
			log.Debug().Str("query", strat.Query).Err(err).Msg("locator attempt failed")
			continue
		}

		usable := make([]Match, 0, len(raw))
		for _, m := range raw {
			if strat.Usable(m) {
				usable = append(usable, m)
			}
		}
		if len(usable) > 0 {
			return strat, dedupe(usable), nil
		}
	}
	return Strategy{}, nil, nil
}

// dedupe removes repeated matches while preserving first-seen order. A match
// is identified by its most specific populated attribute; matches with no
// identifying attribute at all are kept as-is.
func dedupe(matches []Match) []Match {
	seen := make(map[string]struct{}, len(matches))
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		key := identityKey(m)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

// identityKey picks the attribute that identifies a match. Placeholder hrefs
// ("#", "#none") carry no identity: the storefront stamps them on every
// JS-driven tab, so falling through to the other attributes is what keeps
// distinct tabs distinct. Image sources rank above text because src-only
// matches are the norm for the detail-image locators.
func identityKey(m Match) string {
	if h := m.Href; h != "" && h != "#" && h != "#none" {
		return h
	}
	for _, k := range []string{m.Content, m.DataOriginalSrc, m.DataSrc, m.Src, m.Aria, m.Text} {
		if k != "" {
			return k
		}
	}
	return ""
}
