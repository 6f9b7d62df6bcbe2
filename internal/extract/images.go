package extract

import (
	"strconv"
	"strings"

	"github.com/productsnap/crawl/pkg/models"
)

// Source is one raw image element as read from the page: the rendered src
// plus the lazy-load attributes that hold the unthrottled original. Field
// names line up with the in-browser collection script.
type Source struct {
	Src             string `json:"src"`
	DataSrc         string `json:"dataSrc"`
	DataOriginalSrc string `json:"dataOriginalSrc"`
}

// Best picks the true source for a lazy-loaded image: the original-source
// attribute beats the lazy-load attribute beats the rendered src, which is
// often still a placeholder.
func (s Source) Best() string {
	if s.DataOriginalSrc != "" {
		return s.DataOriginalSrc
	}
	if s.DataSrc != "" {
		return s.DataSrc
	}
	return s.Src
}

// placeholderTerms mark icons, logos, buttons and 1x1 tracking pixels that
// must never become product images. Matched as substrings of the lowercased
// URL.
var placeholderTerms = []string{
	"icon", "logo", "thumb_small", "btn_", "arrow",
	"1x1", "1px", "pixel", "transparent", "blank", "placeholder",
}

// UsableImageURL reports whether a URL can be kept as a product image: it
// must be an absolute http(s) URL and not match the placeholder blocklist.
func UsableImageURL(u string) bool {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	lower := strings.ToLower(u)
	for _, term := range placeholderTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// FilterSources resolves each raw source to its best URL, drops empty,
// relative and placeholder entries and deduplicates by exact URL while
// preserving first-seen order. The result is stable under re-filtering.
func FilterSources(sources []Source) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		u := s.Best()
		if u == "" || !UsableImageURL(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// FilterURLs applies the same keep/drop rule to already-resolved URLs.
func FilterURLs(urls []string) []string {
	sources := make([]Source, len(urls))
	for i, u := range urls {
		sources[i] = Source{Src: u}
	}
	return FilterSources(sources)
}

// Candidates builds the ordered download list for one product. The main
// image (page metadata) always comes first; when no explicit main image
// exists the first detail image is promoted to main. Detail roles are
// numbered in discovery order and never repeat the main URL.
func Candidates(mainURL string, detailURLs []string) []models.ImageCandidate {
	if mainURL == "" && len(detailURLs) > 0 {
		mainURL = detailURLs[0]
	}

	var out []models.ImageCandidate
	if mainURL != "" {
		out = append(out, models.ImageCandidate{Role: "main", URL: mainURL})
	}

	n := 1
	for _, u := range detailURLs {
		if u == mainURL {
			continue
		}
		out = append(out, models.ImageCandidate{Role: "detail" + strconv.Itoa(n), URL: u})
		n++
	}
	return out
}
