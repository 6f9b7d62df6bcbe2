package extract

import (
	"regexp"
	"strings"
)

const maxSlugLen = 32

var (
	productIDPattern = regexp.MustCompile(`/product/(\d+)`)
	slugSeparators   = regexp.MustCompile(`[^a-z0-9]+`)
)

// ProductID derives a stable identifier from a product detail URL: the
// numeric id from the /product/<id> segment when present, otherwise a
// deterministic slug of the whole URL truncated to 32 characters. The id
// doubles as the asset-store namespace, so it must be filesystem safe.
func ProductID(rawURL string) string {
	if m := productIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return Slug(rawURL)
}

// Slug lowercases the input, collapses every non-alphanumeric run into a
// single hyphen and truncates to a fixed maximum length. Equal inputs
// always produce equal slugs.
func Slug(s string) string {
	s = strings.ToLower(s)
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
		s = strings.TrimRight(s, "-")
	}
	return s
}
