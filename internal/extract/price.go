// Package extract holds the pure extraction helpers shared by the record
// assembler: price parsing, product id derivation, image candidate
// filtering and page-metadata lookup. Nothing here touches the browser.
package extract

import (
	"regexp"
	"strconv"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Price parses a displayed price like "12,900원" by stripping every
// non-digit rune. ok is false when no digits remain ("", "무료"); an
// unparsable price is absent, never zero.
func Price(text string) (value int, ok bool) {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		// Overflow on absurdly long digit runs; treat as absent.
		return 0, false
	}
	return v, true
}
