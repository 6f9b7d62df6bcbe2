package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMeta is the subset of head metadata the assembler consumes.
type PageMeta struct {
	OGImage     string
	OGTitle     string
	Description string
}

// Meta parses the captured outer HTML and pulls the Open Graph tags. The
// og:image is the preferred main image for a product; a parse failure just
// yields empty metadata since every meta field is optional.
func Meta(html string) PageMeta {
	var meta PageMeta

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		property, _ := sel.Attr("property")
		name, _ := sel.Attr("name")
		content, _ := sel.Attr("content")
		if content == "" {
			return
		}
		switch {
		case property == "og:image" && meta.OGImage == "":
			meta.OGImage = content
		case property == "og:title" && meta.OGTitle == "":
			meta.OGTitle = content
		case name == "description" && meta.Description == "":
			meta.Description = content
		}
	})

	return meta
}
