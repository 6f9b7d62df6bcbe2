package models

import "time"

// ProductRecord is the normalized result of one product detail-page visit.
// A record is assembled once and never mutated afterwards; the crawl
// controller only appends it to the run's result sequence.
type ProductRecord struct {
	// ProductID is derived from the numeric id in the canonical detail URL,
	// or a slug of the URL when no numeric segment exists. It is stable for
	// a given SourceURL across runs and doubles as the asset namespace.
	ProductID string `json:"product_id"`

	// Name may be the configured "no title" sentinel when extraction failed.
	Name string `json:"name"`

	// Price in the smallest currency unit. Nil when the page exposed no
	// parsable price (absence, not zero).
	Price *int `json:"price,omitempty"`

	// MainImagePath is empty or a dataset-relative path that was actually
	// written by the asset store.
	MainImagePath string `json:"image_path"`

	// DetailImagePaths are dataset-relative paths in discovery order.
	DetailImagePaths []string `json:"detail_image_paths,omitempty"`

	Category  string    `json:"category"`
	Theme     string    `json:"theme"`
	SourceURL string    `json:"source_url"`
	CrawledAt time.Time `json:"crawled_at"`
}

// ImageCandidate pairs a storage role with an absolute image URL resolved
// from the page. The main role, when present, always precedes detail roles.
type ImageCandidate struct {
	Role string `json:"role"` // "main", "detail1", "detail2", ...
	URL  string `json:"url"`
}

// CrawlFailure records a product URL that could not be fully processed.
// Failures never abort the run; they are collected in the failure ledger.
type CrawlFailure struct {
	URL          string `json:"url"`
	ErrorSummary string `json:"error_summary"`
}
