// Package dataset persists crawl output: the products.csv table consumed
// by the description generator and dashboard, and the failure log.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/productsnap/crawl/pkg/models"
)

// Column order is a contract with the downstream collaborators; do not
// reorder.
var header = []string{
	"product_id", "name", "price", "image_path", "features",
	"category", "theme", "source_url", "crawled_at",
}

const (
	csvName      = "products.csv"
	failuresName = "failures.txt"

	// featureSep joins detail-image paths into the features column.
	featureSep = "; "

	timeLayout = "2006-01-02T15:04:05"
)

// Writer appends records to <root>/products.csv and failed URLs to
// <root>/failures.txt. With FlushEvery > 0 the CSV is flushed to disk every
// N records so a long-running crawl loses little on interruption.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	csv        *csv.Writer
	failures   *os.File
	root       string
	flushEvery int
	pending    int
	records    int
	failed     int
	closed     bool
}

// NewWriter creates the dataset root and the CSV with its header row.
func NewWriter(root string, flushEvery int) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset root: %w", err)
	}

	f, err := os.Create(filepath.Join(root, csvName))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", csvName, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &Writer{
		file:       f,
		csv:        w,
		root:       root,
		flushEvery: flushEvery,
	}, nil
}

// Append writes one record row.
func (w *Writer) Append(rec *models.ProductRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	price := ""
	if rec.Price != nil {
		price = strconv.Itoa(*rec.Price)
	}

	row := []string{
		rec.ProductID,
		rec.Name,
		price,
		rec.MainImagePath,
		strings.Join(rec.DetailImagePaths, featureSep),
		rec.Category,
		rec.Theme,
		rec.SourceURL,
		rec.CrawledAt.Format(timeLayout),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}

	w.records++
	w.pending++
	if w.flushEvery > 0 && w.pending >= w.flushEvery {
		w.pending = 0
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("flush csv records: %w", err)
		}
		log.Debug().Int("records", w.records).Msg("dataset flushed")
	}
	return nil
}

// AppendFailure writes one failed URL, lazily creating the failure log so a
// clean run leaves none behind.
func (w *Writer) AppendFailure(f models.CrawlFailure) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failures == nil {
		file, err := os.Create(filepath.Join(w.root, failuresName))
		if err != nil {
			return fmt.Errorf("create %s: %w", failuresName, err)
		}
		w.failures = file
	}

	if _, err := fmt.Fprintln(w.failures, f.URL); err != nil {
		return fmt.Errorf("write failure entry: %w", err)
	}
	w.failed++
	return nil
}

// Counts reports how many records and failures were written.
func (w *Writer) Counts() (records, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records, w.failed
}

// Close flushes and closes the underlying files. Subsequent calls are
// no-ops.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.csv.Flush()
	err := w.csv.Error()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if w.failures != nil {
		if cerr := w.failures.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
