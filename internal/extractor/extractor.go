// Package extractor holds the per-platform scrape collaborators. Each
// extractor knows the DOM of one storefront and nothing about scanning,
// storage or notifications. Selectors are brittle by nature; everything
// above them depends only on the Extractor interface.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/models"
)

// ErrExtraction wraps every scrape-level failure: blocked, malformed or
// missing data.
var ErrExtraction = errors.New("extraction failed")

// Result carries the normalized fields a successful scrape produces.
type Result struct {
	Name  string
	Brand string
	Price float64
	MRP   float64
}

// PageFetcher renders a URL and returns its HTML. Reset discards the
// underlying browser state after a wedged page.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
	Reset()
}

type Extractor interface {
	Platform() models.Platform
	Extract(ctx context.Context, url string) (Result, error)
	ExtractOffers(ctx context.Context, url string) ([]string, error)

	// PreserveOnFailure reports whether exhausted retries must leave every
	// stored field untouched, including lastChecked. Platforms that
	// actively block automation serve pages that read as zero prices; for
	// those a bad read must never flip a product to "above target".
	PreserveOnFailure() bool
}

// Registry maps platforms to their extractors.
type Registry struct {
	byPlatform map[models.Platform]Extractor
}

func NewRegistry(fetcher PageFetcher) *Registry {
	r := &Registry{byPlatform: make(map[models.Platform]Extractor)}
	for _, e := range []Extractor{
		&Myntra{fetcher: fetcher},
		&Amazon{fetcher: fetcher},
		&Flipkart{fetcher: fetcher},
	} {
		r.byPlatform[e.Platform()] = e
	}
	return r
}

func (r *Registry) For(p models.Platform) (Extractor, bool) {
	e, ok := r.byPlatform[p]
	return e, ok
}

// DetectPlatform infers the platform from a product URL's host.
func DetectPlatform(rawURL string) models.Platform {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return models.PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	switch {
	case strings.Contains(host, "myntra."):
		return models.PlatformMyntra
	case strings.Contains(host, "amazon."):
		return models.PlatformAmazon
	case strings.Contains(host, "flipkart."):
		return models.PlatformFlipkart
	default:
		return models.PlatformUnknown
	}
}

// fetchDocument renders a page and parses it for selector queries.
func fetchDocument(ctx context.Context, fetcher PageFetcher, url string) (*goquery.Document, error) {
	html, err := fetcher.FetchHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrExtraction, url, err)
	}
	return doc, nil
}

func textOf(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
