package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/models"
	"pricewatch/internal/util"
)

type Flipkart struct {
	fetcher PageFetcher
}

func (f *Flipkart) Platform() models.Platform { return models.PlatformFlipkart }

func (f *Flipkart) PreserveOnFailure() bool { return false }

func (f *Flipkart) Extract(ctx context.Context, url string) (Result, error) {
	doc, err := fetchDocument(ctx, f.fetcher, url)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Name:  textOf(doc, "span.B_NuCI, h1._6EBuvT"),
		Brand: textOf(doc, "span.G6XhRU"),
		Price: util.ParsePrice(textOf(doc, "div._30jeq3, div.Nx9bqj")),
		MRP:   util.ParsePrice(textOf(doc, "div._3I9_wc, div.yRaY8j")),
	}
	if result.Name == "" || result.Price == 0 {
		return Result{}, fmt.Errorf("%w: flipkart page %s missing name or price", ErrExtraction, url)
	}
	if result.MRP == 0 {
		result.MRP = result.Price
	}
	return result, nil
}

func (f *Flipkart) ExtractOffers(ctx context.Context, url string) ([]string, error) {
	doc, err := fetchDocument(ctx, f.fetcher, url)
	if err != nil {
		return nil, err
	}

	var offers []string
	doc.Find("li._16eBzU, li.kF1Ml8").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			offers = append(offers, text)
		}
	})
	return offers, nil
}
