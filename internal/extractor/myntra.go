package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/models"
	"pricewatch/internal/util"
)

type Myntra struct {
	fetcher PageFetcher
}

func (m *Myntra) Platform() models.Platform { return models.PlatformMyntra }

func (m *Myntra) PreserveOnFailure() bool { return false }

func (m *Myntra) Extract(ctx context.Context, url string) (Result, error) {
	doc, err := fetchDocument(ctx, m.fetcher, url)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Brand: textOf(doc, "h1.pdp-title"),
		Name:  textOf(doc, "h1.pdp-name"),
		Price: util.ParsePrice(textOf(doc, ".pdp-price strong")),
		MRP:   util.ParsePrice(textOf(doc, ".pdp-mrp s")),
	}
	if result.Name == "" || result.Price == 0 {
		return Result{}, fmt.Errorf("%w: myntra page %s missing name or price", ErrExtraction, url)
	}
	if result.MRP == 0 {
		// No strikethrough MRP means the product is selling at list price.
		result.MRP = result.Price
	}
	return result, nil
}

func (m *Myntra) ExtractOffers(ctx context.Context, url string) ([]string, error) {
	doc, err := fetchDocument(ctx, m.fetcher, url)
	if err != nil {
		return nil, err
	}

	var offers []string
	doc.Find(".pdp-offers-offerLikeBestPrice, .pdp-offers-labelMarkup").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			offers = append(offers, text)
		}
	})
	return offers, nil
}
