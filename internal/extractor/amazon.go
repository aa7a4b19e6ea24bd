package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/models"
	"pricewatch/internal/util"
)

type Amazon struct {
	fetcher PageFetcher
}

func (a *Amazon) Platform() models.Platform { return models.PlatformAmazon }

// Amazon serves interstitial robot-check pages that parse as zero prices.
// Treat exhausted retries as "likely blocked": keep every stored field.
func (a *Amazon) PreserveOnFailure() bool { return true }

func (a *Amazon) Extract(ctx context.Context, url string) (Result, error) {
	doc, err := fetchDocument(ctx, a.fetcher, url)
	if err != nil {
		return Result{}, err
	}

	if doc.Find("#captchacharacters").Length() > 0 {
		return Result{}, fmt.Errorf("%w: amazon served a captcha for %s", ErrExtraction, url)
	}

	result := Result{
		Name:  textOf(doc, "#productTitle"),
		Brand: strings.TrimPrefix(textOf(doc, "#bylineInfo"), "Brand: "),
		Price: util.ParsePrice(textOf(doc, "#corePriceDisplay_desktop_feature_div .a-price-whole")),
		MRP:   util.ParsePrice(textOf(doc, "#corePriceDisplay_desktop_feature_div .basisPrice .a-offscreen")),
	}
	if result.Price == 0 {
		result.Price = util.ParsePrice(textOf(doc, ".a-price .a-offscreen"))
	}
	if result.Name == "" || result.Price == 0 {
		return Result{}, fmt.Errorf("%w: amazon page %s missing name or price", ErrExtraction, url)
	}
	if result.MRP == 0 {
		result.MRP = result.Price
	}
	return result, nil
}

func (a *Amazon) ExtractOffers(ctx context.Context, url string) ([]string, error) {
	doc, err := fetchDocument(ctx, a.fetcher, url)
	if err != nil {
		return nil, err
	}

	var offers []string
	doc.Find("#sopp-container .a-section .offers-items-content, .promoPriceBlockMessage span").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			offers = append(offers, text)
		}
	})
	return offers, nil
}
