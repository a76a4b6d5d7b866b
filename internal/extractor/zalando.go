package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricepulse/backend/internal/extractor/browser"
	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
)

const zalandoWebsiteName = "zalando"

// ZalandoExtractor scrapes prices from Zalando product pages. The pages are
// JS-rendered, so the extraction goes through the shared browser pool
// instead of a plain HTTP fetch.
type ZalandoExtractor struct {
	pool *browser.Pool
}

// NewZalandoExtractor creates a new Zalando extractor
func NewZalandoExtractor(pool *browser.Pool) *ZalandoExtractor {
	return &ZalandoExtractor{pool: pool}
}

// WebsiteName returns the website identifier this extractor is keyed by
func (e *ZalandoExtractor) WebsiteName() string { return zalandoWebsiteName }

// Extract renders the product page in a pooled browser page and parses the
// embedded JSON-LD product block.
func (e *ZalandoExtractor) Extract(ctx context.Context, product model.ProductDescriptor) (model.PriceReading, error) {
	page, err := e.pool.Acquire(ctx)
	if err != nil {
		return model.PriceReading{}, NewExtractError(zalandoWebsiteName, "acquire browser page", err)
	}
	defer e.pool.Release(page)

	bound := page.Context(ctx)
	if err := bound.Navigate(product.URL); err != nil {
		return model.PriceReading{}, NewExtractError(zalandoWebsiteName, "navigate", err)
	}
	if err := bound.WaitLoad(); err != nil {
		return model.PriceReading{}, NewExtractError(zalandoWebsiteName, "wait for page load", err)
	}

	html, err := bound.HTML()
	if err != nil {
		return model.PriceReading{}, NewExtractError(zalandoWebsiteName, "read rendered HTML", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.PriceReading{}, NewExtractError(zalandoWebsiteName, "parse rendered HTML", err)
	}

	price, name, found := findProductOffer(doc)
	if !found {
		// No product JSON-LD means this is a listing, error or bot-wall page.
		return model.PriceReading{}, NewExtractError(zalandoWebsiteName, "verify product page", ErrWrongPageType)
	}
	if name == "" {
		name = product.ProductName
	}

	return model.PriceReading{
		ProductID:     product.ProductID,
		ReadingAt:     time.Now(),
		CurrentPrice:  price,
		PreviousPrice: product.PreviousPrice,
		IsOnSale:      hasStruckThroughPrice(doc),
		URL:           product.URL,
		ProductName:   name,
		WebsiteName:   zalandoWebsiteName,
	}, nil
}

type ldProduct struct {
	Type   string          `json:"@type"`
	Name   string          `json:"name"`
	Offers json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price json.Number `json:"price"`
}

// findProductOffer scans the JSON-LD script blocks for a Product offer and
// returns its price and listed name. Offers may be a single object or an
// array.
func findProductOffer(doc *goquery.Document) (decimal.Decimal, string, bool) {
	var price decimal.Decimal
	var name string
	var found bool

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var p ldProduct
		if err := json.Unmarshal([]byte(s.Text()), &p); err != nil || p.Type != "Product" || len(p.Offers) == 0 {
			return true
		}

		var offer ldOffer
		if err := json.Unmarshal(p.Offers, &offer); err != nil {
			var offers []ldOffer
			if err := json.Unmarshal(p.Offers, &offers); err != nil || len(offers) == 0 {
				return true
			}
			offer = offers[0]
		}

		parsed, err := decimal.NewFromString(offer.Price.String())
		if err != nil {
			return true
		}

		price = parsed
		name = strings.TrimSpace(p.Name)
		found = true
		return false
	})

	return price, name, found
}

// hasStruckThroughPrice reports whether the page shows an original price
// struck through next to the current one, which is how discounts render.
func hasStruckThroughPrice(doc *goquery.Document) bool {
	struck := false
	doc.Find("del, s").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.ContainsAny(text, "0123456789") {
			struck = true
			return false
		}
		return true
	})
	return struck
}
