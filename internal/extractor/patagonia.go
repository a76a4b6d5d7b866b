package extractor

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
)

const patagoniaWebsiteName = "patagonia"

// PatagoniaExtractor scrapes prices from Patagonia product pages
type PatagoniaExtractor struct {
	BaseExtractor
}

// NewPatagoniaExtractor creates a new Patagonia extractor
func NewPatagoniaExtractor(client *http.Client) *PatagoniaExtractor {
	return &PatagoniaExtractor{
		BaseExtractor: BaseExtractor{
			Client:       client,
			WebsiteName_: patagoniaWebsiteName,
		},
	}
}

// Extract fetches the product page and parses the buy-config price block.
func (e *PatagoniaExtractor) Extract(ctx context.Context, product model.ProductDescriptor) (model.PriceReading, error) {
	doc, err := e.FetchPage(ctx, product.URL)
	if err != nil {
		return model.PriceReading{}, NewExtractError(patagoniaWebsiteName, "fetch product page", err)
	}

	if !isProductPage(doc) {
		return model.PriceReading{}, NewExtractError(patagoniaWebsiteName, "verify product page", ErrWrongPageType)
	}

	priceBlock := doc.Find("span.js-buy-config-price, span.buy-config-price").First()
	if priceBlock.Length() == 0 {
		return model.PriceReading{}, NewExtractError(patagoniaWebsiteName, "locate price block", ErrPriceNotFound)
	}

	price, err := parseCurrentPrice(priceBlock)
	if err != nil {
		return model.PriceReading{}, NewExtractError(patagoniaWebsiteName, "parse current price", err)
	}

	// The page is authoritative for the product name; renamed listings are
	// picked up on re-scrape.
	name := strings.TrimSpace(doc.Find("h1.product-name").First().Text())
	if name == "" {
		name = product.ProductName
	}

	return model.PriceReading{
		ProductID:     product.ProductID,
		ReadingAt:     time.Now(),
		CurrentPrice:  price,
		PreviousPrice: product.PreviousPrice,
		IsOnSale:      hasDiscountBadge(priceBlock),
		URL:           product.URL,
		ProductName:   name,
		WebsiteName:   patagoniaWebsiteName,
	}, nil
}

// isProductPage reports whether the document is a single-product page.
// Category listings, error pages and bot walls all lack the product-detail
// container.
func isProductPage(doc *goquery.Document) bool {
	return doc.Find("div.product-detail").Length() > 0
}

func parseCurrentPrice(priceBlock *goquery.Selection) (decimal.Decimal, error) {
	valueSpan := priceBlock.Find("span.sales span.value").First()
	if valueSpan.Length() == 0 {
		return decimal.Zero, ErrPriceNotFound
	}

	content, ok := valueSpan.Attr("content")
	if !ok || strings.TrimSpace(content) == "" {
		return decimal.Zero, ErrPriceNotFound
	}

	price, err := decimal.NewFromString(strings.TrimSpace(content))
	if err != nil {
		return decimal.Zero, ErrPriceNotFound
	}
	return price, nil
}

func hasDiscountBadge(priceBlock *goquery.Selection) bool {
	discount := priceBlock.Find("span.discount-percentage").First()
	return discount.Length() > 0 && strings.TrimSpace(discount.Text()) != ""
}
