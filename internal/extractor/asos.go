package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
)

const (
	asosWebsiteName = "asos"
	asosStockAPI    = "https://www.asos.com/api/product/catalogue/v4/stockprice?productIds=%d&store=COM&currency=GBP&keyStoreDataversion=ornjx7v-36&country=GB"
)

// ASOSExtractor reads prices from the ASOS stock-price API
type ASOSExtractor struct {
	BaseExtractor
	stockAPI string
}

// NewASOSExtractor creates a new ASOS extractor
func NewASOSExtractor(client *http.Client) *ASOSExtractor {
	return &ASOSExtractor{
		BaseExtractor: BaseExtractor{
			Client:       client,
			WebsiteName_: asosWebsiteName,
		},
		stockAPI: asosStockAPI,
	}
}

type asosPrice struct {
	Current struct {
		Value *float64 `json:"value"`
	} `json:"current"`
	DiscountPercentage *float64 `json:"discountPercentage"`
}

type asosStockEntry struct {
	ProductID    int64     `json:"productId"`
	ProductPrice asosPrice `json:"productPrice"`
}

// Extract fetches the stock-price API response for the product code and
// parses out the current price and sale status.
func (e *ASOSExtractor) Extract(ctx context.Context, product model.ProductDescriptor) (model.PriceReading, error) {
	body, err := e.FetchJSON(ctx, fmt.Sprintf(e.stockAPI, product.ProductCode))
	if err != nil {
		return model.PriceReading{}, NewExtractError(asosWebsiteName, "fetch stock price", err)
	}

	// The API answers a JSON object carrying an errorCode when the requested
	// product ids are not valid, and an array of entries otherwise.
	var apiErr struct {
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorCode != "" {
		return model.PriceReading{}, NewExtractError(asosWebsiteName, "fetch stock price", ErrWrongPageType)
	}

	var entries []asosStockEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return model.PriceReading{}, NewExtractError(asosWebsiteName, "decode stock price", ErrWrongPageType)
	}
	if len(entries) == 0 {
		return model.PriceReading{}, NewExtractError(asosWebsiteName, "decode stock price", ErrEmptyResponse)
	}

	price := entries[0].ProductPrice
	if price.Current.Value == nil {
		return model.PriceReading{}, NewExtractError(asosWebsiteName, "parse current price", ErrPriceNotFound)
	}
	if price.DiscountPercentage == nil {
		return model.PriceReading{}, NewExtractError(asosWebsiteName, "parse sale status", ErrSaleStatusNotFound)
	}

	return model.PriceReading{
		ProductID:     product.ProductID,
		ReadingAt:     time.Now(),
		CurrentPrice:  decimal.NewFromFloat(*price.Current.Value),
		PreviousPrice: product.PreviousPrice,
		IsOnSale:      *price.DiscountPercentage > 0,
		URL:           product.URL,
		ProductName:   product.ProductName,
		WebsiteName:   asosWebsiteName,
	}, nil
}
