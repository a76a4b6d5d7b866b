package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Website represents a supported retailer
type Website struct {
	ID   int64  `db:"website_id" json:"websiteId"`
	Name string `db:"website_name" json:"websiteName"`
}

// ProductDescriptor identifies a trackable product and carries the latest
// known price so the pipeline can detect movement without re-querying.
type ProductDescriptor struct {
	ProductID     int64               `db:"product_id" json:"product_id"`
	URL           string              `db:"url" json:"url"`
	ProductCode   int64               `db:"product_code" json:"product_code"`
	ProductName   string              `db:"product_name" json:"product_name"`
	WebsiteName   string              `db:"website_name" json:"website_name"`
	PreviousPrice decimal.NullDecimal `db:"price" json:"previous_price"`
}

// PriceReading is one observation of a product's price at a point in time.
// Readings are append-only; history is never mutated.
type PriceReading struct {
	ProductID     int64               `db:"product_id" json:"product_id"`
	ReadingAt     time.Time           `db:"reading_at" json:"reading_at"`
	CurrentPrice  decimal.Decimal     `db:"price" json:"current_price"`
	PreviousPrice decimal.NullDecimal `db:"previous_price" json:"previous_price"`
	IsOnSale      bool                `db:"is_on_sale" json:"is_on_sale"`

	// Carried through for email composition, not persisted with the reading.
	URL         string `db:"url" json:"url"`
	ProductName string `db:"product_name" json:"product_name"`
	WebsiteName string `db:"website_name" json:"website_name"`
}
