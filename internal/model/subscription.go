package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered customer
type User struct {
	ID        int64     `db:"user_id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Subscription ties a user to a tracked product. A null PriceThreshold means
// "alert on any genuine price decrease or sale"; a non-null threshold means
// "alert only when the price crosses below it".
type Subscription struct {
	UserID         int64               `db:"user_id" json:"userId"`
	ProductID      int64               `db:"product_id" json:"productId"`
	PriceThreshold decimal.NullDecimal `db:"price_threshold" json:"priceThreshold,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"createdAt"`
}

// Subscriber is one row of the customer-information query: which address
// cares about which product, at what threshold.
type Subscriber struct {
	ProductID      int64               `db:"product_id" json:"productId"`
	Email          string              `db:"email" json:"email"`
	PriceThreshold decimal.NullDecimal `db:"price_threshold" json:"priceThreshold,omitempty"`
}

// CustomerMatch is an ephemeral join row: a subscriber whose product reading
// qualified for an alert this run. Not persisted.
type CustomerMatch struct {
	ProductID      int64
	Email          string
	PriceThreshold decimal.NullDecimal
	CurrentPrice   decimal.Decimal
	PreviousPrice  decimal.NullDecimal
	IsOnSale       bool
	URL            string
	ProductName    string
	WebsiteName    string
}

// EmailNotification is a fully composed, ready-to-send email. At most one is
// produced per distinct recipient per pipeline run.
type EmailNotification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
