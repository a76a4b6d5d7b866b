// Package email decides who gets notified about price movements, composes
// the messages and sends them.
package email

import (
	"context"

	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
)

// SubscriberSource yields the subscriptions covering a set of products
type SubscriberSource interface {
	GetSubscribers(ctx context.Context, productIDs []int64) ([]model.Subscriber, error)
}

// Matcher joins readings against subscriptions and keeps the pairs that
// qualify for an alert.
type Matcher struct {
	subscribers SubscriberSource
}

func NewMatcher(subscribers SubscriberSource) *Matcher {
	return &Matcher{subscribers: subscribers}
}

// Match returns one row per (subscriber, qualifying product) pair. Readings
// must cover distinct products and be non-empty; an empty reading set is a
// caller error, not "no matches".
func (m *Matcher) Match(ctx context.Context, readings []model.PriceReading) ([]model.CustomerMatch, error) {
	if len(readings) == 0 {
		return nil, apperror.Validation(apperror.ErrEmptyProductSet, "matching requires at least one reading")
	}

	byProduct := make(map[int64]model.PriceReading, len(readings))
	productIDs := make([]int64, 0, len(readings))
	for _, r := range readings {
		if _, seen := byProduct[r.ProductID]; !seen {
			productIDs = append(productIDs, r.ProductID)
		}
		byProduct[r.ProductID] = r
	}

	subscribers, err := m.subscribers.GetSubscribers(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	matches := make([]model.CustomerMatch, 0, len(subscribers))
	for _, sub := range subscribers {
		reading, ok := byProduct[sub.ProductID]
		if !ok {
			continue
		}
		if !qualifies(sub.PriceThreshold, reading) {
			continue
		}
		matches = append(matches, model.CustomerMatch{
			ProductID:      sub.ProductID,
			Email:          sub.Email,
			PriceThreshold: sub.PriceThreshold,
			CurrentPrice:   reading.CurrentPrice,
			PreviousPrice:  reading.PreviousPrice,
			IsOnSale:       reading.IsOnSale,
			URL:            reading.URL,
			ProductName:    reading.ProductName,
			WebsiteName:    reading.WebsiteName,
		})
	}
	return matches, nil
}

// qualifies applies the null-aware match rule. With a threshold set, alert
// exactly once, on the transition across it: the current price must sit at
// or below the threshold while the previous one did not. With no threshold,
// alert only on a sale that comes with a genuine drop (or no prior price).
func qualifies(threshold decimal.NullDecimal, reading model.PriceReading) bool {
	if threshold.Valid {
		crossed := reading.CurrentPrice.LessThanOrEqual(threshold.Decimal)
		wasBelow := reading.PreviousPrice.Valid && reading.PreviousPrice.Decimal.LessThanOrEqual(threshold.Decimal)
		return crossed && !wasBelow
	}

	if !reading.IsOnSale {
		return false
	}
	return !reading.PreviousPrice.Valid || reading.CurrentPrice.LessThan(reading.PreviousPrice.Decimal)
}
