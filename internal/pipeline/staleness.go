package pipeline

import (
	"log/slog"

	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/model"
)

// Keep reports whether a reading represents actionable price movement. A
// reading survives when the product has no prior price on record or the
// price did not go up. With keepSaleTransitions set, a flat or rising price
// that is on sale also survives, so sale flags reach the matcher even
// without a drop.
func Keep(reading model.PriceReading, keepSaleTransitions bool) bool {
	if !reading.PreviousPrice.Valid {
		return true
	}
	if reading.CurrentPrice.LessThanOrEqual(reading.PreviousPrice.Decimal) {
		return true
	}
	return keepSaleTransitions && reading.IsOnSale
}

// FilterStale drops readings with no favorable price movement. Each reading
// is judged independently; input order is preserved.
func FilterStale(readings []model.PriceReading, keepSaleTransitions bool) []model.PriceReading {
	kept := make([]model.PriceReading, 0, len(readings))
	for _, r := range readings {
		if Keep(r, keepSaleTransitions) {
			kept = append(kept, r)
			continue
		}
		logger.Debug("Dropping stale reading",
			slog.Int64("product_id", r.ProductID),
			slog.String("current_price", r.CurrentPrice.String()),
			slog.String("previous_price", r.PreviousPrice.Decimal.String()),
		)
	}
	return kept
}
