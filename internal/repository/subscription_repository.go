package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/model"
)

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetSubscribers returns the (product, email, threshold) rows for every
// subscription on any of the given products. An empty product set is a
// caller error, rejected before any I/O, never an empty result.
func (r *SubscriptionRepository) GetSubscribers(ctx context.Context, productIDs []int64) ([]model.Subscriber, error) {
	if len(productIDs) == 0 {
		return nil, apperror.Validation(apperror.ErrEmptyProductSet, "subscriber lookup requires at least one product id")
	}

	query, args, err := sqlx.In(`
		SELECT s.product_id, u.email, s.price_threshold
		FROM subscriptions s
		JOIN users u ON u.user_id = s.user_id
		WHERE s.product_id IN (?)
		ORDER BY u.email, s.product_id`, productIDs)
	if err != nil {
		return nil, apperror.Persistence(err, "building subscriber query")
	}

	var subscribers []model.Subscriber
	if err := r.db.SelectContext(ctx, &subscribers, r.db.Rebind(query), args...); err != nil {
		return nil, apperror.Persistence(err, "querying subscribers")
	}
	return subscribers, nil
}
