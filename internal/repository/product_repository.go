package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/model"
)

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListTracked returns every product that has at least one subscription,
// each carrying its most recent recorded price (null when the product has
// never been read). This is the provisioning query feeding pipeline runs.
func (r *ProductRepository) ListTracked(ctx context.Context) ([]model.ProductDescriptor, error) {
	query := `
		SELECT DISTINCT ON (p.product_id)
		       p.product_id, p.url, p.product_code, p.product_name,
		       w.website_name, pr.price
		FROM products p
		JOIN websites w ON w.website_id = p.website_id
		LEFT JOIN price_readings pr ON pr.product_id = p.product_id
		WHERE EXISTS (
			SELECT 1 FROM subscriptions s WHERE s.product_id = p.product_id
		)
		ORDER BY p.product_id, pr.reading_at DESC`

	var products []model.ProductDescriptor
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, apperror.Persistence(err, "listing tracked products")
	}
	return products, nil
}

// RefreshDetails updates the retailer-sourced fields of a product. Name and
// code are the only mutable columns; everything else is fixed at creation.
func (r *ProductRepository) RefreshDetails(ctx context.Context, productID int64, productName string, productCode int64) error {
	query := `UPDATE products SET product_name = $2, product_code = $3 WHERE product_id = $1`
	if _, err := r.db.ExecContext(ctx, query, productID, productName, productCode); err != nil {
		return apperror.Wrapf(apperror.KindPersistence, err, "refreshing details for product %d", productID)
	}
	return nil
}

// DeleteUnsubscribed removes products nobody subscribes to any more,
// together with their reading history, and returns how many products went.
func (r *ProductRepository) DeleteUnsubscribed(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperror.Persistence(err, "beginning cleanup transaction")
	}

	readingsQuery := `
		DELETE FROM price_readings
		WHERE product_id NOT IN (SELECT DISTINCT product_id FROM subscriptions)`
	if _, err := tx.ExecContext(ctx, readingsQuery); err != nil {
		_ = tx.Rollback()
		return 0, apperror.Persistence(err, "deleting orphaned price readings")
	}

	productsQuery := `
		DELETE FROM products
		WHERE product_id NOT IN (SELECT DISTINCT product_id FROM subscriptions)`
	result, err := tx.ExecContext(ctx, productsQuery)
	if err != nil {
		_ = tx.Rollback()
		return 0, apperror.Persistence(err, "deleting unsubscribed products")
	}

	removed, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, apperror.Persistence(err, "counting deleted products")
	}

	if err := tx.Commit(); err != nil {
		return 0, apperror.Persistence(err, "committing cleanup transaction")
	}
	return removed, nil
}
