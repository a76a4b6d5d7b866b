// Package repository holds the database access layer.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pricepulse/backend/internal/apperror"
	"github.com/pricepulse/backend/internal/model"
)

type ReadingRepository struct {
	db *sqlx.DB
}

func NewReadingRepository(db *sqlx.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// BuildBulkInsert constructs one parameterized multi-row INSERT sized to
// exactly len(readings) rows. Args are flattened in (product_id, reading_at,
// price) order, row by row, matching the statement's placeholders.
func BuildBulkInsert(readings []model.PriceReading) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO price_readings (product_id, reading_at, price) VALUES ")

	args := make([]any, 0, len(readings)*3)
	for i, r := range readings {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, r.ProductID, r.ReadingAt, r.CurrentPrice)
	}

	return sb.String(), args
}

// BulkInsert writes all readings in a single statement inside one
// transaction. Preconditions fail before any SQL runs; an execution error
// rolls the whole batch back, never leaving a partial write.
func (r *ReadingRepository) BulkInsert(ctx context.Context, readings []model.PriceReading) error {
	if r.db == nil {
		return apperror.Validation(apperror.ErrConnectionType, "bulk insert requires an open database connection")
	}
	if len(readings) == 0 {
		return apperror.Validation(apperror.ErrEmptyBatch, "bulk insert requires at least one reading")
	}

	query, args := BuildBulkInsert(readings)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Persistence(err, "beginning readings transaction")
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return apperror.Wrapf(apperror.KindPersistence, err, "inserting %d price readings", len(readings))
	}

	if err := tx.Commit(); err != nil {
		return apperror.Persistence(err, "committing readings transaction")
	}
	return nil
}
