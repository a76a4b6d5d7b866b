package service

import (
	"context"
	"log/slog"

	"github.com/pricepulse/backend/internal/logger"
)

// ProductCleaner removes products nobody subscribes to
type ProductCleaner interface {
	DeleteUnsubscribed(ctx context.Context) (int64, error)
}

// CleanupService prunes unsubscribed products and their reading history
type CleanupService struct {
	products ProductCleaner
}

func NewCleanupService(products ProductCleaner) *CleanupService {
	return &CleanupService{products: products}
}

// Run performs one cleanup pass
func (s *CleanupService) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	removed, err := s.products.DeleteUnsubscribed(ctx)
	if err != nil {
		log.Error("Cleanup failed", slog.String("error", err.Error()))
		return err
	}

	log.Info("Cleanup complete", slog.Int64("products_removed", removed))
	return nil
}
