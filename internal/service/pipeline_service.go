// Package service orchestrates the tracking pipeline over the repositories.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/model"
	"github.com/pricepulse/backend/internal/pipeline"
)

const defaultBatchSize = 50

// ProductLister yields the products due for a tracking pass
type ProductLister interface {
	ListTracked(ctx context.Context) ([]model.ProductDescriptor, error)
}

// PipelineService splits the tracked product set into batches and runs the
// pipeline once per batch. Batches are independent; one batch's failure does
// not stop the rest.
type PipelineService struct {
	products  ProductLister
	pipeline  *pipeline.Pipeline
	batchSize int
}

func NewPipelineService(products ProductLister, p *pipeline.Pipeline, batchSize int) *PipelineService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PipelineService{
		products:  products,
		pipeline:  p,
		batchSize: batchSize,
	}
}

// RunOnce executes one complete tracking pass over every tracked product.
// The returned error joins the per-batch failures; results cover every
// batch that ran.
func (s *PipelineService) RunOnce(ctx context.Context) ([]pipeline.RunResult, error) {
	log := logger.FromContext(ctx)

	products, err := s.products.ListTracked(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		log.Info("No tracked products, nothing to do")
		return nil, nil
	}

	log.Info("Starting tracking pass",
		slog.Int("products", len(products)),
		slog.Int("batch_size", s.batchSize),
	)

	var (
		results []pipeline.RunResult
		errs    []error
	)
	for start := 0; start < len(products); start += s.batchSize {
		end := start + s.batchSize
		if end > len(products) {
			end = len(products)
		}

		result, err := s.pipeline.Run(ctx, toEntries(products[start:end]))
		results = append(results, result)
		if err != nil {
			log.Error("Batch failed",
				slog.String("run_id", result.RunID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

func toEntries(products []model.ProductDescriptor) []pipeline.DescriptorInput {
	entries := make([]pipeline.DescriptorInput, 0, len(products))
	for _, p := range products {
		entries = append(entries, pipeline.DescriptorInput{
			ProductID:     p.ProductID,
			URL:           p.URL,
			ProductCode:   p.ProductCode,
			ProductName:   p.ProductName,
			WebsiteName:   p.WebsiteName,
			PreviousPrice: p.PreviousPrice,
		})
	}
	return entries
}
