package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pricepulse/backend/internal/extractor"
	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/model"
)

const defaultExtractWorkers = 4

// Dispatcher fans descriptors out to their registered extractors. Extraction
// is I/O-bound, so each descriptor gets its own goroutine gated by a bounded
// semaphore; one record's failure never aborts the others.
type Dispatcher struct {
	registry *extractor.Registry
	metrics  *extractor.MetricsCollector
	workers  int
}

// NewDispatcher creates a dispatcher over the given extractor registry
func NewDispatcher(registry *extractor.Registry, metrics *extractor.MetricsCollector, workers int) *Dispatcher {
	if workers <= 0 {
		workers = defaultExtractWorkers
	}
	if metrics == nil {
		metrics = extractor.NewMetricsCollector()
	}
	return &Dispatcher{
		registry: registry,
		metrics:  metrics,
		workers:  workers,
	}
}

// Metrics returns the collector tracking per-website extraction outcomes
func (d *Dispatcher) Metrics() *extractor.MetricsCollector {
	return d.metrics
}

// Dispatch extracts a reading for every descriptor concurrently and returns
// the ones that succeeded. Completion order is not related to input order.
// Failed records are logged and excluded, never retried within the run.
func (d *Dispatcher) Dispatch(ctx context.Context, descriptors []model.ProductDescriptor) []model.PriceReading {
	log := logger.FromContext(ctx)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings = make([]model.PriceReading, 0, len(descriptors))
		sem      = make(chan struct{}, d.workers)
	)

	for _, desc := range descriptors {
		wg.Add(1)
		go func(desc model.ProductDescriptor) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if r := recover(); r != nil {
					d.metrics.RecordFailure(desc.WebsiteName, nil)
					log.Error("Extraction panicked",
						slog.Int64("product_id", desc.ProductID),
						slog.String("website", desc.WebsiteName),
						slog.Any("panic", r),
					)
				}
			}()

			ext, err := d.registry.Lookup(desc.WebsiteName)
			if err != nil {
				d.metrics.RecordFailure(desc.WebsiteName, err)
				log.Warn("Skipping record with unregistered website",
					slog.Int64("product_id", desc.ProductID),
					slog.String("website", desc.WebsiteName),
				)
				return
			}

			d.metrics.RecordAttempt(desc.WebsiteName)

			reading, err := ext.Extract(ctx, desc)
			if err != nil {
				d.metrics.RecordFailure(desc.WebsiteName, err)
				if extractor.IsBadPage(err) {
					log.Warn("Extraction rejected page",
						slog.Int64("product_id", desc.ProductID),
						slog.String("website", desc.WebsiteName),
						slog.String("error", err.Error()),
					)
				} else {
					log.Error("Extraction failed",
						slog.Int64("product_id", desc.ProductID),
						slog.String("website", desc.WebsiteName),
						slog.String("error", err.Error()),
					)
				}
				return
			}

			d.metrics.RecordSuccess(desc.WebsiteName)

			mu.Lock()
			readings = append(readings, reading)
			mu.Unlock()
		}(desc)
	}

	wg.Wait()

	d.metrics.FinishRun()
	for _, m := range d.metrics.LastRun() {
		log.Info("Extraction summary",
			slog.String("website", m.WebsiteName),
			slog.Int("attempted", m.Attempted),
			slog.Int("succeeded", m.Succeeded),
			slog.Int("failed", m.Failed),
		)
	}

	return readings
}
