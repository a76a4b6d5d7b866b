package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/model"
)

// Run statuses reported back to the scheduling trigger. Per-record failure
// detail lives in the logs, not in the status.
const (
	StatusSuccess        = "success"
	StatusNoValidEntries = "no valid entries"
	StatusNotAList       = "entries are not a list"
)

// ReadingWriter persists a batch of readings in one atomic write
type ReadingWriter interface {
	BulkInsert(ctx context.Context, readings []model.PriceReading) error
}

// ProductRefresher persists product details that changed on the retailer
// side since the product was registered
type ProductRefresher interface {
	RefreshDetails(ctx context.Context, productID int64, productName string, productCode int64) error
}

// Notifier matches readings against subscriptions and sends the resulting
// alert emails. The boolean is the AND across all sends.
type Notifier interface {
	Notify(ctx context.Context, readings []model.PriceReading) (bool, error)
}

// Pipeline wires one run of the tracking pass together
type Pipeline struct {
	dispatcher          *Dispatcher
	writer              ReadingWriter
	refresher           ProductRefresher
	notifier            Notifier
	keepSaleTransitions bool
}

// New creates a pipeline from its stages
func New(dispatcher *Dispatcher, writer ReadingWriter, refresher ProductRefresher, notifier Notifier, keepSaleTransitions bool) *Pipeline {
	return &Pipeline{
		dispatcher:          dispatcher,
		writer:              writer,
		refresher:           refresher,
		notifier:            notifier,
		keepSaleTransitions: keepSaleTransitions,
	}
}

// RunResult summarizes one pipeline run
type RunResult struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Received  int    `json:"received"`
	Validated int    `json:"validated"`
	Extracted int    `json:"extracted"`
	Refreshed int    `json:"refreshed"`
	Kept      int    `json:"kept"`
	Written   int    `json:"written"`
	AllSent   bool   `json:"all_sent"`
}

// Run processes one batch of raw descriptor records end to end. Invalid
// records are dropped with a log line; the run proceeds with whatever
// validates. Persistence and notification errors are surfaced, everything
// upstream of them is recovered per record.
func (p *Pipeline) Run(ctx context.Context, entries []DescriptorInput) (RunResult, error) {
	runID := uuid.New().String()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	result := RunResult{RunID: runID, Received: len(entries)}

	if entries == nil {
		result.Status = StatusNotAList
		log.Warn("Pipeline called without an entry list")
		return result, nil
	}

	descriptors := make([]model.ProductDescriptor, 0, len(entries))
	for i, raw := range entries {
		desc, err := ValidateDescriptor(raw)
		if err != nil {
			log.Warn("Dropping invalid record",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		descriptors = append(descriptors, desc)
	}
	result.Validated = len(descriptors)

	if len(descriptors) == 0 {
		result.Status = StatusNoValidEntries
		log.Warn("No records survived validation", slog.Int("received", len(entries)))
		return result, nil
	}

	readings := p.dispatcher.Dispatch(ctx, descriptors)
	result.Extracted = len(readings)

	result.Refreshed = p.refreshChangedDetails(ctx, descriptors, readings)

	kept := FilterStale(readings, p.keepSaleTransitions)
	result.Kept = len(kept)

	log.Info("Extraction finished",
		slog.Int("validated", result.Validated),
		slog.Int("extracted", result.Extracted),
		slog.Int("kept", result.Kept),
	)

	if len(kept) == 0 {
		result.Status = StatusSuccess
		result.AllSent = true
		return result, nil
	}

	if err := p.writer.BulkInsert(ctx, kept); err != nil {
		log.Error("Persisting readings failed", slog.String("error", err.Error()))
		return result, err
	}
	result.Written = len(kept)

	allSent, err := p.notifier.Notify(ctx, kept)
	if err != nil {
		log.Error("Notification pass failed", slog.String("error", err.Error()))
		return result, err
	}
	result.AllSent = allSent

	result.Status = StatusSuccess
	log.Info("Pipeline run complete",
		slog.Int("written", result.Written),
		slog.Bool("all_sent", result.AllSent),
	)
	return result, nil
}

// refreshChangedDetails writes back product names the extractors saw change
// on the retailer page. A failed write-back never fails the run; the stale
// name just lasts until the next pass.
func (p *Pipeline) refreshChangedDetails(ctx context.Context, descriptors []model.ProductDescriptor, readings []model.PriceReading) int {
	log := logger.FromContext(ctx)

	byID := make(map[int64]model.ProductDescriptor, len(descriptors))
	for _, desc := range descriptors {
		byID[desc.ProductID] = desc
	}

	refreshed := 0
	for _, reading := range readings {
		desc, ok := byID[reading.ProductID]
		if !ok || reading.ProductName == "" || reading.ProductName == desc.ProductName {
			continue
		}

		if err := p.refresher.RefreshDetails(ctx, reading.ProductID, reading.ProductName, desc.ProductCode); err != nil {
			log.Warn("Refreshing product details failed",
				slog.Int64("product_id", reading.ProductID),
				slog.String("error", err.Error()),
			)
			continue
		}

		log.Info("Refreshed product details",
			slog.Int64("product_id", reading.ProductID),
			slog.String("product_name", reading.ProductName),
		)
		refreshed++
	}
	return refreshed
}
