package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pricepulse/backend/internal/config"
	"github.com/pricepulse/backend/internal/email"
	"github.com/pricepulse/backend/internal/extractor"
	"github.com/pricepulse/backend/internal/extractor/browser"
	"github.com/pricepulse/backend/internal/logger"
	"github.com/pricepulse/backend/internal/pipeline"
	"github.com/pricepulse/backend/internal/repository"
	"github.com/pricepulse/backend/internal/scheduler"
	"github.com/pricepulse/backend/internal/service"
)

func main() {
	daemon := flag.Bool("daemon", false, "Run on the configured schedule instead of once")
	cleanup := flag.Bool("cleanup", false, "Also remove unsubscribed products after the pass")
	output := flag.String("output", "", "Output file for JSON run results (default: stdout summary only)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Logger()

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	extractors := []extractor.Extractor{
		extractor.NewASOSExtractor(httpClient),
		extractor.NewPatagoniaExtractor(httpClient),
	}

	// The Zalando extractor needs a headless browser. A missing browser
	// binary only costs that one retailer, not the whole run.
	poolCfg := browser.DefaultPoolConfig()
	poolCfg.MaxPages = cfg.BrowserPagesLimit
	pool, err := browser.NewPool(poolCfg, log)
	if err != nil {
		log.Warn("Browser pool unavailable, skipping browser-based retailers", "error", err.Error())
	} else {
		defer func() { _ = pool.Close() }()
		extractors = append(extractors, extractor.NewZalandoExtractor(pool))
	}

	registry := extractor.NewRegistry(extractors...)
	dispatcher := pipeline.NewDispatcher(registry, extractor.NewMetricsCollector(), cfg.ExtractWorkers)

	readingRepo := repository.NewReadingRepository(db)
	productRepo := repository.NewProductRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	transport, err := email.NewSESTransport(context.Background(), cfg.AWSRegion, cfg.SenderEmail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up mail transport: %v\n", err)
		os.Exit(1)
	}
	notifier := email.NewNotifier(email.NewMatcher(subscriptionRepo), email.NewSender(transport))

	p := pipeline.New(dispatcher, readingRepo, productRepo, notifier, cfg.KeepSaleTransitions)
	pipelineService := service.NewPipelineService(productRepo, p, cfg.BatchSize)
	cleanupService := service.NewCleanupService(productRepo)

	if *daemon {
		runDaemon(cfg, pipelineService, cleanupService)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PipelineRunLimit)
	defer cancel()

	startTime := time.Now()
	results, err := pipelineService.RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var written int
	for _, r := range results {
		written += r.Written
	}
	fmt.Printf("Completed %d batch(es), %d readings written in %.1fs\n",
		len(results), written, time.Since(startTime).Seconds())

	if *cleanup {
		if err := cleanupService.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error during cleanup: %v\n", err)
			os.Exit(1)
		}
	}

	if *output != "" {
		data, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(*output, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote run results to %s\n", *output)
	}
}

func runDaemon(cfg *config.Config, pipelineService *service.PipelineService, cleanupService *service.CleanupService) {
	sched := scheduler.New(scheduler.Config{
		PipelineSchedule: cfg.PipelineSchedule,
		CleanupSchedule:  cfg.CleanupSchedule,
		Timeout:          cfg.PipelineRunLimit,
		Enabled:          cfg.SchedulerEnabled,
	}, pipelineService, cleanupService, logger.Logger())

	if err := sched.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting scheduler: %v\n", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-sched.Stop().Done()
}
