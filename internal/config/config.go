package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Environment
	Env string // "development", "production"

	// Database
	DatabaseURL string

	// Mail (SES)
	AWSRegion   string
	SenderEmail string

	// Pipeline
	ExtractWorkers      int           // bounded fan-out for extraction
	RequestTimeout      time.Duration // per outbound HTTP call
	BatchSize           int           // products per pipeline batch
	KeepSaleTransitions bool          // staleness filter also keeps on-sale readings with flat/rising prices

	// Scheduler
	SchedulerEnabled  bool
	PipelineSchedule  string        // Cron expression (e.g., "0 * * * *" for hourly)
	PipelineRunLimit  time.Duration // Timeout for a complete pipeline run
	CleanupSchedule   string        // Cron expression for the unsubscribed-product cleanup
	BrowserPagesLimit int           // pre-warmed headless browser pages
}

func Load() *Config {
	env := getEnv("ENV", "development")

	return &Config{
		Env: env,

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/pricepulse?sslmode=disable"),

		// Mail
		AWSRegion:   getEnv("AWS_REGION", "eu-west-2"),
		SenderEmail: getEnv("SENDER_EMAIL", "alerts@pricepulse.app"),

		// Pipeline
		ExtractWorkers:      getIntEnv("EXTRACT_WORKERS", 4),
		RequestTimeout:      getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		BatchSize:           getIntEnv("PROCESSING_BATCH_SIZE", 50),
		KeepSaleTransitions: getBoolEnv("KEEP_SALE_TRANSITIONS", false),

		// Scheduler
		SchedulerEnabled:  getBoolEnv("SCHEDULER_ENABLED", true),
		PipelineSchedule:  getEnv("PIPELINE_SCHEDULE", "*/30 * * * *"), // Default: every 30 minutes
		PipelineRunLimit:  getDurationEnv("PIPELINE_TIMEOUT", 10*time.Minute),
		CleanupSchedule:   getEnv("CLEANUP_SCHEDULE", "0 3 * * *"), // Default: daily at 03:00
		BrowserPagesLimit: getIntEnv("BROWSER_PAGES", 3),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
