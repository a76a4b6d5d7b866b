//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pricepulse/backend/internal/email"
	"github.com/pricepulse/backend/internal/extractor"
	"github.com/pricepulse/backend/internal/model"
	"github.com/pricepulse/backend/internal/pipeline"
	"github.com/pricepulse/backend/internal/repository"
	"github.com/pricepulse/backend/internal/service"
)

// Schema for test database
const testSchema = `
CREATE TABLE IF NOT EXISTS websites (
    website_id SERIAL PRIMARY KEY,
    website_name VARCHAR(100) UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    product_id SERIAL PRIMARY KEY,
    url TEXT NOT NULL,
    product_code BIGINT NOT NULL,
    product_name VARCHAR(255) NOT NULL,
    website_id INTEGER NOT NULL REFERENCES websites(website_id)
);

CREATE TABLE IF NOT EXISTS price_readings (
    product_id INTEGER NOT NULL REFERENCES products(product_id),
    reading_at TIMESTAMP WITH TIME ZONE NOT NULL,
    price DECIMAL(12, 2) NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subscriptions (
    user_id INTEGER NOT NULL REFERENCES users(user_id),
    product_id INTEGER NOT NULL REFERENCES products(product_id),
    price_threshold DECIMAL(12, 2),
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    PRIMARY KEY (user_id, product_id)
);
`

const testSeed = `
INSERT INTO websites (website_name) VALUES ('asos'), ('patagonia');

INSERT INTO products (url, product_code, product_name, website_id) VALUES
    ('https://www.asos.com/p/1', 201868906, 'Oversized hoodie', 1),
    ('https://www.patagonia.com/p/2', 85240, 'Torrentshell jacket', 2),
    ('https://www.asos.com/p/3', 300000001, 'Nobody tracks this', 1);

INSERT INTO price_readings (product_id, reading_at, price) VALUES
    (1, NOW() - INTERVAL '1 day', 30.00),
    (2, NOW() - INTERVAL '1 day', 120.00);

INSERT INTO users (email) VALUES ('alice@example.com'), ('bob@example.com');

INSERT INTO subscriptions (user_id, product_id, price_threshold) VALUES
    (1, 1, 25.00),
    (2, 1, NULL),
    (1, 2, NULL);
`

// scriptedExtractor answers every descriptor from a canned price table
type scriptedExtractor struct {
	name   string
	prices map[int64]struct {
		price  string
		onSale bool
	}
}

func (s *scriptedExtractor) WebsiteName() string { return s.name }

func (s *scriptedExtractor) Extract(ctx context.Context, product model.ProductDescriptor) (model.PriceReading, error) {
	entry, ok := s.prices[product.ProductID]
	if !ok {
		return model.PriceReading{}, extractor.NewExtractError(s.name, "fetch", extractor.ErrPriceNotFound)
	}
	return model.PriceReading{
		ProductID:     product.ProductID,
		ReadingAt:     time.Now(),
		CurrentPrice:  decimal.RequireFromString(entry.price),
		PreviousPrice: product.PreviousPrice,
		IsOnSale:      entry.onSale,
		URL:           product.URL,
		ProductName:   product.ProductName,
		WebsiteName:   s.name,
	}, nil
}

type recordingTransport struct {
	verified []string
	sent     []model.EmailNotification
}

func (r *recordingTransport) Send(ctx context.Context, n model.EmailNotification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingTransport) VerifiedAddresses(ctx context.Context) ([]string, error) {
	return r.verified, nil
}

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	_, err = db.Exec(testSeed)
	require.NoError(t, err)

	return db
}

func TestPipeline_EndToEnd(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	productRepo := repository.NewProductRepository(db)
	readingRepo := repository.NewReadingRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// Product 1 drops 30 -> 22 and crosses alice's threshold of 25.
	// Product 2 goes on sale at 95 for the null-threshold subscription.
	scripted := map[int64]struct {
		price  string
		onSale bool
	}{
		1: {price: "22.00", onSale: false},
		2: {price: "95.00", onSale: true},
	}
	registry := extractor.NewRegistry(
		&scriptedExtractor{name: "asos", prices: scripted},
		&scriptedExtractor{name: "patagonia", prices: scripted},
	)

	transport := &recordingTransport{verified: []string{"alice@example.com", "bob@example.com"}}
	notifier := email.NewNotifier(email.NewMatcher(subscriptionRepo), email.NewSender(transport))

	p := pipeline.New(
		pipeline.NewDispatcher(registry, extractor.NewMetricsCollector(), 4),
		readingRepo,
		productRepo,
		notifier,
		false,
	)
	svc := service.NewPipelineService(productRepo, p, 50)

	results, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, pipeline.StatusSuccess, results[0].Status)
	assert.True(t, results[0].AllSent)

	// The untracked product never reaches the batch.
	assert.Equal(t, 2, results[0].Validated)
	assert.Equal(t, 2, results[0].Written)

	// Both readings are durably visible.
	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM price_readings WHERE price IN (22.00, 95.00)`))
	assert.Equal(t, 2, count)

	// Alice gets one email covering both products; bob's null-threshold
	// subscription saw a drop without a sale flag, so nothing for him.
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "alice@example.com", transport.sent[0].Recipient)
	assert.Equal(t, "Tracked products price decrease!", transport.sent[0].Subject)
	assert.Contains(t, transport.sent[0].Body, "Oversized hoodie")
	assert.Contains(t, transport.sent[0].Body, "Torrentshell jacket")
}

func TestPipeline_SecondRunDoesNotRealert(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	productRepo := repository.NewProductRepository(db)
	readingRepo := repository.NewReadingRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	scripted := map[int64]struct {
		price  string
		onSale bool
	}{
		1: {price: "22.00", onSale: false},
		2: {price: "95.00", onSale: false},
	}
	registry := extractor.NewRegistry(
		&scriptedExtractor{name: "asos", prices: scripted},
		&scriptedExtractor{name: "patagonia", prices: scripted},
	)

	transport := &recordingTransport{verified: []string{"alice@example.com", "bob@example.com"}}
	notifier := email.NewNotifier(email.NewMatcher(subscriptionRepo), email.NewSender(transport))
	p := pipeline.New(
		pipeline.NewDispatcher(registry, extractor.NewMetricsCollector(), 4),
		readingRepo,
		productRepo,
		notifier,
		false,
	)
	svc := service.NewPipelineService(productRepo, p, 50)

	_, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	firstRunEmails := len(transport.sent)

	// Second run re-observes the same prices. The latest reading is now the
	// dropped price, so the threshold transition cannot fire again.
	_, err = svc.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, firstRunEmails, len(transport.sent))
}

func TestCleanup_RemovesUnsubscribedProducts(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	svc := service.NewCleanupService(repository.NewProductRepository(db))
	require.NoError(t, svc.Run(ctx))

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM products`))
	assert.Equal(t, 2, count)

	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM products WHERE product_name = 'Nobody tracks this'`))
	assert.Equal(t, 0, count)
}
