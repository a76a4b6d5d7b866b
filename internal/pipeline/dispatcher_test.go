package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/pricepulse/backend/internal/extractor"
	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor answers from a canned map and counts concurrent callers
type fakeExtractor struct {
	name     string
	readings map[int64]model.PriceReading
	errs     map[int64]error

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (f *fakeExtractor) WebsiteName() string { return f.name }

func (f *fakeExtractor) Extract(ctx context.Context, product model.ProductDescriptor) (model.PriceReading, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if err, ok := f.errs[product.ProductID]; ok {
		return model.PriceReading{}, err
	}
	return f.readings[product.ProductID], nil
}

func descriptorsFor(website string, ids ...int64) []model.ProductDescriptor {
	descs := make([]model.ProductDescriptor, 0, len(ids))
	for _, id := range ids {
		descs = append(descs, model.ProductDescriptor{ProductID: id, WebsiteName: website})
	}
	return descs
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, CurrentPrice: decimal.NewFromInt(10)},
			2: {ProductID: 2, CurrentPrice: decimal.NewFromInt(20)},
			3: {ProductID: 3, CurrentPrice: decimal.NewFromInt(30)},
		},
		errs: map[int64]error{
			4: extractor.ErrWrongPageType,
			5: extractor.ErrPriceNotFound,
		},
	}

	d := NewDispatcher(extractor.NewRegistry(fake), extractor.NewMetricsCollector(), 4)
	readings := d.Dispatch(context.Background(), descriptorsFor("asos", 1, 2, 3, 4, 5))

	require.Len(t, readings, 3)
	got := make(map[int64]bool)
	for _, r := range readings {
		got[r.ProductID] = true
	}
	assert.True(t, got[1] && got[2] && got[3])
}

func TestDispatcher_Dispatch_UnknownWebsite(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name:     "asos",
		readings: map[int64]model.PriceReading{1: {ProductID: 1}},
	}
	d := NewDispatcher(extractor.NewRegistry(fake), nil, 2)

	descs := append(descriptorsFor("asos", 1), descriptorsFor("amazon", 2)...)
	readings := d.Dispatch(context.Background(), descs)

	// The unregistered record is dropped, the rest proceed.
	require.Len(t, readings, 1)
	assert.Equal(t, int64(1), readings[0].ProductID)
}

func TestDispatcher_Dispatch_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{name: "asos", readings: map[int64]model.PriceReading{}}
	for i := int64(1); i <= 20; i++ {
		fake.readings[i] = model.PriceReading{ProductID: i}
	}

	d := NewDispatcher(extractor.NewRegistry(fake), nil, 2)
	ids := make([]int64, 0, 20)
	for i := int64(1); i <= 20; i++ {
		ids = append(ids, i)
	}

	readings := d.Dispatch(context.Background(), descriptorsFor("asos", ids...))

	assert.Len(t, readings, 20)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.LessOrEqual(t, fake.maxInFlight, 2)
}

func TestDispatcher_Dispatch_Metrics(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name:     "asos",
		readings: map[int64]model.PriceReading{1: {ProductID: 1}},
		errs:     map[int64]error{2: extractor.ErrPriceNotFound},
	}
	metrics := extractor.NewMetricsCollector()
	d := NewDispatcher(extractor.NewRegistry(fake), metrics, 4)

	d.Dispatch(context.Background(), descriptorsFor("asos", 1, 2))

	// Dispatch rolls the run over itself; the snapshot is ready without any
	// further call.
	run := metrics.LastRun()
	require.Len(t, run, 1)
	assert.Equal(t, 2, run[0].Attempted)
	assert.Equal(t, 1, run[0].Succeeded)
	assert.Equal(t, 1, run[0].Failed)
	assert.Equal(t, 1, metrics.TotalRuns())

	d.Dispatch(context.Background(), descriptorsFor("asos", 1))

	run = metrics.LastRun()
	require.Len(t, run, 1)
	assert.Equal(t, 1, run[0].Attempted)
	assert.Equal(t, 2, metrics.TotalRuns())
}
