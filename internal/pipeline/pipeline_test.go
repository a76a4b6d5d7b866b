package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/pricepulse/backend/internal/extractor"
	"github.com/pricepulse/backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []model.PriceReading
	err     error
}

func (w *fakeWriter) BulkInsert(ctx context.Context, readings []model.PriceReading) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, readings...)
	return nil
}

type fakeRefresher struct {
	refreshed map[int64]string
	err       error
}

func (r *fakeRefresher) RefreshDetails(ctx context.Context, productID int64, productName string, productCode int64) error {
	if r.err != nil {
		return r.err
	}
	if r.refreshed == nil {
		r.refreshed = make(map[int64]string)
	}
	r.refreshed[productID] = productName
	return nil
}

type fakeNotifier struct {
	notified []model.PriceReading
	allSent  bool
	err      error
}

func (n *fakeNotifier) Notify(ctx context.Context, readings []model.PriceReading) (bool, error) {
	n.notified = append(n.notified, readings...)
	return n.allSent, n.err
}

func newTestPipeline(t *testing.T, fake *fakeExtractor, writer *fakeWriter, notifier *fakeNotifier) *Pipeline {
	t.Helper()

	d := NewDispatcher(extractor.NewRegistry(fake), extractor.NewMetricsCollector(), 4)
	return New(d, writer, &fakeRefresher{}, notifier, false)
}

func entryFor(id int64, website string, previous string) DescriptorInput {
	in := DescriptorInput{
		ProductID:   id,
		URL:         "https://example.com/p",
		ProductCode: id,
		ProductName: "Product",
		WebsiteName: website,
	}
	if previous != "" {
		in.PreviousPrice = previous
	}
	return in
}

func TestPipeline_Run_NilEntries(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeExtractor{name: "asos"}, &fakeWriter{}, &fakeNotifier{allSent: true})
	result, err := p.Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, StatusNotAList, result.Status)
	assert.NotEmpty(t, result.RunID)
}

func TestPipeline_Run_NoValidEntries(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeExtractor{name: "asos"}, &fakeWriter{}, &fakeNotifier{allSent: true})
	entries := []DescriptorInput{
		{ProductID: "not-a-number", URL: "https://example.com", ProductCode: 1, ProductName: "P", WebsiteName: "asos"},
	}

	result, err := p.Run(context.Background(), entries)

	require.NoError(t, err)
	assert.Equal(t, StatusNoValidEntries, result.Status)
	assert.Equal(t, 1, result.Received)
	assert.Equal(t, 0, result.Validated)
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, CurrentPrice: decimal.NewFromInt(10), PreviousPrice: decimal.NewNullDecimal(decimal.NewFromInt(15))},
			2: {ProductID: 2, CurrentPrice: decimal.NewFromInt(40), PreviousPrice: decimal.NewNullDecimal(decimal.NewFromInt(30))},
		},
		errs: map[int64]error{3: extractor.ErrPriceNotFound},
	}
	writer := &fakeWriter{}
	notifier := &fakeNotifier{allSent: true}
	p := newTestPipeline(t, fake, writer, notifier)

	entries := []DescriptorInput{
		entryFor(1, "asos", "15"), // extracted, price drop, kept
		entryFor(2, "asos", "30"), // extracted, price rise, filtered out
		entryFor(3, "asos", ""),   // extraction fails, dropped
		{ProductID: nil},          // invalid, dropped at validation
	}

	result, err := p.Run(context.Background(), entries)

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 4, result.Received)
	assert.Equal(t, 3, result.Validated)
	assert.Equal(t, 2, result.Extracted)
	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, 1, result.Written)
	assert.True(t, result.AllSent)

	require.Len(t, writer.written, 1)
	assert.Equal(t, int64(1), writer.written[0].ProductID)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, int64(1), notifier.notified[0].ProductID)
}

func TestPipeline_Run_AllReadingsStale(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, CurrentPrice: decimal.NewFromInt(40), PreviousPrice: decimal.NewNullDecimal(decimal.NewFromInt(30))},
		},
	}
	writer := &fakeWriter{}
	notifier := &fakeNotifier{allSent: true}
	p := newTestPipeline(t, fake, writer, notifier)

	result, err := p.Run(context.Background(), []DescriptorInput{entryFor(1, "asos", "30")})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 0, result.Written)
	assert.True(t, result.AllSent)
	assert.Empty(t, writer.written)
	assert.Empty(t, notifier.notified)
}

func TestPipeline_Run_WriterFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, CurrentPrice: decimal.NewFromInt(10)},
		},
	}
	wantErr := errors.New("connection reset")
	notifier := &fakeNotifier{allSent: true}
	p := newTestPipeline(t, fake, &fakeWriter{err: wantErr}, notifier)

	result, err := p.Run(context.Background(), []DescriptorInput{entryFor(1, "asos", "")})

	assert.ErrorIs(t, err, wantErr)
	assert.NotEqual(t, StatusSuccess, result.Status)
	assert.Empty(t, notifier.notified)
}

func TestPipeline_Run_RefreshesChangedName(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, ProductName: "Renamed Jacket", CurrentPrice: decimal.NewFromInt(10)},
			2: {ProductID: 2, ProductName: "Product", CurrentPrice: decimal.NewFromInt(20)},
		},
	}
	refresher := &fakeRefresher{}
	d := NewDispatcher(extractor.NewRegistry(fake), extractor.NewMetricsCollector(), 4)
	p := New(d, &fakeWriter{}, refresher, &fakeNotifier{allSent: true}, false)

	entries := []DescriptorInput{entryFor(1, "asos", ""), entryFor(2, "asos", "")}
	result, err := p.Run(context.Background(), entries)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Refreshed)
	assert.Equal(t, map[int64]string{1: "Renamed Jacket"}, refresher.refreshed)
}

func TestPipeline_Run_RefreshFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, ProductName: "Renamed Jacket", CurrentPrice: decimal.NewFromInt(10)},
		},
	}
	refresher := &fakeRefresher{err: errors.New("connection reset")}
	writer := &fakeWriter{}
	d := NewDispatcher(extractor.NewRegistry(fake), extractor.NewMetricsCollector(), 4)
	p := New(d, writer, refresher, &fakeNotifier{allSent: true}, false)

	result, err := p.Run(context.Background(), []DescriptorInput{entryFor(1, "asos", "")})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 0, result.Refreshed)
	assert.Len(t, writer.written, 1)
}

func TestPipeline_Run_NotSentAll(t *testing.T) {
	t.Parallel()

	fake := &fakeExtractor{
		name: "asos",
		readings: map[int64]model.PriceReading{
			1: {ProductID: 1, CurrentPrice: decimal.NewFromInt(10)},
		},
	}
	p := newTestPipeline(t, fake, &fakeWriter{}, &fakeNotifier{allSent: false})

	result, err := p.Run(context.Background(), []DescriptorInput{entryFor(1, "asos", "")})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.False(t, result.AllSent)
}
