// Package extractor provides per-retailer plugins that turn a product page
// or API response into a normalized price reading.
package extractor

import (
	"context"
	"fmt"

	"github.com/pricepulse/backend/internal/model"
)

// Extractor is implemented once per retailer. Extract fetches the current
// page/API response for the descriptor and parses out the price and sale
// status; it must reject pages that are not product pages with
// ErrWrongPageType so the dispatcher can tell a decoy page from a transient
// network failure.
type Extractor interface {
	WebsiteName() string
	Extract(ctx context.Context, product model.ProductDescriptor) (model.PriceReading, error)
}

// Registry maps website names to their extractor. It is constructed once at
// startup and injected; nothing mutates it afterwards.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a registry from the given extractors
func NewRegistry(extractors ...Extractor) *Registry {
	m := make(map[string]Extractor, len(extractors))
	for _, e := range extractors {
		m[e.WebsiteName()] = e
	}
	return &Registry{extractors: m}
}

// Lookup returns the extractor for a website name
func (r *Registry) Lookup(websiteName string) (Extractor, error) {
	e, ok := r.extractors[websiteName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWebsite, websiteName)
	}
	return e, nil
}

// Websites returns the registered website names
func (r *Registry) Websites() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	return names
}

// Size returns the number of registered extractors
func (r *Registry) Size() int {
	return len(r.extractors)
}
