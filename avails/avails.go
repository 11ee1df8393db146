// Package avails abstracts the availability source that reports how many
// impressions a product can still deliver over a flight window.
package avails

import (
	"context"
	"time"
)

// Source reports deliverable impressions for a product over a flight window.
// Implementations typically front an ad server or forecasting system.
type Source interface {
	AvailableImpressions(ctx context.Context, productID string, start, end time.Time) (int64, error)
}

// DefaultAvailableImpressions is what a static source reports per product
// when no explicit figure is configured.
const DefaultAvailableImpressions = 1000000

// NewStaticSource returns a Source backed by a fixed per-product table.
// Products absent from the table report the default availability, so a
// partially configured table degrades rather than blocks.
func NewStaticSource(byProduct map[string]int64) Source {
	return &staticSource{byProduct: byProduct}
}

type staticSource struct {
	byProduct map[string]int64
}

func (s *staticSource) AvailableImpressions(ctx context.Context, productID string, start, end time.Time) (int64, error) {
	if impressions, ok := s.byProduct[productID]; ok {
		return impressions, nil
	}
	return DefaultAvailableImpressions, nil
}
