// Package catalog holds the seller's product definitions and the fetchers
// that load them from memory, local files, or Postgres.
package catalog

import (
	"context"
	"fmt"

	"github.com/adseller/deal-server/audience"
	"github.com/adseller/deal-server/opendirect"
)

// ProductDefinition describes one sellable inventory product.
type ProductDefinition struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	InventoryType       string   `json:"inventory_type"` // display, video, ctv, mobile_app, native
	InventorySegmentIDs []string `json:"inventory_segment_ids,omitempty"`

	SupportedDealTypes     []opendirect.DealType     `json:"supported_deal_types"`
	SupportedPricingModels []opendirect.PricingModel `json:"supported_pricing_models,omitempty"`

	BaseCPM  float64 `json:"base_cpm"`
	FloorCPM float64 `json:"floor_cpm"`
	Currency string  `json:"currency,omitempty"`

	AudienceTargeting map[string]string `json:"audience_targeting,omitempty"`
	ContentTargeting  map[string]string `json:"content_targeting,omitempty"`

	MinimumImpressions int64 `json:"minimum_impressions,omitempty"`
	MaximumImpressions int64 `json:"maximum_impressions,omitempty"`

	Capabilities []audience.Capability `json:"audience_capabilities,omitempty"`
	Embedding    *audience.Embedding   `json:"inventory_embedding,omitempty"`
}

// SupportsDealType reports whether the product can be sold under the given
// deal type.
func (p *ProductDefinition) SupportsDealType(dt opendirect.DealType) bool {
	for _, supported := range p.SupportedDealTypes {
		if supported == dt {
			return true
		}
	}
	return false
}

// Characteristics flattens the product attributes used to derive a synthetic
// inventory embedding when no trained one is stored.
func (p *ProductDefinition) Characteristics() map[string]string {
	chars := map[string]string{
		"product_id":     p.ProductID,
		"inventory_type": p.InventoryType,
	}
	for k, v := range p.AudienceTargeting {
		chars["audience_"+k] = v
	}
	for k, v := range p.ContentTargeting {
		chars["content_"+k] = v
	}
	return chars
}

// InventoryEmbedding returns the stored embedding, or derives a deterministic
// synthetic one from the product characteristics.
func (p *ProductDefinition) InventoryEmbedding() *audience.Embedding {
	if p.Embedding != nil {
		return p.Embedding
	}
	return audience.NewInventoryEmbedding(p.Characteristics(), audience.DefaultDimension)
}

// DefaultCapabilities is the capability set assumed for products that declare
// none: contextual and geographic signals with near-full coverage, plus a
// demographic identity signal.
func DefaultCapabilities(productID string) []audience.Capability {
	return []audience.Capability{
		{
			CapabilityID:       productID + "_ctx",
			Name:               "Contextual Targeting",
			SignalType:         audience.SignalContextual,
			CoveragePercentage: 95.0,
			ExchangeCompatible: true,
			EmbeddingDimension: audience.DefaultDimension,
		},
		{
			CapabilityID:       productID + "_geo",
			Name:               "Geographic Targeting",
			SignalType:         audience.SignalContextual,
			CoveragePercentage: 98.0,
			ExchangeCompatible: true,
			EmbeddingDimension: audience.DefaultDimension,
		},
		{
			CapabilityID:       productID + "_demo",
			Name:               "Demographic Targeting",
			SignalType:         audience.SignalIdentity,
			CoveragePercentage: 70.0,
			ExchangeCompatible: true,
			EmbeddingDimension: audience.DefaultDimension,
		},
	}
}

// EffectiveCapabilities returns the product's declared capabilities, or the
// defaults when it declares none.
func (p *ProductDefinition) EffectiveCapabilities() []audience.Capability {
	if len(p.Capabilities) > 0 {
		return p.Capabilities
	}
	return DefaultCapabilities(p.ProductID)
}

// Fetcher loads product definitions by id.
type Fetcher interface {
	// FetchProduct returns the product with the given id, or a *NotFoundError
	// if the catalog has no such product.
	FetchProduct(ctx context.Context, productID string) (*ProductDefinition, error)
}

// NotFoundError is returned when a product id does not resolve.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(`Product with ID="%s" not found.`, e.ID)
}

// IsNotFound reports whether err is a catalog NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}
