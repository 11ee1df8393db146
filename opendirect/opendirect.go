// Package opendirect holds the deal vocabulary shared across the pricing,
// proposal and deal packages: deal types, pricing models, and activation modes.
package opendirect

// DealType is the delivery and pricing commitment model for a deal.
type DealType string

const (
	// DealTypeProgrammaticGuaranteed is a fixed-price, guaranteed-volume deal (PG).
	DealTypeProgrammaticGuaranteed DealType = "programmatic_guaranteed"
	// DealTypePreferredDeal is a fixed-price, non-guaranteed deal (PD).
	DealTypePreferredDeal DealType = "preferred_deal"
	// DealTypePrivateAuction is an invitation-only auction with a floor (PA).
	DealTypePrivateAuction DealType = "private_auction"
)

// Valid reports whether the deal type is one of the supported commitment models.
func (dt DealType) Valid() bool {
	switch dt {
	case DealTypeProgrammaticGuaranteed, DealTypePreferredDeal, DealTypePrivateAuction:
		return true
	}
	return false
}

// PricingModel is the unit prices are quoted in.
type PricingModel string

const (
	PricingModelCPM  PricingModel = "cpm"
	PricingModelCPC  PricingModel = "cpc"
	PricingModelFlat PricingModel = "flat_rate"
)

// ActivationType describes how a created deal gets activated downstream.
type ActivationType string

const (
	ActivationAgentic        ActivationType = "agentic"
	ActivationTraditionalDSP ActivationType = "traditional_dsp"
)
