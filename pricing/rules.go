package pricing

import (
	"github.com/adseller/deal-server/identity"
)

// DiscountType is how a volume discount rung expresses its value.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
	DiscountFixedPrice  DiscountType = "fixed_price"
)

// VolumeDiscount is one rung of a volume-discount ladder. A rung applies when
// volume >= MinImpressions and, if MaxImpressions is set, volume <= MaxImpressions.
type VolumeDiscount struct {
	MinImpressions int64        `json:"min_impressions"`
	MaxImpressions int64        `json:"max_impressions,omitempty"` // 0 means no upper bound
	DiscountType   DiscountType `json:"discount_type,omitempty"`
	DiscountValue  float64      `json:"discount_value"` // fraction (0-1) for percentage type
}

// Applies reports whether this rung covers the given impression volume.
func (vd *VolumeDiscount) Applies(volume int64) bool {
	if volume < vd.MinImpressions {
		return false
	}
	if vd.MaxImpressions > 0 && volume > vd.MaxImpressions {
		return false
	}
	return true
}

// RuleMatch is the context a rule predicate is evaluated against.
type RuleMatch struct {
	Tier           identity.AccessTier
	AgencyID       string
	AdvertiserID   string
	HoldingCompany string
	ProductID      string
	InventoryType  string
}

// Rule is a priority-ordered pricing rule. Each populated predicate field is an
// AND condition; an empty predicate field matches anything. Rules are
// configuration data, never created per-request.
type Rule struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Priority int    `json:"priority"` // higher priority rules evaluated first

	AccessTier        identity.AccessTier `json:"access_tier,omitempty"`
	AgencyIDs         []string            `json:"agency_ids,omitempty"`
	AdvertiserIDs     []string            `json:"advertiser_ids,omitempty"`
	HoldingCompanyIDs []string            `json:"holding_company_ids,omitempty"`
	ProductIDs        []string            `json:"product_ids,omitempty"`
	InventoryTypes    []string            `json:"inventory_types,omitempty"`

	BasePriceOverride  *float64 `json:"base_price_override,omitempty"`
	DiscountPercentage float64  `json:"discount_percentage,omitempty"`

	VolumeDiscounts []VolumeDiscount `json:"volume_discounts,omitempty"`

	NegotiationEnabled     bool    `json:"negotiation_enabled,omitempty"`
	MaxNegotiationDiscount float64 `json:"max_negotiation_discount,omitempty"`

	ValidFrom string `json:"valid_from,omitempty"`
	ValidTo   string `json:"valid_to,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// Matches checks if this rule's predicate covers the given context.
func (r *Rule) Matches(m RuleMatch) bool {
	if r.AccessTier != "" && r.AccessTier != m.Tier {
		return false
	}
	if len(r.AgencyIDs) > 0 && !contains(r.AgencyIDs, m.AgencyID) {
		return false
	}
	if len(r.AdvertiserIDs) > 0 && !contains(r.AdvertiserIDs, m.AdvertiserID) {
		return false
	}
	if len(r.HoldingCompanyIDs) > 0 && !contains(r.HoldingCompanyIDs, m.HoldingCompany) {
		return false
	}
	if len(r.ProductIDs) > 0 && !contains(r.ProductIDs, m.ProductID) {
		return false
	}
	if len(r.InventoryTypes) > 0 && !contains(r.InventoryTypes, m.InventoryType) {
		return false
	}
	return true
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
