package pricing

import (
	"sort"

	"github.com/adseller/deal-server/identity"
)

// TierConfig sets the default pricing behavior for one access tier.
type TierConfig struct {
	Tier        identity.AccessTier `json:"tier"`
	TierName    string              `json:"tier_name"`
	Description string              `json:"description,omitempty"`

	// ShowExactPrice false means the tier sees price ranges instead of numbers.
	ShowExactPrice     bool    `json:"show_exact_price"`
	PriceRangeVariance float64 `json:"price_range_variance"` // +/- fraction for ranges

	TierDiscount float64 `json:"tier_discount"` // base discount from MSRP, fraction

	NegotiationEnabled     bool   `json:"negotiation_enabled"`
	PremiumInventoryAccess bool   `json:"premium_inventory_access"`
	CustomDealsEnabled     bool   `json:"custom_deals_enabled"`
	VolumeDiscountsEnabled bool   `json:"volume_discounts_enabled"`
	AvailsGranularity      string `json:"avails_granularity"` // high_level, moderate, detailed
}

// TieredConfig is the complete tiered pricing configuration for a seller.
// One long-lived instance per seller, read-only during evaluation.
type TieredConfig struct {
	SellerOrganizationID string `json:"seller_organization_id"`

	Tiers map[identity.AccessTier]TierConfig `json:"tiers,omitempty"`
	Rules []Rule                             `json:"rules,omitempty"`

	DefaultCurrency  string  `json:"default_currency"`
	GlobalFloorCPM   float64 `json:"global_floor_cpm"`
	GlobalCeilingCPM float64 `json:"global_ceiling_cpm,omitempty"` // 0 means no ceiling
}

// DefaultTiers returns the built-in tier ladder: public sees ranges with no
// discount, seat gets 5% off, agency 10% with negotiation, advertiser 15%
// with the full feature set.
func DefaultTiers() map[identity.AccessTier]TierConfig {
	return map[identity.AccessTier]TierConfig{
		identity.TierPublic: {
			Tier:               identity.TierPublic,
			TierName:           "Public",
			Description:        "General product catalog with price ranges",
			ShowExactPrice:     false,
			PriceRangeVariance: 0.2,
			TierDiscount:       0.0,
			AvailsGranularity:  "high_level",
		},
		identity.TierSeat: {
			Tier:               identity.TierSeat,
			TierName:           "Seat",
			Description:        "Authenticated DSP seat with standard pricing",
			ShowExactPrice:     true,
			TierDiscount:       0.05,
			CustomDealsEnabled: true,
			AvailsGranularity:  "moderate",
		},
		identity.TierAgency: {
			Tier:                   identity.TierAgency,
			TierName:               "Agency",
			Description:            "Agency-specific pricing with negotiation",
			ShowExactPrice:         true,
			TierDiscount:           0.10,
			NegotiationEnabled:     true,
			PremiumInventoryAccess: true,
			CustomDealsEnabled:     true,
			VolumeDiscountsEnabled: true,
			AvailsGranularity:      "detailed",
		},
		identity.TierAdvertiser: {
			Tier:                   identity.TierAdvertiser,
			TierName:               "Advertiser",
			Description:            "Best available rates with full negotiation",
			ShowExactPrice:         true,
			TierDiscount:           0.15,
			NegotiationEnabled:     true,
			PremiumInventoryAccess: true,
			CustomDealsEnabled:     true,
			VolumeDiscountsEnabled: true,
			AvailsGranularity:      "detailed",
		},
	}
}

// NewTieredConfig builds a config with the default tier ladder, a $1 global
// floor and USD pricing.
func NewTieredConfig(sellerOrgID string) *TieredConfig {
	return &TieredConfig{
		SellerOrganizationID: sellerOrgID,
		Tiers:                DefaultTiers(),
		DefaultCurrency:      "USD",
		GlobalFloorCPM:       1.0,
	}
}

// TierConfigFor returns the configuration for a tier, falling back to the
// public tier configuration for unknown tiers.
func (c *TieredConfig) TierConfigFor(tier identity.AccessTier) TierConfig {
	if cfg, ok := c.Tiers[tier]; ok {
		return cfg
	}
	return c.Tiers[identity.TierPublic]
}

// FindMatchingRules returns all active rules matching the context, sorted by
// descending priority.
func (c *TieredConfig) FindMatchingRules(m RuleMatch) []Rule {
	var matching []Rule
	for _, rule := range c.Rules {
		if rule.IsActive && rule.Matches(m) {
			matching = append(matching, rule)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Priority > matching[j].Priority
	})
	return matching
}
