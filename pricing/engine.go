// Package pricing computes tiered deal prices from a buyer's revealed
// identity, the seller's rule set, and committed volume. The engine holds no
// per-call state: the same inputs against the same configuration always
// produce the same decision.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/glog"

	"github.com/adseller/deal-server/currency"
	"github.com/adseller/deal-server/identity"
	"github.com/adseller/deal-server/opendirect"
)

// Default volume breakpoints used when no matched rule defines a ladder.
var defaultVolumeBreaks = []VolumeDiscount{
	{MinImpressions: 50000000, DiscountValue: 0.20},
	{MinImpressions: 20000000, DiscountValue: 0.15},
	{MinImpressions: 10000000, DiscountValue: 0.10},
	{MinImpressions: 5000000, DiscountValue: 0.05},
}

const defaultMaxNegotiationDiscount = 0.10

// Decision is the immutable output of one pricing call.
type Decision struct {
	ProductID  string              `json:"product_id"`
	DealType   opendirect.DealType `json:"deal_type"`
	BuyerTier  identity.AccessTier `json:"buyer_tier"`
	PricingKey string              `json:"pricing_key"`

	BasePrice      float64                 `json:"base_price"`
	TierDiscount   float64                 `json:"tier_discount"`
	RuleDiscount   float64                 `json:"rule_discount"`
	VolumeDiscount float64                 `json:"volume_discount"`
	FinalPrice     float64                 `json:"final_price"`
	Currency       string                  `json:"currency"`
	PricingModel   opendirect.PricingModel `json:"pricing_model"`

	Rationale    string   `json:"rationale"`
	AppliedRules []string `json:"applied_rules"`
}

// PriceDisplay is a tier-appropriate rendering of a price: an exact number
// for tiers configured to see one, a symmetric range otherwise.
type PriceDisplay struct {
	Type               string  `json:"type"` // exact or range
	Price              float64 `json:"price,omitempty"`
	Low                float64 `json:"low,omitempty"`
	High               float64 `json:"high,omitempty"`
	Currency           string  `json:"currency"`
	Display            string  `json:"display,omitempty"`
	NegotiationEnabled bool    `json:"negotiation_enabled,omitempty"`
}

// Engine computes tiered prices against a single seller configuration.
type Engine struct {
	cfg         *TieredConfig
	conversions currency.Conversions
}

// NewEngine validates the configuration and returns a pricing engine.
// Malformed configuration aborts construction, never a per-call price.
func NewEngine(cfg *TieredConfig, conversions currency.Conversions) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pricing: nil configuration")
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if conversions == nil {
		conversions = currency.NewConstantRates()
	}
	return &Engine{cfg: cfg, conversions: conversions}, nil
}

// Config returns the engine's configuration. Callers must treat it as read-only.
func (e *Engine) Config() *TieredConfig {
	return e.cfg
}

// CalculatePrice computes the final price for a buyer. All inputs produce a
// decision: unknown tiers price as public, and zero or negative base prices
// are still subject to the floor and ceiling.
func (e *Engine) CalculatePrice(productID string, basePrice float64, buyerCtx *identity.BuyerContext, dealType opendirect.DealType, volume int64, inventoryType string) Decision {
	tier := buyerCtx.EffectiveTier()
	tierCfg := e.cfg.TierConfigFor(tier)

	price := basePrice
	var appliedRules []string

	tierDiscount := tierCfg.TierDiscount
	if tierDiscount > 0 {
		price = price * (1 - tierDiscount)
		appliedRules = append(appliedRules, fmt.Sprintf("Tier discount: -%.0f%%", tierDiscount*100))
	}

	match := RuleMatch{
		Tier:          tier,
		ProductID:     productID,
		InventoryType: inventoryType,
	}
	if buyerCtx != nil {
		match.AgencyID = buyerCtx.Identity.AgencyID
		match.AdvertiserID = buyerCtx.Identity.AdvertiserID
		match.HoldingCompany = buyerCtx.Identity.AgencyHoldingCompany
	}
	matchingRules := e.cfg.FindMatchingRules(match)

	ruleDiscount := 0.0
	overridden := false
	for _, rule := range matchingRules {
		if rule.BasePriceOverride != nil {
			price = *rule.BasePriceOverride
			appliedRules = append(appliedRules, fmt.Sprintf("Rule '%s': Price override $%g", rule.RuleName, *rule.BasePriceOverride))
			overridden = true
			break // overrides short-circuit and skip percentage discounts
		}
		if rule.DiscountPercentage > ruleDiscount {
			ruleDiscount = rule.DiscountPercentage
		}
	}
	if overridden {
		ruleDiscount = 0
	} else if ruleDiscount > 0 {
		price = price * (1 - ruleDiscount)
		appliedRules = append(appliedRules, fmt.Sprintf("Rule discount: -%.0f%%", ruleDiscount*100))
	}

	volumeDiscount := 0.0
	if tierCfg.VolumeDiscountsEnabled && volume > 0 {
		volumeDiscount = calculateVolumeDiscount(volume, matchingRules)
		if volumeDiscount > 0 {
			price = price * (1 - volumeDiscount)
			appliedRules = append(appliedRules, fmt.Sprintf("Volume discount: -%.1f%%", volumeDiscount*100))
		}
	}

	// The floor always wins over every prior step, overrides included.
	if price < e.cfg.GlobalFloorCPM {
		price = e.cfg.GlobalFloorCPM
		appliedRules = append(appliedRules, fmt.Sprintf("Floor enforced: $%g", e.cfg.GlobalFloorCPM))
	}
	if e.cfg.GlobalCeilingCPM > 0 && price > e.cfg.GlobalCeilingCPM {
		price = e.cfg.GlobalCeilingCPM
		appliedRules = append(appliedRules, fmt.Sprintf("Ceiling enforced: $%g", e.cfg.GlobalCeilingCPM))
	}

	price = roundPrice(price)

	return Decision{
		ProductID:      productID,
		DealType:       dealType,
		BuyerTier:      tier,
		PricingKey:     buyerCtx.PricingKey(),
		BasePrice:      basePrice,
		TierDiscount:   tierDiscount,
		RuleDiscount:   ruleDiscount,
		VolumeDiscount: volumeDiscount,
		FinalPrice:     price,
		Currency:       e.cfg.DefaultCurrency,
		PricingModel:   opendirect.PricingModelCPM,
		Rationale:      buildRationale(basePrice, price, tier, tierDiscount, ruleDiscount, volumeDiscount),
		AppliedRules:   appliedRules,
	}
}

// calculateVolumeDiscount finds the steepest applicable rung among matched
// rules, falling back to the built-in breakpoints when no rule defines ladders.
func calculateVolumeDiscount(volume int64, rules []Rule) float64 {
	maxDiscount := 0.0
	for _, rule := range rules {
		for _, vd := range rule.VolumeDiscounts {
			if vd.Applies(volume) && vd.DiscountType != DiscountFixedAmount && vd.DiscountType != DiscountFixedPrice {
				if vd.DiscountValue > maxDiscount {
					maxDiscount = vd.DiscountValue
				}
			}
		}
	}
	if maxDiscount == 0.0 {
		for _, vd := range defaultVolumeBreaks {
			if volume >= vd.MinImpressions {
				maxDiscount = vd.DiscountValue
				break
			}
		}
	}
	return maxDiscount
}

func buildRationale(basePrice, finalPrice float64, tier identity.AccessTier, tierDiscount, ruleDiscount, volumeDiscount float64) string {
	parts := []string{fmt.Sprintf("Base price: $%.2f CPM", basePrice)}

	if tierDiscount > 0 {
		parts = append(parts, fmt.Sprintf("%s tier: -%.0f%%", strings.Title(string(tier)), tierDiscount*100))
	}
	if ruleDiscount > 0 {
		parts = append(parts, fmt.Sprintf("Custom rule: -%.0f%%", ruleDiscount*100))
	}
	if volumeDiscount > 0 {
		parts = append(parts, fmt.Sprintf("Volume discount: -%.1f%%", volumeDiscount*100))
	}

	parts = append(parts, fmt.Sprintf("Final price: $%.2f CPM", finalPrice))

	if basePrice > 0 {
		if totalDiscount := 1 - (finalPrice / basePrice); totalDiscount > 0 {
			parts = append(parts, fmt.Sprintf("(Total savings: %.1f%%)", totalDiscount*100))
		}
	}

	return strings.Join(parts, " | ")
}

// GetPriceDisplay renders a price the way the buyer's tier is allowed to see
// it: the tier-discounted number for exact-price tiers, a range otherwise.
func (e *Engine) GetPriceDisplay(basePrice float64, buyerCtx *identity.BuyerContext) PriceDisplay {
	tierCfg := e.cfg.TierConfigFor(buyerCtx.EffectiveTier())

	if tierCfg.ShowExactPrice {
		return PriceDisplay{
			Type:               "exact",
			Price:              roundPrice(basePrice * (1 - tierCfg.TierDiscount)),
			Currency:           e.cfg.DefaultCurrency,
			NegotiationEnabled: tierCfg.NegotiationEnabled,
		}
	}

	low := math.Round(basePrice * (1 - tierCfg.PriceRangeVariance))
	high := math.Round(basePrice * (1 + tierCfg.PriceRangeVariance))
	return PriceDisplay{
		Type:     "range",
		Low:      low,
		High:     high,
		Currency: e.cfg.DefaultCurrency,
		Display:  fmt.Sprintf("$%.0f-$%.0f CPM", low, high),
	}
}

// IsPriceAcceptable checks an offered price against the global floor, the
// product floor, and the buyer's negotiation allowance. Offers quoted in a
// different currency are converted before comparison; a missing conversion
// rate rejects the offer rather than guessing.
func (e *Engine) IsPriceAcceptable(offeredPrice float64, offeredCurrency string, productFloor float64, buyerCtx *identity.BuyerContext) (bool, string) {
	if offeredCurrency != "" && offeredCurrency != e.cfg.DefaultCurrency {
		rate, err := e.conversions.GetRate(offeredCurrency, e.cfg.DefaultCurrency)
		if err != nil {
			glog.Warningf("No conversion rate from %s to %s: %v", offeredCurrency, e.cfg.DefaultCurrency, err)
			return false, fmt.Sprintf("No conversion rate for %s", offeredCurrency)
		}
		offeredPrice = offeredPrice * rate
	}

	if offeredPrice < e.cfg.GlobalFloorCPM {
		return false, fmt.Sprintf("Below global floor ($%g CPM)", e.cfg.GlobalFloorCPM)
	}
	if offeredPrice < productFloor {
		return false, fmt.Sprintf("Below product floor ($%g CPM)", productFloor)
	}

	if buyerCtx != nil {
		tier := buyerCtx.EffectiveTier()
		tierCfg := e.cfg.TierConfigFor(tier)
		if tierCfg.NegotiationEnabled {
			rules := e.cfg.FindMatchingRules(RuleMatch{
				Tier:         tier,
				AgencyID:     buyerCtx.Identity.AgencyID,
				AdvertiserID: buyerCtx.Identity.AdvertiserID,
			})
			maxNegotiation := 0.0
			found := false
			for _, r := range rules {
				if r.NegotiationEnabled {
					if r.MaxNegotiationDiscount > maxNegotiation {
						maxNegotiation = r.MaxNegotiationDiscount
					}
					found = true
				}
			}
			if !found {
				maxNegotiation = defaultMaxNegotiationDiscount
			}
			minAcceptable := productFloor * (1 - maxNegotiation)
			if offeredPrice < minAcceptable {
				return false, fmt.Sprintf("Below negotiation floor ($%.2f CPM)", minAcceptable)
			}
		}
	}

	return true, "Price acceptable"
}

func roundPrice(price float64) float64 {
	return math.Round(price*100) / 100
}
