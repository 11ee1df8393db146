package pricing

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/adseller/deal-server/errortypes"
)

// validateConfig rejects configurations that could produce nonsensical
// prices. It runs once at engine construction.
func validateConfig(cfg *TieredConfig) error {
	if cfg.GlobalFloorCPM < 0 {
		return &errortypes.MalformedConfig{Message: fmt.Sprintf("global_floor_cpm must be non-negative, got %g", cfg.GlobalFloorCPM)}
	}
	if cfg.GlobalCeilingCPM > 0 && cfg.GlobalCeilingCPM < cfg.GlobalFloorCPM {
		return &errortypes.MalformedConfig{Message: fmt.Sprintf("global_ceiling_cpm %g is below global_floor_cpm %g", cfg.GlobalCeilingCPM, cfg.GlobalFloorCPM)}
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}

	for tier, tc := range cfg.Tiers {
		if tc.TierDiscount < 0 || tc.TierDiscount >= 1 {
			return &errortypes.MalformedConfig{Message: fmt.Sprintf("tier %s: tier_discount must be in [0,1), got %g", tier, tc.TierDiscount)}
		}
		if tc.PriceRangeVariance < 0 || tc.PriceRangeVariance >= 1 {
			return &errortypes.MalformedConfig{Message: fmt.Sprintf("tier %s: price_range_variance must be in [0,1), got %g", tier, tc.PriceRangeVariance)}
		}
	}

	for _, rule := range cfg.Rules {
		if rule.RuleID == "" {
			return &errortypes.MalformedConfig{Message: "pricing rule with empty rule_id"}
		}
		if rule.DiscountPercentage < 0 || rule.DiscountPercentage >= 1 {
			return &errortypes.MalformedConfig{Message: fmt.Sprintf("rule %s: discount_percentage must be in [0,1), got %g", rule.RuleID, rule.DiscountPercentage)}
		}
		if rule.MaxNegotiationDiscount < 0 || rule.MaxNegotiationDiscount >= 1 {
			return &errortypes.MalformedConfig{Message: fmt.Sprintf("rule %s: max_negotiation_discount must be in [0,1), got %g", rule.RuleID, rule.MaxNegotiationDiscount)}
		}
		for _, vd := range rule.VolumeDiscounts {
			if vd.MinImpressions < 0 {
				return &errortypes.MalformedConfig{Message: fmt.Sprintf("rule %s: volume discount min_impressions must be non-negative", rule.RuleID)}
			}
			if vd.MaxImpressions > 0 && vd.MaxImpressions < vd.MinImpressions {
				return &errortypes.MalformedConfig{Message: fmt.Sprintf("rule %s: volume discount max_impressions below min_impressions", rule.RuleID)}
			}
			if vd.DiscountValue < 0 || vd.DiscountValue >= 1 {
				return &errortypes.MalformedConfig{Message: fmt.Sprintf("rule %s: volume discount_value must be in [0,1), got %g", rule.RuleID, vd.DiscountValue)}
			}
		}
	}

	return nil
}

// ruleFileSchema is the JSON Schema rule files must satisfy before they are
// unmarshalled. Structural problems surface here with field-level messages
// instead of as zero values deep in a price calculation.
const ruleFileSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["rule_id", "rule_name"],
    "properties": {
      "rule_id": { "type": "string", "minLength": 1 },
      "rule_name": { "type": "string", "minLength": 1 },
      "priority": { "type": "integer" },
      "access_tier": { "enum": ["public", "seat", "agency", "advertiser"] },
      "agency_ids": { "type": "array", "items": { "type": "string" } },
      "advertiser_ids": { "type": "array", "items": { "type": "string" } },
      "holding_company_ids": { "type": "array", "items": { "type": "string" } },
      "product_ids": { "type": "array", "items": { "type": "string" } },
      "inventory_types": { "type": "array", "items": { "type": "string" } },
      "base_price_override": { "type": "number", "minimum": 0 },
      "discount_percentage": { "type": "number", "minimum": 0, "maximum": 1 },
      "negotiation_enabled": { "type": "boolean" },
      "max_negotiation_discount": { "type": "number", "minimum": 0, "maximum": 1 },
      "is_active": { "type": "boolean" },
      "volume_discounts": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["min_impressions", "discount_value"],
          "properties": {
            "min_impressions": { "type": "integer", "minimum": 0 },
            "max_impressions": { "type": "integer", "minimum": 0 },
            "discount_type": { "enum": ["percentage", "fixed_amount", "fixed_price"] },
            "discount_value": { "type": "number", "minimum": 0, "maximum": 1 }
          }
        }
      }
    }
  }
}`

// ValidateRulesJSON checks a raw pricing rule file against the rule schema.
func ValidateRulesJSON(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(ruleFileSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return &errortypes.MalformedConfig{Message: fmt.Sprintf("pricing rule file is not valid JSON: %v", err)}
	}
	if !result.Valid() {
		errs := make([]error, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, &errortypes.MalformedConfig{Message: desc.String()})
		}
		return errortypes.NewAggregateErrors("pricing rule file failed schema validation", errs)
	}
	return nil
}
