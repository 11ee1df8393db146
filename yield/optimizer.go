// Package yield scores deal opportunities against short-term revenue and
// long-term yield objectives and turns the score into an accept, counter or
// reject recommendation.
package yield

import (
	"fmt"
	"strings"

	"github.com/adseller/deal-server/identity"
)

// Defaults for a freshly constructed Optimizer.
const (
	DefaultFillRateTarget     = 0.85
	DefaultRevenueWeight      = 0.4
	DefaultRelationshipWeight = 0.3
	DefaultFillRateWeight     = 0.2
	DefaultPricingPowerWeight = 0.1
)

// Recommendation actions.
const (
	ActionAccept  = "accept"
	ActionCounter = "counter"
	ActionReject  = "reject"
	ActionUpsell  = "upsell"
	ActionNone    = "none"
)

// Evaluation is the slice of a proposal evaluation the optimizer needs to
// score a deal. The flow layer populates it from its own state so the two
// packages stay decoupled.
type Evaluation struct {
	ProductID              string
	Valid                  bool
	ValidationErrors       []string
	RequestedPrice         float64
	RecommendedPrice       float64
	MinimumAcceptablePrice float64
	PriceAcceptable        bool
	ImpressionsAvailable   bool
	RequestedImpressions   int64
	AvailableImpressions   int64
}

// Score breaks a deal's overall attractiveness into its weighted components.
// All values are on a 0-1 scale.
type Score struct {
	OverallScore       float64 `json:"overall_score"`
	RevenueScore       float64 `json:"revenue_score"`
	RelationshipScore  float64 `json:"relationship_score"`
	FillRateImpact     float64 `json:"fill_rate_impact"`
	PricingPowerImpact float64 `json:"pricing_power_impact"`
	Recommendation     string  `json:"recommendation"`
	Rationale          string  `json:"rationale"`
}

// Recommendation is the optimizer's advice beyond the raw score: counter
// terms to send back, or an upsell to attach to an accepted deal.
type Recommendation struct {
	Action            string                 `json:"action"`
	Confidence        float64                `json:"confidence"`
	Rationale         string                 `json:"rationale"`
	CounterTerms      map[string]interface{} `json:"counter_terms,omitempty"`
	UpsellOpportunity string                 `json:"upsell_opportunity,omitempty"`
}

// Optimizer weighs revenue, relationship value, fill rate and pricing power
// into a single deal score. Weights must sum to 1.
type Optimizer struct {
	fillRateTarget     float64
	revenueWeight      float64
	relationshipWeight float64
	fillRateWeight     float64
	pricingPowerWeight float64
}

// NewOptimizer returns an optimizer with the default weights and fill target.
func NewOptimizer() *Optimizer {
	return &Optimizer{
		fillRateTarget:     DefaultFillRateTarget,
		revenueWeight:      DefaultRevenueWeight,
		relationshipWeight: DefaultRelationshipWeight,
		fillRateWeight:     DefaultFillRateWeight,
		pricingPowerWeight: DefaultPricingPowerWeight,
	}
}

// NewOptimizerWithWeights returns an optimizer with explicit weights. The
// four weights must sum to 1 within a small tolerance.
func NewOptimizerWithWeights(fillRateTarget, revenue, relationship, fillRate, pricingPower float64) (*Optimizer, error) {
	sum := revenue + relationship + fillRate + pricingPower
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("yield weights must sum to 1, got %.3f", sum)
	}
	if fillRateTarget <= 0 || fillRateTarget > 1 {
		return nil, fmt.Errorf("fill rate target must be in (0, 1], got %.3f", fillRateTarget)
	}
	return &Optimizer{
		fillRateTarget:     fillRateTarget,
		revenueWeight:      revenue,
		relationshipWeight: relationship,
		fillRateWeight:     fillRate,
		pricingPowerWeight: pricingPower,
	}, nil
}

// ScoreDeal scores a deal opportunity. currentFillRate is the seller's fill
// rate going into the deal and marketCPM the prevailing market rate for
// comparable inventory.
func (o *Optimizer) ScoreDeal(eval Evaluation, buyerCtx *identity.BuyerContext, currentFillRate, marketCPM float64) Score {
	revenueScore := o.revenueScore(eval.RequestedPrice, eval.RecommendedPrice)
	relationshipScore := o.relationshipScore(buyerCtx)
	fillRateImpact := o.fillRateImpact(currentFillRate, eval.ImpressionsAvailable)
	pricingPowerImpact := o.pricingPowerImpact(eval.RequestedPrice, marketCPM)

	overall := revenueScore*o.revenueWeight +
		relationshipScore*o.relationshipWeight +
		fillRateImpact*o.fillRateWeight +
		pricingPowerImpact*o.pricingPowerWeight

	recommendation, rationale := o.recommend(overall, eval, revenueScore, relationshipScore)

	return Score{
		OverallScore:       overall,
		RevenueScore:       revenueScore,
		RelationshipScore:  relationshipScore,
		FillRateImpact:     fillRateImpact,
		PricingPowerImpact: pricingPowerImpact,
		Recommendation:     recommendation,
		Rationale:          rationale,
	}
}

// revenueScore grades the offered price against the seller's recommended
// price. Offers at or above recommendation saturate quickly; offers below
// 80% of recommendation fall off steeply.
func (o *Optimizer) revenueScore(offeredPrice, recommendedPrice float64) float64 {
	if recommendedPrice <= 0 {
		return 0.5
	}

	ratio := offeredPrice / recommendedPrice
	switch {
	case ratio >= 1.0:
		return min(1.0, 0.8+(ratio-1.0)*0.2)
	case ratio >= 0.9:
		return 0.6 + (ratio-0.9)*2.0
	case ratio >= 0.8:
		return 0.4 + (ratio-0.8)*2.0
	default:
		return max(0.0, ratio*0.5)
	}
}

// relationshipScore grades the buyer's long-term value: base score by tier,
// boosted for spend history, active deals and payment record, capped at 1.
func (o *Optimizer) relationshipScore(buyerCtx *identity.BuyerContext) float64 {
	if buyerCtx == nil {
		return 0.3
	}

	var score float64
	switch buyerCtx.EffectiveTier() {
	case identity.TierPublic:
		score = 0.2
	case identity.TierSeat:
		score = 0.4
	case identity.TierAgency:
		score = 0.6
	case identity.TierAdvertiser:
		score = 0.8
	default:
		score = 0.3
	}

	if rel := buyerCtx.Relationship; rel != nil {
		if rel.TotalHistoricalSpend > 1000000 {
			score = min(1.0, score+0.15)
		} else if rel.TotalHistoricalSpend > 100000 {
			score = min(1.0, score+0.10)
		}
		if rel.ActiveDeals > 5 {
			score = min(1.0, score+0.05)
		}
		if rel.PaymentHistory == "excellent" {
			score = min(1.0, score+0.05)
		}
	}
	return score
}

// fillRateImpact rewards deals that close a gap to the fill target and
// penalizes stacking more demand onto already-full inventory.
func (o *Optimizer) fillRateImpact(currentFillRate float64, inventoryAvailable bool) float64 {
	if !inventoryAvailable {
		return 0.0
	}
	if currentFillRate < o.fillRateTarget {
		gap := o.fillRateTarget - currentFillRate
		return min(1.0, 0.5+gap*2)
	}
	return max(0.3, 1.0-(currentFillRate-o.fillRateTarget)*2)
}

// pricingPowerImpact grades the offer against the market rate. Accepting
// below-market prices erodes pricing power over time.
func (o *Optimizer) pricingPowerImpact(offeredPrice, marketCPM float64) float64 {
	if marketCPM <= 0 {
		return 0.5
	}

	ratio := offeredPrice / marketCPM
	switch {
	case ratio >= 1.0:
		return min(1.0, 0.7+(ratio-1.0)*0.3)
	case ratio >= 0.9:
		return 0.5 + (ratio-0.9)*2.0
	default:
		return max(0.2, ratio*0.5)
	}
}

func (o *Optimizer) recommend(overall float64, eval Evaluation, revenueScore, relationshipScore float64) (string, string) {
	if !eval.Valid {
		return ActionReject, "Invalid proposal: " + strings.Join(eval.ValidationErrors, ", ")
	}
	if !eval.ImpressionsAvailable {
		return ActionReject, "Insufficient inventory availability"
	}

	switch {
	case overall >= 0.7:
		return ActionAccept, fmt.Sprintf(
			"Strong yield opportunity (score: %.2f). Revenue: %.2f, Relationship: %.2f",
			overall, revenueScore, relationshipScore)
	case overall >= 0.5:
		if revenueScore < 0.5 && relationshipScore >= 0.6 {
			return ActionCounter, "Strategic buyer but price needs improvement. Counter with recommended price for better yield."
		}
		return ActionAccept, fmt.Sprintf(
			"Acceptable yield (score: %.2f). Consider upsell opportunities.", overall)
	case overall >= 0.3:
		return ActionCounter, fmt.Sprintf(
			"Below yield threshold (score: %.2f). Counter with terms that improve revenue or relationship value.", overall)
	default:
		return ActionReject, fmt.Sprintf(
			"Poor yield opportunity (score: %.2f). Price and/or terms are not acceptable.", overall)
	}
}

// RecommendCounterTerms builds the counter-proposal terms for a deal that
// scored into the counter band: price at the recommendation, impressions
// capped at availability, and extra negotiation room for strategic buyers.
func (o *Optimizer) RecommendCounterTerms(eval Evaluation, buyerCtx *identity.BuyerContext) Recommendation {
	counterTerms := make(map[string]interface{})
	var rationaleParts []string

	if !eval.PriceAcceptable {
		counterTerms["price"] = eval.RecommendedPrice
		rationaleParts = append(rationaleParts, fmt.Sprintf("Increase price to $%.2f CPM", eval.RecommendedPrice))
	}

	if eval.RequestedImpressions > eval.AvailableImpressions {
		counterTerms["impressions"] = eval.AvailableImpressions
		rationaleParts = append(rationaleParts, fmt.Sprintf("Reduce impressions to %d", eval.AvailableImpressions))
	}

	if buyerCtx.EligibleForNegotiation() {
		counterTerms["negotiation_room"] = 0.05
		rationaleParts = append(rationaleParts, "Strategic buyer - limited negotiation available")
	}

	rationale := "Standard counter terms"
	if len(rationaleParts) > 0 {
		rationale = strings.Join(rationaleParts, "; ")
	}
	return Recommendation{
		Action:       ActionCounter,
		Confidence:   0.7,
		Rationale:    rationale,
		CounterTerms: counterTerms,
	}
}

// IdentifyUpsell looks for volume, cross-sell and commitment opportunities to
// attach to a deal. Only the top opportunity is returned.
func (o *Optimizer) IdentifyUpsell(eval Evaluation, buyerCtx *identity.BuyerContext, availableProducts []string) Recommendation {
	var opportunities []string

	if eval.ImpressionsAvailable {
		opportunities = append(opportunities, "Volume upgrade: Add 20% more impressions at 10% volume discount")
	}

	if len(availableProducts) > 0 {
		offers := func(product string) bool {
			for _, p := range availableProducts {
				if p == product {
					return true
				}
			}
			return false
		}
		if strings.Contains(eval.ProductID, "display") && offers("video") {
			opportunities = append(opportunities, "Cross-sell: Add video for higher engagement and brand lift")
		}
		if strings.Contains(eval.ProductID, "display") && offers("ctv") {
			opportunities = append(opportunities, "Cross-sell: Extend to CTV for full-funnel coverage")
		}
		if strings.Contains(eval.ProductID, "video") && offers("ctv") {
			opportunities = append(opportunities, "Cross-sell: Add CTV for household-level reach")
		}
	}

	if buyerCtx.EffectiveTier() != identity.TierPublic {
		opportunities = append(opportunities, "Commitment bonus: Lock in Q2 now for preferred pricing")
	}

	if len(opportunities) > 0 {
		return Recommendation{
			Action:            ActionUpsell,
			Confidence:        0.6,
			Rationale:         "Upsell opportunities identified based on buyer profile and inventory",
			UpsellOpportunity: opportunities[0],
		}
	}
	return Recommendation{
		Action:     ActionNone,
		Confidence: 0.5,
		Rationale:  "No strong upsell opportunities identified",
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
