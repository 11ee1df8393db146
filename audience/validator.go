package audience

import (
	"fmt"
	"time"
)

const (
	// DefaultMinimumCoverageThreshold is the coverage percentage below which
	// targeting is not considered compatible.
	DefaultMinimumCoverageThreshold = 50.0

	partialMatchFloor = 30.0

	// inventoryPerCapability is the impression pool assumed per active
	// capability when estimating reach.
	inventoryPerCapability = 1000000
)

// Validator validates buyer audience requests against inventory capabilities.
// A Validator holds no per-call state and is safe for concurrent use.
type Validator struct {
	minimumCoverageThreshold float64
}

// NewValidator returns a validator with the given coverage threshold, or the
// default threshold when thresholdPct is zero or negative.
func NewValidator(thresholdPct float64) *Validator {
	if thresholdPct <= 0 {
		thresholdPct = DefaultMinimumCoverageThreshold
	}
	return &Validator{minimumCoverageThreshold: thresholdPct}
}

// Validate compares a buyer's query embedding against a product's inventory
// embedding and the product's capability list.
//
// An embedding without consent is rejected as invalid before any math runs.
// Every other input produces a graded verdict, never an error.
func (v *Validator) Validate(buyerEmb, productEmb *Embedding, capabilities []Capability, requirements *Requirements) ValidationResult {
	if buyerEmb == nil || !buyerEmb.HasConsent() {
		return ValidationResult{
			Status:              StatusInvalid,
			TargetingCompatible: false,
			Notes:               []string{"Missing or invalid consent"},
			ValidatedAt:         time.Now().UTC(),
		}
	}

	similarity := Similarity(buyerEmb, productEmb)

	// Matched capabilities are an availability list, independent of the
	// similarity score.
	var matched []string
	for _, cap := range capabilities {
		if cap.ExchangeCompatible && cap.CoveragePercentage > 0 {
			matched = append(matched, cap.CapabilityID)
		}
	}

	coverage := similarity * 100

	var gaps []string
	var alternatives []Alternative
	if !requirements.Empty() {
		gaps, alternatives = analyzeGaps(requirements, capabilities)
	}

	var status ValidationStatus
	var compatible bool
	switch {
	case coverage >= v.minimumCoverageThreshold:
		status = StatusValid
		compatible = true
	case coverage >= partialMatchFloor:
		status = StatusPartialMatch
		// Always false on this branch since coverage < threshold here; kept
		// as written in the reference behavior.
		compatible = coverage >= v.minimumCoverageThreshold
	case coverage > 0:
		status = StatusPartialMatch
		compatible = false
	default:
		status = StatusNoMatch
		compatible = false
	}

	var estimatedReach int64
	if len(capabilities) > 0 {
		var totalInventory int64
		for _, cap := range capabilities {
			if cap.CoveragePercentage > 0 {
				totalInventory += inventoryPerCapability
			}
		}
		estimatedReach = int64(float64(totalInventory) * (coverage / 100))
	}

	score := similarity
	return ValidationResult{
		Status:              status,
		CoveragePercentage:  coverage,
		MatchedCapabilities: matched,
		Gaps:                gaps,
		Alternatives:        alternatives,
		SimilarityScore:     &score,
		TargetingCompatible: compatible,
		EstimatedReach:      estimatedReach,
		Notes: []string{
			fmt.Sprintf("Embedding similarity: %.2f", similarity),
			fmt.Sprintf("Coverage: %.1f%%", coverage),
			fmt.Sprintf("Matched %d of %d capabilities", len(matched), len(capabilities)),
		},
		ValidatedAt: time.Now().UTC(),
	}
}

// analyzeGaps inspects the requirements for targeting dimensions no capability
// covers, suggesting contextual alternatives where one exists.
func analyzeGaps(requirements *Requirements, capabilities []Capability) ([]string, []Alternative) {
	var gaps []string
	var alternatives []Alternative

	hasSignal := func(st SignalType) bool {
		for _, cap := range capabilities {
			if cap.SignalType == st {
				return true
			}
		}
		return false
	}

	if len(requirements.Demographics) > 0 && !hasSignal(SignalIdentity) {
		gaps = append(gaps, "demographic_targeting")
		alternatives = append(alternatives, Alternative{
			Gap:        "demographic_targeting",
			Suggestion: "Use contextual signals as proxy for demographics",
		})
	}

	if len(requirements.Interests) > 0 && !hasSignal(SignalContextual) {
		gaps = append(gaps, "interest_targeting")
	}

	if len(requirements.Behaviors) > 0 && !hasSignal(SignalReinforcement) {
		gaps = append(gaps, "behavioral_targeting")
		alternatives = append(alternatives, Alternative{
			Gap:        "behavioral_targeting",
			Suggestion: "Use contextual signals with frequency capping",
		})
	}

	return gaps, alternatives
}
