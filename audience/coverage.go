package audience

// CoverageEstimate is the result of a coverage-only calculation for a
// targeting specification, without any embedding exchange.
type CoverageEstimate struct {
	CoveragePercentage   float64  `json:"coverage_percentage"`
	EstimatedImpressions int64    `json:"estimated_impressions"`
	MatchedCapabilities  []string `json:"matched_capabilities"`
	Confidence           string   `json:"confidence"` // high, medium, low
	LimitingFactors      []string `json:"limiting_factors,omitempty"`
}

// CalculateCoverage estimates reachable impressions for a targeting request.
// Matched capability coverages multiply as independent events, floored at 1%
// so a long capability chain never zeroes out the estimate entirely.
func (v *Validator) CalculateCoverage(requirements *Requirements, capabilities []Capability, totalImpressions int64) CoverageEstimate {
	var matched []Capability
	for _, cap := range capabilities {
		if cap.CoveragePercentage > 0 {
			matched = append(matched, cap)
		}
	}

	if len(matched) == 0 {
		return CoverageEstimate{
			CoveragePercentage:   0,
			EstimatedImpressions: 0,
			MatchedCapabilities:  []string{},
			Confidence:           "low",
		}
	}

	combined := 1.0
	for _, cap := range matched {
		combined *= cap.CoveragePercentage / 100
	}
	if combined < 0.01 {
		combined = 0.01
	}

	ids := make([]string, 0, len(matched))
	var limiting []string
	for _, cap := range matched {
		ids = append(ids, cap.CapabilityID)
		if cap.CoveragePercentage < 50 {
			limiting = append(limiting, cap.Name)
		}
	}

	confidence := "medium"
	if len(matched) > 1 {
		confidence = "high"
	}

	return CoverageEstimate{
		CoveragePercentage:   combined * 100,
		EstimatedImpressions: int64(float64(totalImpressions) * combined),
		MatchedCapabilities:  ids,
		Confidence:           confidence,
		LimitingFactors:      limiting,
	}
}

// CapabilityReport groups a seller's capabilities by signal type for
// discovery responses.
type CapabilityReport struct {
	Capabilities      []Capability                `json:"capabilities"`
	BySignalType      map[SignalType][]Capability `json:"by_signal_type"`
	TotalCapabilities int                         `json:"total_capabilities"`
	CompatibleCount   int                         `json:"exchange_compatible_count"`
}

// ReportCapabilities builds the discovery report buyers use to learn what
// signals this seller offers.
func ReportCapabilities(capabilities []Capability) CapabilityReport {
	bySignal := make(map[SignalType][]Capability)
	compatible := 0
	for _, cap := range capabilities {
		bySignal[cap.SignalType] = append(bySignal[cap.SignalType], cap)
		if cap.ExchangeCompatible {
			compatible++
		}
	}
	return CapabilityReport{
		Capabilities:      capabilities,
		BySignalType:      bySignal,
		TotalCapabilities: len(capabilities),
		CompatibleCount:   compatible,
	}
}
