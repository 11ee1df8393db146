// Package metrics records engine activity on a go-metrics registry:
// proposal throughput and outcomes, pricing quotes, audience validations,
// and degraded-path fallbacks.
package metrics

import (
	"strconv"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Outcome is a terminal proposal decision tracked per-outcome.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeCounter  Outcome = "counter"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

func outcomes() []Outcome {
	return []Outcome{OutcomeAccepted, OutcomeCounter, OutcomeRejected, OutcomeFailed}
}

// Metrics is the engine metrics object (go-metrics).
type Metrics struct {
	MetricsRegistry metrics.Registry

	ProposalMeter     metrics.Meter
	ProposalTimer     metrics.Timer
	OutcomeMeters     map[Outcome]metrics.Meter
	QuoteMeter        metrics.Meter
	PriceHistogram    metrics.Histogram
	AudienceMeter     metrics.Meter
	LowCoverageMeter  metrics.Meter
	AdvisorErrorMeter metrics.Meter
	StorageErrorMeter metrics.Meter

	// Set only on live metrics; per-code warning meters register lazily.
	warningRegistry metrics.Registry
}

// NewBlankMetrics creates a new Metrics object with all blank metrics. This
// is useful for testing routines to ensure that no metrics are written
// anywhere, and lets callers run with metrics disabled without nil checks at
// every record site.
func NewBlankMetrics(registry metrics.Registry) *Metrics {
	blankMeter := &metrics.NilMeter{}
	newMetrics := &Metrics{
		MetricsRegistry:   registry,
		ProposalMeter:     blankMeter,
		ProposalTimer:     &metrics.NilTimer{},
		OutcomeMeters:     make(map[Outcome]metrics.Meter),
		QuoteMeter:        blankMeter,
		PriceHistogram:    &metrics.NilHistogram{},
		AudienceMeter:     blankMeter,
		LowCoverageMeter:  blankMeter,
		AdvisorErrorMeter: blankMeter,
		StorageErrorMeter: blankMeter,
	}
	for _, o := range outcomes() {
		newMetrics.OutcomeMeters[o] = blankMeter
	}
	return newMetrics
}

// NewMetrics creates a new Metrics object with the needed metrics registered.
func NewMetrics(registry metrics.Registry) *Metrics {
	newMetrics := NewBlankMetrics(registry)
	newMetrics.warningRegistry = registry
	newMetrics.ProposalMeter = metrics.GetOrRegisterMeter("proposals_received", registry)
	newMetrics.ProposalTimer = metrics.GetOrRegisterTimer("proposal_evaluation_time", registry)
	newMetrics.QuoteMeter = metrics.GetOrRegisterMeter("pricing_quotes", registry)
	newMetrics.PriceHistogram = metrics.GetOrRegisterHistogram("final_price_cpm", registry, metrics.NewExpDecaySample(1028, 0.015))
	newMetrics.AudienceMeter = metrics.GetOrRegisterMeter("audience_validations", registry)
	newMetrics.LowCoverageMeter = metrics.GetOrRegisterMeter("audience_low_coverage", registry)
	newMetrics.AdvisorErrorMeter = metrics.GetOrRegisterMeter("advisor_fallbacks", registry)
	newMetrics.StorageErrorMeter = metrics.GetOrRegisterMeter("storage_errors", registry)
	for _, o := range outcomes() {
		newMetrics.OutcomeMeters[o] = metrics.GetOrRegisterMeter("proposals."+string(o), registry)
	}
	return newMetrics
}

// RecordProposal marks one proposal evaluation with its terminal outcome and
// wall time.
func (m *Metrics) RecordProposal(outcome Outcome, elapsed time.Duration) {
	m.ProposalMeter.Mark(1)
	m.ProposalTimer.Update(elapsed)
	if meter, ok := m.OutcomeMeters[outcome]; ok {
		meter.Mark(1)
	}
}

// RecordQuote marks one pricing quote. Prices are recorded in whole cents so
// the histogram stays integral.
func (m *Metrics) RecordQuote(finalPrice float64) {
	m.QuoteMeter.Mark(1)
	m.PriceHistogram.Update(int64(finalPrice * 100))
}

// RecordAudienceValidation marks one validation, noting whether coverage fell
// below the compatibility threshold.
func (m *Metrics) RecordAudienceValidation(compatible bool) {
	m.AudienceMeter.Mark(1)
	if !compatible {
		m.LowCoverageMeter.Mark(1)
	}
}

// RecordAdvisorFallback marks one advisory failure that fell back to the
// rule-based decision.
func (m *Metrics) RecordAdvisorFallback() {
	m.AdvisorErrorMeter.Mark(1)
}

// RecordPipelineWarning marks one degraded-path warning under its numeric
// code, so the registry breaks warnings out per-code.
func (m *Metrics) RecordPipelineWarning(code int) {
	if m.warningRegistry == nil {
		return
	}
	metrics.GetOrRegisterMeter("pipeline_warnings."+strconv.Itoa(code), m.warningRegistry).Mark(1)
}

// RecordStorageError marks one failed persistence write.
func (m *Metrics) RecordStorageError() {
	m.StorageErrorMeter.Mark(1)
}
