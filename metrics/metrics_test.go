package metrics

import (
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsRecords(t *testing.T) {
	registry := gometrics.NewRegistry()
	m := NewMetrics(registry)

	m.RecordProposal(OutcomeAccepted, 5*time.Millisecond)
	m.RecordProposal(OutcomeRejected, 3*time.Millisecond)
	m.RecordQuote(18.00)
	m.RecordAudienceValidation(false)
	m.RecordAdvisorFallback()

	assert.Equal(t, int64(2), m.ProposalMeter.Count())
	assert.Equal(t, int64(2), m.ProposalTimer.Count())
	assert.Equal(t, int64(1), m.OutcomeMeters[OutcomeAccepted].Count())
	assert.Equal(t, int64(1), m.OutcomeMeters[OutcomeRejected].Count())
	assert.Equal(t, int64(0), m.OutcomeMeters[OutcomeCounter].Count())
	assert.Equal(t, int64(1), m.QuoteMeter.Count())
	assert.Equal(t, int64(1800), m.PriceHistogram.Max())
	assert.Equal(t, int64(1), m.AudienceMeter.Count())
	assert.Equal(t, int64(1), m.LowCoverageMeter.Count())
	assert.Equal(t, int64(1), m.AdvisorErrorMeter.Count())
}

func TestRecordPipelineWarningMetersByCode(t *testing.T) {
	registry := gometrics.NewRegistry()
	m := NewMetrics(registry)

	m.RecordPipelineWarning(10001)
	m.RecordPipelineWarning(10001)
	m.RecordPipelineWarning(10003)

	first := registry.Get("pipeline_warnings.10001")
	if assert.NotNil(t, first) {
		assert.Equal(t, int64(2), first.(gometrics.Meter).Count())
	}
	second := registry.Get("pipeline_warnings.10003")
	if assert.NotNil(t, second) {
		assert.Equal(t, int64(1), second.(gometrics.Meter).Count())
	}
}

func TestBlankMetricsDoNotRegister(t *testing.T) {
	registry := gometrics.NewRegistry()
	m := NewBlankMetrics(registry)

	m.RecordProposal(OutcomeFailed, time.Millisecond)
	m.RecordQuote(20.00)
	m.RecordStorageError()
	m.RecordPipelineWarning(10001)

	count := 0
	registry.Each(func(string, interface{}) { count++ })
	assert.Equal(t, 0, count, "blank metrics must not register anything")
}
