package audience

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingWithVector(vector []float64, metric SimilarityMetric) *Embedding {
	return &Embedding{
		EmbeddingType: EmbeddingQuery,
		SignalType:    SignalContextual,
		Vector:        vector,
		Dimension:     len(vector),
		Model: ModelDescriptor{
			ID:        "test-model",
			Version:   "1.0.0",
			Dimension: len(vector),
			Metric:    metric,
		},
		Consent: &Consent{
			Framework:       "IAB-TCFv2",
			PermissibleUses: []string{"personalization", "measurement"},
		},
	}
}

func TestSimilarityMetrics(t *testing.T) {
	tests := []struct {
		name    string
		buyer   []float64
		product []float64
		metric  SimilarityMetric
		want    float64
	}{
		{
			name:    "cosine_identical",
			buyer:   []float64{1, 0, 0},
			product: []float64{1, 0, 0},
			metric:  MetricCosine,
			want:    1,
		},
		{
			name:    "cosine_orthogonal",
			buyer:   []float64{1, 0, 0},
			product: []float64{0, 1, 0},
			metric:  MetricCosine,
			want:    0,
		},
		{
			name:    "cosine_anti_correlated_clamps_to_zero",
			buyer:   []float64{1, 0},
			product: []float64{-1, 0},
			metric:  MetricCosine,
			want:    0,
		},
		{
			name:    "dot_product",
			buyer:   []float64{1, 2, 3},
			product: []float64{4, 5, 6},
			metric:  MetricDot,
			want:    32,
		},
		{
			name:    "l2_distance",
			buyer:   []float64{0, 0},
			product: []float64{3, 4},
			metric:  MetricL2,
			want:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buyer := embeddingWithVector(tt.buyer, tt.metric)
			product := embeddingWithVector(tt.product, tt.metric)
			assert.InDelta(t, tt.want, Similarity(buyer, product), 1e-9, tt.name)
		})
	}
}

func TestSimilarityDimensionMismatch(t *testing.T) {
	buyer := embeddingWithVector([]float64{1, 0, 0}, MetricCosine)
	product := embeddingWithVector([]float64{1, 0}, MetricCosine)
	assert.Equal(t, 0.0, Similarity(buyer, product))
}

func TestValidateRejectsMissingConsent(t *testing.T) {
	v := NewValidator(0)
	product := embeddingWithVector([]float64{1, 0}, MetricCosine)

	noConsent := embeddingWithVector([]float64{1, 0}, MetricCosine)
	noConsent.Consent = nil
	result := v.Validate(noConsent, product, nil, nil)
	assert.Equal(t, StatusInvalid, result.Status)
	assert.False(t, result.TargetingCompatible)

	emptyUses := embeddingWithVector([]float64{1, 0}, MetricCosine)
	emptyUses.Consent = &Consent{Framework: "IAB-TCFv2"}
	result = v.Validate(emptyUses, product, nil, nil)
	assert.Equal(t, StatusInvalid, result.Status)
}

func TestValidateStatusThresholds(t *testing.T) {
	v := NewValidator(50)

	// Vectors chosen so cosine similarity equals the first component when
	// both are unit length in their shared direction.
	tests := []struct {
		name           string
		similarity     float64
		wantStatus     ValidationStatus
		wantCompatible bool
	}{
		{name: "valid_above_threshold", similarity: 0.75, wantStatus: StatusValid, wantCompatible: true},
		{name: "valid_at_threshold", similarity: 0.50, wantStatus: StatusValid, wantCompatible: true},
		{name: "partial_between_30_and_threshold", similarity: 0.40, wantStatus: StatusPartialMatch, wantCompatible: false},
		{name: "partial_below_30", similarity: 0.10, wantStatus: StatusPartialMatch, wantCompatible: false},
		{name: "no_match_at_zero", similarity: 0.0, wantStatus: StatusNoMatch, wantCompatible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cos(theta) between (a, b) and (1, 0) is a when a^2+b^2=1.
			buyer := embeddingWithVector([]float64{tt.similarity, math.Sqrt(1 - tt.similarity*tt.similarity)}, MetricCosine)
			product := embeddingWithVector([]float64{1, 0}, MetricCosine)

			result := v.Validate(buyer, product, nil, nil)
			assert.Equal(t, tt.wantStatus, result.Status, tt.name)
			assert.Equal(t, tt.wantCompatible, result.TargetingCompatible, tt.name)
			assert.True(t, result.CoveragePercentage >= 0 && result.CoveragePercentage <= 100)
			require.NotNil(t, result.SimilarityScore)
			assert.InDelta(t, tt.similarity, *result.SimilarityScore, 1e-9)
		})
	}
}

func TestValidateAntiCorrelatedEmbeddingStaysInBounds(t *testing.T) {
	v := NewValidator(0)
	buyer := embeddingWithVector([]float64{1, 0}, MetricCosine)
	product := embeddingWithVector([]float64{-1, 0}, MetricCosine)

	caps := []Capability{
		{CapabilityID: "ctx", SignalType: SignalContextual, CoveragePercentage: 95, ExchangeCompatible: true},
	}
	result := v.Validate(buyer, product, caps, nil)

	assert.Equal(t, StatusNoMatch, result.Status)
	assert.False(t, result.TargetingCompatible)
	assert.True(t, result.CoveragePercentage >= 0, "coverage must never go negative")
	assert.True(t, result.EstimatedReach >= 0, "reach must never go negative")
	require.NotNil(t, result.SimilarityScore)
	assert.Equal(t, 0.0, *result.SimilarityScore)
}

func TestValidateMatchedCapabilitiesIndependentOfSimilarity(t *testing.T) {
	v := NewValidator(0)
	buyer := embeddingWithVector([]float64{1, 0}, MetricCosine)
	product := embeddingWithVector([]float64{0, 1}, MetricCosine) // similarity 0

	caps := []Capability{
		{CapabilityID: "demo", SignalType: SignalIdentity, CoveragePercentage: 70, ExchangeCompatible: true},
		{CapabilityID: "ctx", SignalType: SignalContextual, CoveragePercentage: 95, ExchangeCompatible: true},
		{CapabilityID: "zero", SignalType: SignalContextual, CoveragePercentage: 0, ExchangeCompatible: true},
		{CapabilityID: "incompatible", SignalType: SignalContextual, CoveragePercentage: 50, ExchangeCompatible: false},
	}

	result := v.Validate(buyer, product, caps, nil)
	assert.Equal(t, StatusNoMatch, result.Status)
	assert.Equal(t, []string{"demo", "ctx"}, result.MatchedCapabilities)
}

func TestValidateGapAnalysis(t *testing.T) {
	v := NewValidator(0)
	buyer := embeddingWithVector([]float64{1, 0}, MetricCosine)
	product := embeddingWithVector([]float64{1, 0}, MetricCosine)

	reqs := &Requirements{
		Demographics: map[string]string{"age_range": "25-54"},
		Interests:    []string{"sports"},
		Behaviors:    []string{"in-market-auto"},
	}
	caps := []Capability{
		{CapabilityID: "ctx", SignalType: SignalContextual, CoveragePercentage: 95, ExchangeCompatible: true},
	}

	result := v.Validate(buyer, product, caps, reqs)
	assert.ElementsMatch(t, []string{"demographic_targeting", "behavioral_targeting"}, result.Gaps)
	assert.Len(t, result.Alternatives, 2)

	// Interests are covered by the contextual capability, demographics and
	// behaviors are not.
	for _, alt := range result.Alternatives {
		assert.Contains(t, alt.Suggestion, "contextual")
	}
}

func TestCalculateCoverage(t *testing.T) {
	v := NewValidator(0)

	caps := []Capability{
		{CapabilityID: "demo", Name: "Demographics", CoveragePercentage: 70},
		{CapabilityID: "ctx", Name: "Contextual", CoveragePercentage: 95},
	}

	estimate := v.CalculateCoverage(nil, caps, 1000000)
	assert.InDelta(t, 66.5, estimate.CoveragePercentage, 1e-9) // 0.70 * 0.95
	assert.Equal(t, int64(665000), estimate.EstimatedImpressions)
	assert.Equal(t, "high", estimate.Confidence)
	assert.Empty(t, estimate.LimitingFactors)

	noCaps := v.CalculateCoverage(nil, nil, 1000000)
	assert.Equal(t, 0.0, noCaps.CoveragePercentage)
	assert.Equal(t, "low", noCaps.Confidence)
}

func TestCalculateCoverageFloorsAtOnePercent(t *testing.T) {
	v := NewValidator(0)
	caps := []Capability{
		{CapabilityID: "a", Name: "A", CoveragePercentage: 5},
		{CapabilityID: "b", Name: "B", CoveragePercentage: 5},
	}
	estimate := v.CalculateCoverage(nil, caps, 1000000)
	assert.InDelta(t, 1.0, estimate.CoveragePercentage, 1e-9)
	assert.Equal(t, int64(10000), estimate.EstimatedImpressions)
	assert.ElementsMatch(t, []string{"A", "B"}, estimate.LimitingFactors)
}

func TestEmbeddingExpiry(t *testing.T) {
	now := time.Now().UTC()
	e := embeddingWithVector([]float64{1}, MetricCosine)

	assert.False(t, e.Expired(now), "no timestamp means no expiry")

	e.Timestamp = now.Add(-2 * time.Hour)
	e.TTLSeconds = 3600
	assert.True(t, e.Expired(now))

	e.Timestamp = now.Add(-30 * time.Minute)
	assert.False(t, e.Expired(now))
}

func TestSyntheticEmbeddingDeterministic(t *testing.T) {
	chars := map[string]string{"product_id": "p1", "inventory_type": "ctv"}

	first := SyntheticEmbedding(chars, 64)
	second := SyntheticEmbedding(chars, 64)
	assert.Equal(t, first, second)

	other := SyntheticEmbedding(map[string]string{"product_id": "p2", "inventory_type": "ctv"}, 64)
	assert.NotEqual(t, first, other)

	// Unit norm.
	var norm float64
	for _, v := range first {
		norm += v * v
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestReportCapabilities(t *testing.T) {
	caps := []Capability{
		{CapabilityID: "demo", SignalType: SignalIdentity, ExchangeCompatible: true},
		{CapabilityID: "ctx", SignalType: SignalContextual, ExchangeCompatible: true},
		{CapabilityID: "legacy", SignalType: SignalContextual, ExchangeCompatible: false},
	}

	report := ReportCapabilities(caps)
	assert.Equal(t, 3, report.TotalCapabilities)
	assert.Equal(t, 2, report.CompatibleCount)
	assert.Len(t, report.BySignalType[SignalContextual], 2)
	assert.Len(t, report.BySignalType[SignalIdentity], 1)
}
