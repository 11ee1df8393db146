// Package audience validates buyer targeting requests against inventory
// capabilities. Buyers and sellers exchange fixed-dimension embeddings; the
// validator compares them under the metric the product's model declares and
// reports a coverage verdict with gaps and alternatives.
package audience

import (
	"time"
)

// SignalType classifies an audience signal.
type SignalType string

const (
	SignalIdentity      SignalType = "identity"
	SignalContextual    SignalType = "contextual"
	SignalReinforcement SignalType = "reinforcement"
)

// EmbeddingType is what an embedding vector encodes.
type EmbeddingType string

const (
	EmbeddingContext    EmbeddingType = "context"
	EmbeddingCreative   EmbeddingType = "creative"
	EmbeddingUserIntent EmbeddingType = "user_intent"
	EmbeddingInventory  EmbeddingType = "inventory"
	EmbeddingQuery      EmbeddingType = "query"
)

// SimilarityMetric selects how two embedding vectors are compared.
type SimilarityMetric string

const (
	MetricCosine SimilarityMetric = "cosine"
	MetricDot    SimilarityMetric = "dot"
	MetricL2     SimilarityMetric = "l2"
)

// ModelDescriptor identifies the model that produced an embedding. Both
// parties must use compatible models for the similarity to mean anything.
type ModelDescriptor struct {
	ID               string           `json:"id"`
	Version          string           `json:"version"`
	Dimension        int              `json:"dimension"`
	Metric           SimilarityMetric `json:"metric"`
	EmbeddingSpaceID string           `json:"embedding_space_id,omitempty"`
}

// Consent is required on every embedding exchange. An embedding without at
// least one permitted use is rejected outright.
type Consent struct {
	Framework       string   `json:"framework"`
	ConsentString   string   `json:"consent_string,omitempty"`
	PermissibleUses []string `json:"permissible_uses"`
	TTLSeconds      int      `json:"ttl_seconds,omitempty"`
	VendorID        string   `json:"vendor_id,omitempty"`
}

// Embedding is the payload exchanged between buyer and seller for audience
// matching.
type Embedding struct {
	EmbeddingType EmbeddingType   `json:"embedding_type"`
	SignalType    SignalType      `json:"signal_type"`
	Vector        []float64       `json:"vector"`
	Dimension     int             `json:"dimension"`
	Model         ModelDescriptor `json:"model_descriptor"`
	Consent       *Consent        `json:"consent"`
	Timestamp     time.Time       `json:"timestamp,omitempty"`
	TTLSeconds    int             `json:"ttl_seconds,omitempty"`
}

// Expired reports whether the embedding outlived its declared lifetime.
// Embeddings without a timestamp or TTL never expire.
func (e *Embedding) Expired(now time.Time) bool {
	if e.Timestamp.IsZero() || e.TTLSeconds <= 0 {
		return false
	}
	return now.Sub(e.Timestamp) > time.Duration(e.TTLSeconds)*time.Second
}

// HasConsent reports whether the embedding carries a consent object with at
// least one permitted use.
func (e *Embedding) HasConsent() bool {
	return e.Consent != nil && len(e.Consent.PermissibleUses) > 0
}

// Capability is a named audience signal the seller offers on its inventory.
type Capability struct {
	CapabilityID       string     `json:"capability_id"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	SignalType         SignalType `json:"signal_type"`
	CoveragePercentage float64    `json:"coverage_percentage"`
	AvailableSegments  []string   `json:"available_segments,omitempty"`
	Taxonomy           string     `json:"taxonomy,omitempty"`
	MinimumMatchRate   float64    `json:"minimum_match_rate,omitempty"`
	ExchangeCompatible bool       `json:"exchange_compatible"`
	EmbeddingDimension int        `json:"embedding_dimension,omitempty"`
}

// ValidationStatus enumerates the possible verdicts of a validation run.
type ValidationStatus string

const (
	StatusValid        ValidationStatus = "valid"
	StatusPartialMatch ValidationStatus = "partial_match"
	StatusNoMatch      ValidationStatus = "no_match"
	StatusInvalid      ValidationStatus = "invalid"
)

// Alternative suggests a substitute for a targeting gap.
type Alternative struct {
	Gap        string `json:"gap"`
	Suggestion string `json:"suggestion"`
}

// ValidationResult is the outcome of validating a buyer's audience request.
type ValidationResult struct {
	Status              ValidationStatus `json:"validation_status"`
	CoveragePercentage  float64          `json:"overall_coverage_percentage"`
	MatchedCapabilities []string         `json:"matched_capabilities,omitempty"`
	Gaps                []string         `json:"gaps,omitempty"`
	Alternatives        []Alternative    `json:"alternatives,omitempty"`
	SimilarityScore     *float64         `json:"similarity_score,omitempty"`
	TargetingCompatible bool             `json:"targeting_compatible"`
	EstimatedReach      int64            `json:"estimated_reach,omitempty"`
	Notes               []string         `json:"validation_notes,omitempty"`
	ValidatedAt         time.Time        `json:"validated_at"`
}

// Requirements is the buyer's targeting request used for gap analysis.
type Requirements struct {
	Demographics map[string]string `json:"demographics,omitempty"`
	Interests    []string          `json:"interests,omitempty"`
	Behaviors    []string          `json:"behaviors,omitempty"`
	Exclusions   []string          `json:"exclusions,omitempty"`
}

// Empty reports whether no targeting was requested at all.
func (r *Requirements) Empty() bool {
	return r == nil || (len(r.Demographics) == 0 && len(r.Interests) == 0 && len(r.Behaviors) == 0 && len(r.Exclusions) == 0)
}
