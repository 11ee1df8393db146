// Package proposal runs incoming buyer proposals through the full evaluation
// pipeline: product validation, audience validation, pricing, availability,
// yield scoring, and the final accept/counter/reject decision.
package proposal

import (
	"fmt"
	"time"

	"github.com/adseller/deal-server/audience"
	"github.com/adseller/deal-server/opendirect"
)

// Status is the lifecycle state of a proposal evaluation.
type Status string

const (
	StatusReceived       Status = "proposal_received"
	StatusEvaluating     Status = "evaluating"
	StatusCounterPending Status = "counter_pending"
	StatusAccepted       Status = "accepted"
	StatusRejected       Status = "rejected"
	StatusFailed         Status = "failed"
)

// Terminal reports whether the status ends the pipeline.
func (s Status) Terminal() bool {
	switch s {
	case StatusCounterPending, StatusAccepted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// Pipeline stage names, recorded in order as each stage completes.
const (
	StageReceived              = "received"
	StageProductValidated      = "product_validated"
	StageAudienceValidated     = "audience_validated"
	StagePricingEvaluated      = "pricing_evaluated"
	StageAvailabilityChecked   = "availability_checked"
	StageScored                = "scored"
	StageDecided               = "decided"
	StageCounterTermsGenerated = "counter_terms_generated"
	StageUpsellIdentified      = "upsell_identified"
	StageFinalized             = "finalized"
)

// Recommendations.
const (
	RecommendAccept  = "accept"
	RecommendCounter = "counter"
	RecommendReject  = "reject"
)

// Proposal is the buyer's purchase request as received on the wire.
type Proposal struct {
	ID     string `json:"proposal_id"`
	LineID string `json:"line_id,omitempty"`

	ProductID   string              `json:"product_id"`
	DealType    opendirect.DealType `json:"deal_type,omitempty"`
	Price       float64             `json:"price"`
	Currency    string              `json:"currency,omitempty"`
	Impressions int64               `json:"impressions"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`

	AudienceTargeting *audience.Requirements `json:"audience_targeting,omitempty"`
	BuyerEmbedding    *audience.Embedding    `json:"buyer_embedding,omitempty"`
}

// MissingFields returns the names of required fields the proposal lacks.
// These are the only conditions that halt the pipeline outright.
func (p *Proposal) MissingFields() []string {
	var missing []string
	if p.ProductID == "" {
		missing = append(missing, "product_id")
	}
	if p.Impressions <= 0 {
		missing = append(missing, "impressions")
	}
	if p.StartDate == "" {
		missing = append(missing, "start_date")
	}
	if p.EndDate == "" {
		missing = append(missing, "end_date")
	}
	return missing
}

// FlightWindow parses the proposal's start/end dates. Dates are expected as
// YYYY-MM-DD; parse failures return an error so the caller can degrade
// rather than fail.
func (p *Proposal) FlightWindow() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %v", p.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", p.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %v", p.EndDate, err)
	}
	return start, end, nil
}

// Evaluation is the full evaluation record for one proposal.
type Evaluation struct {
	ProposalID     string    `json:"proposal_id"`
	ProposalLineID string    `json:"proposal_line_id,omitempty"`
	ProductID      string    `json:"product_id"`
	EvaluatedAt    time.Time `json:"evaluation_timestamp"`

	Valid            bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors,omitempty"`

	RequestedPrice         float64 `json:"requested_price"`
	MinimumAcceptablePrice float64 `json:"minimum_acceptable_price"`
	RecommendedPrice       float64 `json:"recommended_price"`
	PriceAcceptable        bool    `json:"price_acceptable"`

	RequestedImpressions int64 `json:"requested_impressions"`
	AvailableImpressions int64 `json:"available_impressions"`
	ImpressionsAvailable bool  `json:"impressions_available"`

	TargetingCompatible bool     `json:"targeting_compatible"`
	TargetingNotes      []string `json:"targeting_notes,omitempty"`

	AudienceValidated bool     `json:"audience_validated"`
	AudienceCoverage  float64  `json:"audience_coverage"`
	AudienceGaps      []string `json:"audience_gaps,omitempty"`
	SimilarityScore   *float64 `json:"similarity_score,omitempty"`

	Recommendation  string                 `json:"recommendation,omitempty"`
	CounterTerms    map[string]interface{} `json:"counter_terms,omitempty"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`

	YieldScore          float64  `json:"yield_score"`
	UpsellOpportunities []string `json:"upsell_opportunities,omitempty"`
}

// UpsellSuggestion is an advisory follow-up attached to a decision.
type UpsellSuggestion struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Result is what the orchestrator returns for every proposal, terminal in
// all cases including malformed input.
type Result struct {
	ProposalID        string                 `json:"proposal_id"`
	FlowID            string                 `json:"flow_id,omitempty"`
	Status            Status                 `json:"status"`
	Stages            []string               `json:"stages"`
	Recommendation    string                 `json:"recommendation,omitempty"`
	Evaluation        *Evaluation            `json:"evaluation,omitempty"`
	CounterTerms      map[string]interface{} `json:"counter_terms,omitempty"`
	UpsellSuggestions []UpsellSuggestion     `json:"upsell_suggestions,omitempty"`
	Errors            []string               `json:"errors,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
	StartedAt         time.Time              `json:"started_at"`
	CompletedAt       time.Time              `json:"completed_at"`
}
