package proposal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang/glog"

	"github.com/adseller/deal-server/audience"
	"github.com/adseller/deal-server/avails"
	"github.com/adseller/deal-server/catalog"
	"github.com/adseller/deal-server/errortypes"
	"github.com/adseller/deal-server/identity"
	"github.com/adseller/deal-server/metrics"
	"github.com/adseller/deal-server/pricing"
	"github.com/adseller/deal-server/storage"
	"github.com/adseller/deal-server/yield"
)

// DefaultCollaboratorTimeout bounds each external call (catalog, avails,
// advisory, persistence) made during an evaluation.
const DefaultCollaboratorTimeout = 5 * time.Second

// Dependencies wires the orchestrator's collaborators. Catalog, Pricing,
// Audience and Yield are required; everything else has a working default.
type Dependencies struct {
	Catalog  catalog.Fetcher
	Pricing  *pricing.Engine
	Audience *audience.Validator
	Yield    *yield.Optimizer

	Avails  avails.Source
	Storage storage.Writer
	Advisor Advisor
	Metrics *metrics.Metrics

	CollaboratorTimeout time.Duration
	CurrentFillRate     float64
	MarketCPM           float64
}

// Orchestrator runs proposals through the evaluation pipeline. Engine state
// is read-only during evaluation, so many proposals can be evaluated
// concurrently; evaluations of the same proposal id are serialized.
type Orchestrator struct {
	deps  Dependencies
	locks *keyedLocks

	mu       sync.Mutex
	accepted []string
	rejected []string
	counters map[string]map[string]interface{}
}

// NewOrchestrator validates the dependency set and fills in defaults.
func NewOrchestrator(deps Dependencies) (*Orchestrator, error) {
	if deps.Catalog == nil {
		return nil, &errortypes.MalformedConfig{Message: "proposal orchestrator requires a product catalog"}
	}
	if deps.Pricing == nil {
		return nil, &errortypes.MalformedConfig{Message: "proposal orchestrator requires a pricing engine"}
	}
	if deps.Audience == nil {
		return nil, &errortypes.MalformedConfig{Message: "proposal orchestrator requires an audience validator"}
	}
	if deps.Yield == nil {
		return nil, &errortypes.MalformedConfig{Message: "proposal orchestrator requires a yield optimizer"}
	}
	if deps.Avails == nil {
		deps.Avails = avails.NewStaticSource(nil)
	}
	if deps.Advisor == nil {
		deps.Advisor = RuleBasedAdvisor{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewBlankMetrics(nil)
	}
	if deps.CollaboratorTimeout <= 0 {
		deps.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	if deps.CurrentFillRate <= 0 {
		deps.CurrentFillRate = 0.75
	}
	if deps.MarketCPM <= 0 {
		deps.MarketCPM = 15.0
	}
	return &Orchestrator{
		deps:     deps,
		locks:    newKeyedLocks(),
		counters: make(map[string]map[string]interface{}),
	}, nil
}

// AcceptedProposals returns the ids of proposals accepted so far.
func (o *Orchestrator) AcceptedProposals() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.accepted))
	copy(out, o.accepted)
	return out
}

// RejectedProposals returns the ids of proposals rejected so far.
func (o *Orchestrator) RejectedProposals() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.rejected))
	copy(out, o.rejected)
	return out
}

// CounterTerms returns the pending counter terms for a proposal, if any.
func (o *Orchestrator) CounterTerms(proposalID string) (map[string]interface{}, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	terms, ok := o.counters[proposalID]
	return terms, ok
}

// Evaluate runs the full pipeline for one proposal. It always returns a
// terminal Result; input errors surface in Result.Errors with a failed
// status, never as a returned error.
func (o *Orchestrator) Evaluate(ctx context.Context, p *Proposal, buyerCtx *identity.BuyerContext) *Result {
	o.locks.lock(p.ID)
	defer o.locks.unlock(p.ID)

	run := &pipelineRun{
		orch:     o,
		proposal: p,
		buyerCtx: buyerCtx,
		result: &Result{
			ProposalID: p.ID,
			FlowID:     newFlowID(),
			Status:     StatusReceived,
			StartedAt:  time.Now().UTC(),
		},
	}

	run.receive()
	run.validateProduct(ctx)
	run.validateAudience(ctx)
	run.evaluatePricing()
	run.checkAvailability(ctx)
	run.score(ctx)
	run.decide()
	run.finalize(ctx)

	return run.result
}

func newFlowID() string {
	id, err := uuid.NewV4()
	if err != nil {
		glog.Errorf("Error generating flow id: %v", err)
		return ""
	}
	return id.String()
}

// pipelineRun is the per-proposal mutable state. Each stage checks for a
// prior terminal failure and otherwise advances the result.
type pipelineRun struct {
	orch     *Orchestrator
	proposal *Proposal
	buyerCtx *identity.BuyerContext

	result   *Result
	product  *catalog.ProductDefinition
	audience *audienceOutcome
	errs     []error

	yieldScore yield.Score
}

func (r *pipelineRun) failed() bool {
	return r.result.Status == StatusFailed
}

func (r *pipelineRun) warn(err error) {
	r.errs = append(r.errs, err)
	r.orch.deps.Metrics.RecordPipelineWarning(errortypes.ReadCode(err))
}

func (r *pipelineRun) stage(name string) {
	r.result.Stages = append(r.result.Stages, name)
}

func (r *pipelineRun) collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.orch.deps.CollaboratorTimeout)
}

func (r *pipelineRun) receive() {
	r.stage(StageReceived)
	if missing := r.proposal.MissingFields(); len(missing) > 0 {
		r.errs = append(r.errs, &errortypes.BadInput{
			Message: fmt.Sprintf("Missing required fields: [%s]", strings.Join(missing, ", ")),
		})
		r.result.Status = StatusFailed
	}
}

func (r *pipelineRun) validateProduct(ctx context.Context) {
	if r.failed() {
		return
	}
	r.result.Status = StatusEvaluating

	fetchCtx, cancel := r.collaboratorCtx(ctx)
	defer cancel()

	product, err := r.orch.deps.Catalog.FetchProduct(fetchCtx, r.proposal.ProductID)
	if err != nil {
		if catalog.IsNotFound(err) {
			r.errs = append(r.errs, &errortypes.ProductNotFound{
				Message: "Product not found: " + r.proposal.ProductID,
			})
		} else {
			glog.Errorf("Catalog fetch failed for product %s: %v", r.proposal.ProductID, err)
			r.errs = append(r.errs, &errortypes.ProductNotFound{
				Message: fmt.Sprintf("Product %s could not be loaded: %v", r.proposal.ProductID, err),
			})
		}
		r.result.Status = StatusFailed
		return
	}
	r.product = product

	if r.proposal.DealType != "" && !product.SupportsDealType(r.proposal.DealType) {
		r.warn(&errortypes.Warning{
			Message:     fmt.Sprintf("Requested deal type %s not supported for product", r.proposal.DealType),
			WarningCode: errortypes.DealTypeMismatchWarningCode,
		})
	}
	r.stage(StageProductValidated)
}

// audienceOutcome carries the validation results into the evaluation record.
type audienceOutcome struct {
	validated  bool
	coverage   float64
	gaps       []string
	similarity *float64
	compatible bool
}

func (r *pipelineRun) validateAudience(ctx context.Context) {
	if r.failed() {
		return
	}
	// No targeting in the proposal means nothing to validate.
	if r.proposal.AudienceTargeting.Empty() {
		r.stage(StageAudienceValidated)
		return
	}

	outcome := r.runAudienceValidation()
	r.audience = &outcome
	r.orch.deps.Metrics.RecordAudienceValidation(outcome.compatible)

	if outcome.validated && !outcome.compatible {
		r.warn(&errortypes.Warning{
			Message:     fmt.Sprintf("Audience coverage below threshold: %.1f%%", outcome.coverage),
			WarningCode: errortypes.LowCoverageWarningCode,
		})
	}
	r.stage(StageAudienceValidated)
}

func (r *pipelineRun) runAudienceValidation() audienceOutcome {
	buyerEmb := r.proposal.BuyerEmbedding
	if buyerEmb == nil {
		buyerEmb = syntheticQueryEmbedding(r.proposal.AudienceTargeting)
	}

	if buyerEmb.Expired(time.Now().UTC()) {
		// Degrade rather than block: unvalidated, assumed compatible.
		r.warn(&errortypes.CollaboratorFailure{
			Message: "Audience validation warning: buyer embedding expired",
		})
		return audienceOutcome{gaps: []string{"validation_error"}, compatible: true}
	}

	validation := r.orch.deps.Audience.Validate(
		buyerEmb,
		r.product.InventoryEmbedding(),
		r.product.EffectiveCapabilities(),
		r.proposal.AudienceTargeting,
	)
	return audienceOutcome{
		validated:  true,
		coverage:   validation.CoveragePercentage,
		gaps:       validation.Gaps,
		similarity: validation.SimilarityScore,
		compatible: validation.TargetingCompatible,
	}
}

// syntheticQueryEmbedding derives a query embedding from the targeting
// requirements when the buyer sent none.
func syntheticQueryEmbedding(reqs *audience.Requirements) *audience.Embedding {
	chars := make(map[string]string, len(reqs.Demographics)+2)
	for k, v := range reqs.Demographics {
		chars["demo_"+k] = v
	}
	if len(reqs.Interests) > 0 {
		chars["interests"] = strings.Join(reqs.Interests, ",")
	}
	if len(reqs.Behaviors) > 0 {
		chars["behaviors"] = strings.Join(reqs.Behaviors, ",")
	}

	vector := audience.SyntheticEmbedding(chars, audience.DefaultDimension)
	return &audience.Embedding{
		EmbeddingType: audience.EmbeddingQuery,
		SignalType:    audience.SignalContextual,
		Vector:        vector,
		Dimension:     len(vector),
		Model: audience.ModelDescriptor{
			ID:        "inventory-embedding-v1",
			Version:   "1.0.0",
			Dimension: len(vector),
			Metric:    audience.MetricCosine,
		},
		Consent: &audience.Consent{
			Framework:       "IAB-TCFv2",
			PermissibleUses: []string{"personalization"},
		},
	}
}

func (r *pipelineRun) evaluatePricing() {
	if r.failed() {
		return
	}

	engine := r.orch.deps.Pricing
	decision := engine.CalculatePrice(
		r.product.ProductID,
		r.product.BaseCPM,
		r.buyerCtx,
		r.proposal.DealType,
		r.proposal.Impressions,
		r.product.InventoryType,
	)
	r.orch.deps.Metrics.RecordQuote(decision.FinalPrice)

	acceptable, reason := engine.IsPriceAcceptable(
		r.proposal.Price,
		r.proposal.Currency,
		r.product.FloorCPM,
		r.buyerCtx,
	)
	if !acceptable {
		r.warn(&errortypes.BelowFloor{Message: reason})
	}

	eval := &Evaluation{
		ProposalID:             r.proposal.ID,
		ProposalLineID:         r.proposal.LineID,
		ProductID:              r.product.ProductID,
		EvaluatedAt:            time.Now().UTC(),
		Valid:                  true,
		RequestedPrice:         r.proposal.Price,
		MinimumAcceptablePrice: r.product.FloorCPM,
		RecommendedPrice:       decision.FinalPrice,
		PriceAcceptable:        acceptable,
		RequestedImpressions:   r.proposal.Impressions,
		TargetingCompatible:    true,
	}
	if r.audience != nil {
		eval.AudienceValidated = r.audience.validated
		eval.AudienceCoverage = r.audience.coverage
		eval.AudienceGaps = r.audience.gaps
		eval.SimilarityScore = r.audience.similarity
		eval.TargetingCompatible = r.audience.compatible
	}
	r.result.Evaluation = eval
	r.stage(StagePricingEvaluated)
}

func (r *pipelineRun) checkAvailability(ctx context.Context) {
	if r.failed() {
		return
	}
	eval := r.result.Evaluation

	availsCtx, cancel := r.collaboratorCtx(ctx)
	defer cancel()

	start, end, err := r.proposal.FlightWindow()
	if err != nil {
		r.warn(&errortypes.Warning{Message: err.Error(), WarningCode: errortypes.InvalidFlightWindowWarningCode})
	}

	available, err := r.orch.deps.Avails.AvailableImpressions(availsCtx, r.product.ProductID, start, end)
	if err != nil {
		// The availability source is external; degrade to the default pool.
		r.warn(&errortypes.CollaboratorFailure{
			Message: fmt.Sprintf("Availability check failed: %v", err),
		})
		available = avails.DefaultAvailableImpressions
	}

	eval.AvailableImpressions = available
	eval.ImpressionsAvailable = eval.RequestedImpressions <= available
	if !eval.ImpressionsAvailable {
		msg := fmt.Sprintf("Requested %d impressions but only %d available", eval.RequestedImpressions, available)
		eval.ValidationErrors = append(eval.ValidationErrors, msg)
		r.warn(&errortypes.InsufficientInventory{Message: msg})
	}
	r.stage(StageAvailabilityChecked)
}

func (r *pipelineRun) score(ctx context.Context) {
	if r.failed() {
		return
	}
	eval := r.result.Evaluation

	r.yieldScore = r.orch.deps.Yield.ScoreDeal(
		r.yieldInput(),
		r.buyerCtx,
		r.orch.deps.CurrentFillRate,
		r.orch.deps.MarketCPM,
	)
	eval.YieldScore = r.yieldScore.OverallScore

	advisorCtx, cancel := r.collaboratorCtx(ctx)
	defer cancel()

	recommendation, err := r.orch.deps.Advisor.Evaluate(advisorCtx, eval, r.buyerCtx)
	if err != nil {
		r.warn(&errortypes.Warning{
			Message:     fmt.Sprintf("Advisory evaluation failed: %v", err),
			WarningCode: errortypes.AdvisorFallbackWarningCode,
		})
		r.orch.deps.Metrics.RecordAdvisorFallback()
		recommendation, _ = RuleBasedAdvisor{}.Evaluate(advisorCtx, eval, r.buyerCtx)
	}
	r.result.Recommendation = recommendation
	eval.Recommendation = recommendation
	r.stage(StageScored)
}

func (r *pipelineRun) yieldInput() yield.Evaluation {
	eval := r.result.Evaluation
	return yield.Evaluation{
		ProductID:              eval.ProductID,
		Valid:                  eval.Valid,
		ValidationErrors:       eval.ValidationErrors,
		RequestedPrice:         eval.RequestedPrice,
		RecommendedPrice:       eval.RecommendedPrice,
		MinimumAcceptablePrice: eval.MinimumAcceptablePrice,
		PriceAcceptable:        eval.PriceAcceptable,
		ImpressionsAvailable:   eval.ImpressionsAvailable,
		RequestedImpressions:   eval.RequestedImpressions,
		AvailableImpressions:   eval.AvailableImpressions,
	}
}

func (r *pipelineRun) decide() {
	if r.failed() {
		return
	}
	eval := r.result.Evaluation

	switch r.result.Recommendation {
	case RecommendAccept:
		r.orch.mu.Lock()
		r.orch.accepted = append(r.orch.accepted, r.proposal.ID)
		r.orch.mu.Unlock()
		r.result.Status = StatusAccepted
	case RecommendCounter:
		r.result.Status = StatusCounterPending
	default:
		// A verdict outside the known set counts as a reject so every run
		// still reaches a terminal status.
		if r.result.Recommendation != RecommendReject {
			r.result.Recommendation = RecommendReject
			eval.Recommendation = RecommendReject
		}
		r.orch.mu.Lock()
		r.orch.rejected = append(r.orch.rejected, r.proposal.ID)
		r.orch.mu.Unlock()
		r.result.Status = StatusRejected
		eval.RejectionReason = r.yieldScore.Rationale
	}
	r.stage(StageDecided)

	if r.result.Recommendation == RecommendCounter {
		r.generateCounterTerms()
	}
	r.identifyUpsell()
}

func (r *pipelineRun) generateCounterTerms() {
	eval := r.result.Evaluation

	rec := r.orch.deps.Yield.RecommendCounterTerms(r.yieldInput(), r.buyerCtx)
	terms := rec.CounterTerms
	if terms == nil {
		terms = make(map[string]interface{})
	}
	terms["proposed_price"] = eval.RecommendedPrice
	terms["floor_price"] = eval.MinimumAcceptablePrice
	terms["max_impressions"] = eval.AvailableImpressions
	terms["reason"] = rec.Rationale

	eval.CounterTerms = terms
	r.result.CounterTerms = terms

	r.orch.mu.Lock()
	r.orch.counters[r.proposal.ID] = terms
	r.orch.mu.Unlock()

	r.stage(StageCounterTermsGenerated)
}

func (r *pipelineRun) identifyUpsell() {
	eval := r.result.Evaluation

	if r.result.Recommendation == RecommendReject {
		// Even on reject, suggest alternatives.
		r.result.UpsellSuggestions = append(r.result.UpsellSuggestions, UpsellSuggestion{
			Type:    "alternative_product",
			Message: "Consider our other inventory options",
		})
		r.stage(StageUpsellIdentified)
		return
	}

	if eval.ImpressionsAvailable {
		r.result.UpsellSuggestions = append(r.result.UpsellSuggestions, UpsellSuggestion{
			Type:    "volume_upgrade",
			Message: "Add 20% more impressions for a 10% volume discount",
		})
	}
	r.result.UpsellSuggestions = append(r.result.UpsellSuggestions, UpsellSuggestion{
		Type:    "cross_sell",
		Message: "Extend your campaign to CTV for full-funnel coverage",
	})

	if rec := r.orch.deps.Yield.IdentifyUpsell(r.yieldInput(), r.buyerCtx, nil); rec.UpsellOpportunity != "" {
		eval.UpsellOpportunities = append(eval.UpsellOpportunities, rec.UpsellOpportunity)
	}
	r.stage(StageUpsellIdentified)
}

func (r *pipelineRun) finalize(ctx context.Context) {
	r.result.CompletedAt = time.Now().UTC()
	r.stage(StageFinalized)

	r.result.Errors = errorMessages(errortypes.FatalOnly(r.errs))
	r.result.Warnings = errorMessages(errortypes.WarningOnly(r.errs))

	r.persist(ctx)
	r.orch.deps.Metrics.RecordProposal(outcomeFor(r.result.Status), r.result.CompletedAt.Sub(r.result.StartedAt))
}

// persist writes the finalized records. Persistence failures degrade to a
// warning; the evaluation outcome stands regardless.
func (r *pipelineRun) persist(ctx context.Context) {
	store := r.orch.deps.Storage
	if store == nil || r.result.Evaluation == nil {
		return
	}

	saveCtx, cancel := r.collaboratorCtx(ctx)
	defer cancel()

	err := store.SaveEvaluation(saveCtx, r.proposal.ID, r.result.Evaluation)
	if err == nil {
		err = store.SaveDecision(saveCtx, r.proposal.ID, r.result)
	}
	if err != nil {
		glog.Warningf("Failed to persist evaluation for proposal %s: %v", r.proposal.ID, err)
		r.orch.deps.Metrics.RecordStorageError()
		r.result.Warnings = append(r.result.Warnings, fmt.Sprintf("Evaluation not persisted: %v", err))
	}
}

func outcomeFor(status Status) metrics.Outcome {
	switch status {
	case StatusAccepted:
		return metrics.OutcomeAccepted
	case StatusCounterPending:
		return metrics.OutcomeCounter
	case StatusRejected:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}

func errorMessages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
