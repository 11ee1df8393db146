package proposal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/adseller/deal-server/identity"
)

// Advisor produces an accept/counter/reject recommendation for an evaluated
// proposal. Implementations must be treated as unreliable: the orchestrator
// always pairs an Advisor with the rule-based fallback.
type Advisor interface {
	Evaluate(ctx context.Context, evaluation *Evaluation, buyerCtx *identity.BuyerContext) (string, error)
}

// RuleBasedAdvisor is the deterministic fallback decision: accept when price,
// availability and targeting all check out; counter while inventory exists;
// reject otherwise.
type RuleBasedAdvisor struct{}

func (RuleBasedAdvisor) Evaluate(ctx context.Context, evaluation *Evaluation, buyerCtx *identity.BuyerContext) (string, error) {
	if evaluation == nil {
		return RecommendReject, nil
	}
	if evaluation.PriceAcceptable && evaluation.ImpressionsAvailable && evaluation.TargetingCompatible {
		return RecommendAccept, nil
	}
	if evaluation.ImpressionsAvailable {
		return RecommendCounter, nil
	}
	return RecommendReject, nil
}

// HTTPAdvisor posts the evaluation to an external advisory service and scans
// the response text for a recommendation. The service's output is free-form,
// so any response mentioning neither accept nor counter reads as reject.
type HTTPAdvisor struct {
	endpoint string
	client   *http.Client
}

// NewHTTPAdvisor builds an advisor against the given endpoint. timeout bounds
// each call; the zero value gets a 5s default.
func NewHTTPAdvisor(endpoint string, timeout time.Duration) *HTTPAdvisor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPAdvisor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAdvisor) Evaluate(ctx context.Context, evaluation *Evaluation, buyerCtx *identity.BuyerContext) (string, error) {
	body, err := json.Marshal(struct {
		Evaluation *Evaluation         `json:"evaluation"`
		BuyerTier  identity.AccessTier `json:"buyer_tier"`
	}{evaluation, buyerCtx.EffectiveTier()})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("advisory service returned status %d", resp.StatusCode)
	}

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := strings.ToLower(string(respBody))
	switch {
	case strings.Contains(text, RecommendAccept):
		return RecommendAccept, nil
	case strings.Contains(text, RecommendCounter):
		return RecommendCounter, nil
	default:
		return RecommendReject, nil
	}
}
