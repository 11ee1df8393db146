// Package storage persists evaluation outcomes. Records are append-only:
// re-evaluating a proposal adds a new record rather than rewriting history.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Record kinds.
const (
	KindEvaluation = "evaluation"
	KindDecision   = "decision"
	KindDeal       = "deal"
)

// Record is one persisted row: a kind, the proposal or deal id it belongs
// to, and the serialized payload.
type Record struct {
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	SavedAt time.Time       `json:"saved_at"`
}

// Writer persists evaluation pipeline outputs. Payloads are any
// JSON-serializable value; the writer owns serialization so callers stay
// decoupled from the backend.
type Writer interface {
	SaveEvaluation(ctx context.Context, proposalID string, evaluation interface{}) error
	SaveDecision(ctx context.Context, proposalID string, decision interface{}) error
	SaveDeal(ctx context.Context, dealID string, deal interface{}) error
}

func newRecord(kind, id string, payload interface{}) (Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Kind:    kind,
		ID:      id,
		Payload: data,
		SavedAt: time.Now().UTC(),
	}, nil
}
