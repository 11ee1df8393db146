package storage

import (
	"context"
	"sync"
)

// NewMemoryWriter returns a Writer that appends records to an in-process
// list, grouped by id. Useful for tests and single-node deployments.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{records: make(map[string][]Record)}
}

// MemoryWriter is an in-memory append-only Writer. Safe for concurrent use.
type MemoryWriter struct {
	mu      sync.Mutex
	records map[string][]Record
}

func (w *MemoryWriter) SaveEvaluation(ctx context.Context, proposalID string, evaluation interface{}) error {
	return w.append(KindEvaluation, proposalID, evaluation)
}

func (w *MemoryWriter) SaveDecision(ctx context.Context, proposalID string, decision interface{}) error {
	return w.append(KindDecision, proposalID, decision)
}

func (w *MemoryWriter) SaveDeal(ctx context.Context, dealID string, deal interface{}) error {
	return w.append(KindDeal, dealID, deal)
}

// Records returns a copy of everything saved under the given id, in insertion
// order.
func (w *MemoryWriter) Records(id string) []Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	records := make([]Record, len(w.records[id]))
	copy(records, w.records[id])
	return records
}

func (w *MemoryWriter) append(kind, id string, payload interface{}) error {
	record, err := newRecord(kind, id, payload)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records[id] = append(w.records[id], record)
	return nil
}
