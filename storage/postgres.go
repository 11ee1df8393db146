package storage

import (
	"context"
	"database/sql"

	"github.com/golang/glog"
	_ "github.com/lib/pq"
)

// NewPostgresWriter returns a Writer that inserts one row per record into
// tableName, which needs columns (kind, id, payload, saved_at).
func NewPostgresWriter(db *sql.DB, tableName string) *PostgresWriter {
	if db == nil {
		glog.Fatalf("The Postgres evaluation writer requires a database connection. Please report this as a bug.")
	}
	if tableName == "" {
		tableName = "evaluation_records"
	}
	return &PostgresWriter{
		db:    db,
		query: "INSERT INTO " + tableName + " (kind, id, payload, saved_at) VALUES ($1, $2, $3, $4)",
	}
}

// PostgresWriter is an append-only Writer backed by a Postgres table.
type PostgresWriter struct {
	db    *sql.DB
	query string
}

func (w *PostgresWriter) SaveEvaluation(ctx context.Context, proposalID string, evaluation interface{}) error {
	return w.insert(ctx, KindEvaluation, proposalID, evaluation)
}

func (w *PostgresWriter) SaveDecision(ctx context.Context, proposalID string, decision interface{}) error {
	return w.insert(ctx, KindDecision, proposalID, decision)
}

func (w *PostgresWriter) SaveDeal(ctx context.Context, dealID string, deal interface{}) error {
	return w.insert(ctx, KindDeal, dealID, deal)
}

func (w *PostgresWriter) insert(ctx context.Context, kind, id string, payload interface{}) error {
	record, err := newRecord(kind, id, payload)
	if err != nil {
		return err
	}
	_, err = w.db.ExecContext(ctx, w.query, record.Kind, record.ID, []byte(record.Payload), record.SavedAt)
	if err != nil {
		glog.Errorf("Error writing %s record for id=%s: %v", kind, id, err)
	}
	return err
}
