// Package audit persists the pricing audit trail. Every registry mutation and
// every price resolution produces one entry; entries reference override ids by
// value, so deleting an override never rewrites history.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Event types recorded by the pricing core.
const (
	EventOverrideCreated     = "override.created"
	EventOverrideUpdated     = "override.updated"
	EventOverrideDeactivated = "override.deactivated"
	EventOverrideDeleted     = "override.deleted"
	EventPriceResolved       = "price.resolved"
)

// Entry is a single audit record.
type Entry struct {
	EventType string         `json:"event_type"`
	ActorID   string         `json:"actor_id"`
	EntityID  string         `json:"entity_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

// Sink receives audit entries. The resolver treats writes as best-effort; the
// override registry requires them to succeed inside the mutation transaction.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so entries
// can be written standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Logger writes entries into pricing_audit_log.
type Logger struct {
	db DBTX
}

// NewLogger returns a Logger backed by the given connection or transaction.
func NewLogger(db DBTX) *Logger {
	return &Logger{db: db}
}

// WithTx returns a Logger that writes through the given transaction, so a
// registry mutation and its audit entry commit or roll back together.
func (l *Logger) WithTx(tx pgx.Tx) *Logger {
	return &Logger{db: tx}
}

// Record persists the entry.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.db == nil {
		return errors.New("audit: logger not initialised")
	}
	if entry.EventType == "" || entry.EntityID == "" {
		return errors.New("audit: entry requires event_type and entity_id")
	}
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	occurredAt := entry.At
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err = l.db.Exec(ctx,
		`INSERT INTO pricing_audit_log (event_type, actor_id, entity_id, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.EventType, entry.ActorID, entry.EntityID, payloadJSON, occurredAt)
	return err
}
