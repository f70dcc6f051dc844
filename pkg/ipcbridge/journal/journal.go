// Package journal records inbound responses that no handler was waiting for.
//
// The id-matching path drops such responses by design: a stream handler may
// have been removed on purpose. The journal keeps a trail of them so a
// misbehaving peer, or a caller that removed a handler too early, can be
// diagnosed after the fact.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Strategy names the matching path that failed to find a handler.
const (
	StrategyID    = "id"
	StrategyEvent = "event"
)

// Record is one unmatched inbound response.
type Record struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Event         string    `json:"event,omitempty"`
	Strategy      string    `json:"strategy"`
	Error         string    `json:"error,omitempty"`
	Data          []byte    `json:"data,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
}

// NewRecord builds a record for an unmatched response. Data is stored as
// JSON; values that cannot be marshalled are recorded without data.
func NewRecord(strategy, correlationID, event string, err error, data any) Record {
	rec := Record{
		ID:            uuid.New().String(),
		CorrelationID: correlationID,
		Event:         event,
		Strategy:      strategy,
		ReceivedAt:    time.Now().UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	switch d := data.(type) {
	case nil:
	case json.RawMessage:
		rec.Data = append([]byte(nil), d...)
	case []byte:
		rec.Data = append([]byte(nil), d...)
	default:
		rec.Data, _ = json.Marshal(d)
	}
	return rec
}

// Store persists unmatched responses.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores a record.
	Append(ctx context.Context, rec Record) error

	// List returns up to limit records, oldest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Purge deletes records received before the cutoff and returns how many
	// were removed.
	Purge(ctx context.Context, before time.Time) (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("journal store closed")
