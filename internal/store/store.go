// Package store persists film-list records, favorites, watch history and
// the ingest run log in SQLite.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/filmlist/internal/model"
)

// ErrNotFound is returned when a keyed lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Sink receives the chunks of a full import.
type Sink interface {
	InsertBatch(ctx context.Context, records []model.Record) error
}

// Upserter merges single records by natural key.
type Upserter interface {
	Upsert(ctx context.Context, r model.Record) error
}

// ListParams holds parameters for listing films.
type ListParams struct {
	Channel  string
	Theme    string
	Recent   bool // only records newer than the current limit date
	Limit    int
	KeysOnly bool
}

// Store defines the film storage interface.
type Store interface {
	Sink
	Upserter

	// Get returns the record with the given natural key.
	Get(ctx context.Context, key model.Key) (model.Record, error)

	// List lists records matching the given filters, newest first.
	List(ctx context.Context, p ListParams) ([]model.Record, error)

	// Delete removes one record.
	Delete(ctx context.Context, key model.Key) error

	// Reset removes all records. Favorites, history and runs are kept.
	Reset(ctx context.Context) error

	// Close closes the store.
	Close() error
}
