// Package store defines the entity store contract consumed by the view,
// listing, toggle and service layers.
package store

import (
	"context"

	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

// Record is a stored document.
type Record = pipeline.Record

// Store is a durable set of keyed collections.
//
// Point operations report errs.ErrNotFound for missing ids and
// errs.ErrConflict for uniqueness violations.
type Store interface {
	pipeline.Source

	// FindByID loads one record.
	FindByID(ctx context.Context, collection string, id uuid.UUID) (Record, error)
	// FindOne returns the first record matching f, or nil if none.
	FindOne(ctx context.Context, collection string, f pipeline.Filter) (Record, error)
	// Insert stores rec; rec["id"] must be set.
	Insert(ctx context.Context, collection string, rec Record) (uuid.UUID, error)
	// UpdateByID applies patch and returns the updated record.
	UpdateByID(ctx context.Context, collection string, id uuid.UUID, patch Record) (Record, error)
	// UpdateByIDIf applies patch only while the record also matches cond.
	// A record that exists but fails cond is reported as errs.ErrNotFound.
	UpdateByIDIf(ctx context.Context, collection string, id uuid.UUID, cond pipeline.Filter, patch Record) (Record, error)
	// DeleteByID removes one record and reports whether it existed.
	DeleteByID(ctx context.Context, collection string, id uuid.UUID) (bool, error)
	// DeleteMany removes all records matching f and returns how many.
	DeleteMany(ctx context.Context, collection string, f pipeline.Filter) (int64, error)
	// Aggregate runs a pipeline over collection.
	Aggregate(ctx context.Context, collection string, stages []pipeline.Stage) ([]Record, error)
	// Count returns the number of records matching f.
	Count(ctx context.Context, collection string, f pipeline.Filter) (int64, error)

	// Increment atomically adds delta to a numeric field.
	Increment(ctx context.Context, collection string, id uuid.UUID, field string, delta int64) error
	// AddToSet appends value to an array field unless already present.
	// It reports whether the set changed.
	AddToSet(ctx context.Context, collection string, id uuid.UUID, field string, value uuid.UUID) (bool, error)
	// RemoveFromSet removes value from an array field and reports whether it was present.
	RemoveFromSet(ctx context.Context, collection string, id uuid.UUID, field string, value uuid.UUID) (bool, error)

	// ToggleEdge deletes the edge identified by key if it exists, otherwise
	// inserts rec. The check and the act are atomic with respect to other
	// toggles on the same key. It returns true when the edge now exists.
	ToggleEdge(ctx context.Context, collection string, key pipeline.Filter, rec Record) (bool, error)

	// TextSearch returns ids of collection records whose fields match query.
	TextSearch(ctx context.Context, collection string, fields []string, query string) ([]uuid.UUID, error)
}
