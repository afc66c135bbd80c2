// Package memory is an in-process Entity Store with the same uniqueness
// guarantees as the PostgreSQL schema. It backs dev mode and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
)

// uniques lists the unique field sets of each collection.
var uniques = map[string][][]string{
	model.Users:         {{"handle"}, {"email"}},
	model.Likes:         {{"liker_id", "target_kind", "target_id"}},
	model.Subscriptions: {{"subscriber_id", "channel_id"}},
}

type collection struct {
	rows  map[uuid.UUID]store.Record
	order []uuid.UUID
}

// Store keeps all collections in memory behind a single RWMutex.
type Store struct {
	mu    sync.RWMutex
	cols  map[string]*collection
	clock func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{cols: map[string]*collection{}, clock: func() time.Time { return time.Now().UTC() }}
	for _, c := range []string{model.Users, model.Videos, model.Comments, model.Tweets, model.Likes, model.Subscriptions, model.Playlists} {
		s.cols[c] = &collection{rows: map[uuid.UUID]store.Record{}}
	}
	return s
}

// WithClock replaces the timestamp source; used by tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) col(name string) (*collection, error) {
	c, ok := s.cols[name]
	if !ok {
		return nil, fmt.Errorf("memory: unknown collection %q", name)
	}
	return c, nil
}

func (c *collection) scan(f pipeline.Filter) []store.Record {
	var out []store.Record
	for _, id := range c.order {
		if r := c.rows[id]; f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Find implements pipeline.Source.
func (s *Store) Find(ctx context.Context, name string, f pipeline.Filter) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.col(name)
	if err != nil {
		return nil, err
	}
	return c.scan(f), nil
}

// FindByID loads one record.
func (s *Store) FindByID(ctx context.Context, name string, id uuid.UUID) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.col(name)
	if err != nil {
		return nil, err
	}
	r, ok := c.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.Clone(), nil
}

// FindOne returns the first match or nil.
func (s *Store) FindOne(ctx context.Context, name string, f pipeline.Filter) (store.Record, error) {
	recs, err := s.Find(ctx, name, f)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Count returns the number of matches.
func (s *Store) Count(ctx context.Context, name string, f pipeline.Filter) (int64, error) {
	recs, err := s.Find(ctx, name, f)
	return int64(len(recs)), err
}

// Insert stores a copy of rec.
func (s *Store) Insert(ctx context.Context, name string, rec store.Record) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(name, rec)
}

func (s *Store) insertLocked(name string, rec store.Record) (uuid.UUID, error) {
	c, err := s.col(name)
	if err != nil {
		return uuid.Nil, err
	}
	id := rec.ID()
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("memory: insert %s without id: %w", name, errs.ErrInvalidReference)
	}
	if _, dup := c.rows[id]; dup {
		return uuid.Nil, errs.ErrConflict
	}
	if err := checkRow(name, rec); err != nil {
		return uuid.Nil, err
	}
	if s.violatesUnique(name, c, rec, uuid.Nil) {
		return uuid.Nil, errs.ErrConflict
	}
	r := rec.Clone()
	now := s.clock()
	for _, f := range []string{"created_at", "updated_at"} {
		if t, _ := r[f].(time.Time); t.IsZero() {
			r[f] = now
		}
	}
	c.rows[id] = r
	c.order = append(c.order, id)
	return id, nil
}

// checkRow mirrors the CHECK constraints of the SQL schema.
func checkRow(name string, r store.Record) error {
	switch name {
	case model.Subscriptions:
		if pipeline.Compare(r["subscriber_id"], r["channel_id"]) == 0 {
			return fmt.Errorf("self subscription: %w", errs.ErrValidation)
		}
	case model.Likes:
		k, _ := r["target_kind"].(string)
		if !model.TargetKind(k).Valid() {
			return fmt.Errorf("like target kind %q: %w", k, errs.ErrValidation)
		}
	}
	return nil
}

func (s *Store) violatesUnique(name string, c *collection, r store.Record, self uuid.UUID) bool {
	for _, fields := range uniques[name] {
		f := make(pipeline.Filter, 0, len(fields))
		for _, fld := range fields {
			f = append(f, pipeline.Eq(fld, r[fld]))
		}
		for id, other := range c.rows {
			if id != self && f.Match(other) {
				return true
			}
		}
	}
	return false
}

// UpdateByID merges patch into the record and bumps updated_at.
func (s *Store) UpdateByID(ctx context.Context, name string, id uuid.UUID, patch store.Record) (store.Record, error) {
	return s.UpdateByIDIf(ctx, name, id, nil, patch)
}

// UpdateByIDIf merges patch only while the record matches cond.
func (s *Store) UpdateByIDIf(ctx context.Context, name string, id uuid.UUID, cond pipeline.Filter, patch store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.col(name)
	if err != nil {
		return nil, err
	}
	cur, ok := c.rows[id]
	if !ok || !cond.Match(cur) {
		return nil, errs.ErrNotFound
	}
	next := cur.Clone()
	for k, v := range patch {
		if k == "id" {
			continue
		}
		next[k] = v
	}
	next["updated_at"] = s.clock()
	if s.violatesUnique(name, c, next, id) {
		return nil, errs.ErrConflict
	}
	c.rows[id] = next
	return next.Clone(), nil
}

// DeleteByID removes one record.
func (s *Store) DeleteByID(ctx context.Context, name string, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.col(name)
	if err != nil {
		return false, err
	}
	return c.remove(id), nil
}

func (c *collection) remove(id uuid.UUID) bool {
	if _, ok := c.rows[id]; !ok {
		return false
	}
	delete(c.rows, id)
	c.order = slices.DeleteFunc(c.order, func(x uuid.UUID) bool { return x == id })
	return true
}

// DeleteMany removes every match.
func (s *Store) DeleteMany(ctx context.Context, name string, f pipeline.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.col(name)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range c.scan(f) {
		if c.remove(r.ID()) {
			n++
		}
	}
	return n, nil
}

// Aggregate runs stages against this store.
func (s *Store) Aggregate(ctx context.Context, name string, stages []pipeline.Stage) ([]store.Record, error) {
	return pipeline.Run(ctx, s, name, stages)
}

// Increment adds delta to an integer field without touching updated_at.
func (s *Store) Increment(ctx context.Context, name string, id uuid.UUID, field string, delta int64) error {
	return s.mutate(ctx, name, id, false, func(r store.Record) bool {
		cur, _ := r[field].(int64)
		r[field] = cur + delta
		return true
	})
}

// AddToSet appends value to an id array unless present.
func (s *Store) AddToSet(ctx context.Context, name string, id uuid.UUID, field string, value uuid.UUID) (bool, error) {
	var changed bool
	err := s.mutate(ctx, name, id, true, func(r store.Record) bool {
		cur, _ := r[field].([]uuid.UUID)
		if slices.Contains(cur, value) {
			return false
		}
		next := make([]uuid.UUID, 0, len(cur)+1)
		r[field] = append(append(next, cur...), value)
		changed = true
		return true
	})
	return changed, err
}

// RemoveFromSet drops value from an id array.
func (s *Store) RemoveFromSet(ctx context.Context, name string, id uuid.UUID, field string, value uuid.UUID) (bool, error) {
	var changed bool
	err := s.mutate(ctx, name, id, true, func(r store.Record) bool {
		cur, _ := r[field].([]uuid.UUID)
		if !slices.Contains(cur, value) {
			return false
		}
		r[field] = slices.DeleteFunc(slices.Clone(cur), func(x uuid.UUID) bool { return x == value })
		changed = true
		return true
	})
	return changed, err
}

func (s *Store) mutate(ctx context.Context, name string, id uuid.UUID, touch bool, fn func(store.Record) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.col(name)
	if err != nil {
		return err
	}
	cur, ok := c.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	next := cur.Clone()
	if fn(next) {
		if touch {
			next["updated_at"] = s.clock()
		}
		c.rows[id] = next
	}
	return nil
}

// ToggleEdge removes the edge matching key or inserts rec under one lock.
func (s *Store) ToggleEdge(ctx context.Context, name string, key pipeline.Filter, rec store.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.col(name)
	if err != nil {
		return false, err
	}
	if existing := c.scan(key); len(existing) > 0 {
		for _, e := range existing {
			c.remove(e.ID())
		}
		return false, nil
	}
	if _, err := s.insertLocked(name, rec); err != nil {
		return false, err
	}
	return true, nil
}

// TextSearch matches when every query term occurs in one of fields, case-insensitively.
func (s *Store) TextSearch(ctx context.Context, name string, fields []string, query string) ([]uuid.UUID, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	recs, err := s.Find(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, r := range recs {
		var sb strings.Builder
		for _, f := range fields {
			if v, ok := r[f].(string); ok {
				sb.WriteString(strings.ToLower(v))
				sb.WriteByte(' ')
			}
		}
		text := sb.String()
		all := true
		for _, t := range terms {
			if !strings.Contains(text, t) {
				all = false
				break
			}
		}
		if all {
			ids = append(ids, r.ID())
		}
	}
	return ids, nil
}
