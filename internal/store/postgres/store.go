package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// Record is a stored row keyed by column name.
type Record = store.Record

// Store implements store.Store over the tables created by the migrations.
type Store struct{ db *DB }

var (
	_ store.Store         = (*Store)(nil)
	_ pipeline.PageSource = (*Store)(nil)
)

// NewStore constructs a store over db.
func NewStore(db *DB) *Store { return &Store{db: db} }

// where renders f as a WHERE clause, appending its arguments to args.
func (t *table) where(f pipeline.Filter, args []any) (string, []any, error) {
	if len(f) == 0 {
		return "", args, nil
	}
	parts := make([]string, 0, len(f))
	for _, c := range f {
		col, err := t.column(c.Field)
		if err != nil {
			return "", nil, err
		}
		switch c.Op {
		case pipeline.OpEq:
			args = append(args, col.arg(c.Value))
			parts = append(parts, fmt.Sprintf("%s = $%d", col.name, len(args)))
		case pipeline.OpNe:
			args = append(args, col.arg(c.Value))
			parts = append(parts, fmt.Sprintf("%s <> $%d", col.name, len(args)))
		case pipeline.OpIn:
			if len(c.Values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			ph := make([]string, len(c.Values))
			for i, v := range c.Values {
				args = append(args, col.arg(v))
				ph[i] = fmt.Sprintf("$%d", len(args))
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col.name, strings.Join(ph, ", ")))
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *Store) query(ctx context.Context, t *table, sql string, args ...any) ([]Record, error) {
	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr("select "+t.name, err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapErr("select "+t.name, err)
	}
	out := make([]Record, len(raw))
	for i, m := range raw {
		out[i] = t.decode(m)
	}
	return out, nil
}

// Find implements pipeline.Source.
func (s *Store) Find(ctx context.Context, collection string, f pipeline.Filter) ([]Record, error) {
	t, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	w, args, err := t.where(f, nil)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + t.columnList() + " FROM " + t.name + w + " ORDER BY created_at, id"
	return s.query(ctx, t, q, args...)
}

// FindPage implements pipeline.PageSource. Text sorts use the C collation
// and nulls sort lowest, matching pipeline.Compare; created_at, id breaks
// the remaining ties as in Find. Array columns are not orderable.
func (s *Store) FindPage(ctx context.Context, collection string, f pipeline.Filter, win pipeline.Window) ([]Record, bool, error) {
	t, err := lookup(collection)
	if err != nil {
		return nil, false, err
	}
	order := make([]string, 0, len(win.Keys)+2)
	for _, k := range win.Keys {
		col, err := t.column(k.Field)
		if err != nil || col.kind == kUUIDs {
			return nil, false, nil
		}
		expr := col.name
		if col.kind == kText {
			expr += ` COLLATE "C"`
		}
		if k.Desc {
			expr += " DESC NULLS LAST"
		} else {
			expr += " ASC NULLS FIRST"
		}
		order = append(order, expr)
	}
	order = append(order, "created_at", "id")

	w, args, err := t.where(f, nil)
	if err != nil {
		return nil, false, err
	}
	q := "SELECT " + t.columnList() + " FROM " + t.name + w + " ORDER BY " + strings.Join(order, ", ")
	if win.Limit >= 0 {
		args = append(args, win.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if win.Skip > 0 {
		args = append(args, win.Skip)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	recs, err := s.query(ctx, t, q, args...)
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

// FindByID loads one row.
func (s *Store) FindByID(ctx context.Context, collection string, id uuid.UUID) (Record, error) {
	recs, err := s.Find(ctx, collection, pipeline.Where(pipeline.Eq("id", id)))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errs.ErrNotFound
	}
	return recs[0], nil
}

// FindOne returns the first match or nil.
func (s *Store) FindOne(ctx context.Context, collection string, f pipeline.Filter) (Record, error) {
	recs, err := s.Find(ctx, collection, f)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, collection string, f pipeline.Filter) (int64, error) {
	t, err := lookup(collection)
	if err != nil {
		return 0, err
	}
	w, args, err := t.where(f, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.Pool.QueryRow(ctx, "SELECT count(*) FROM "+t.name+w, args...).Scan(&n); err != nil {
		return 0, mapErr("count "+t.name, err)
	}
	return n, nil
}

// Aggregate runs stages with this store as the join source.
func (s *Store) Aggregate(ctx context.Context, collection string, stages []pipeline.Stage) ([]Record, error) {
	return pipeline.Run(ctx, s, collection, stages)
}

// Insert writes the known columns of rec; absent timestamps take the column default.
func (s *Store) Insert(ctx context.Context, collection string, rec Record) (uuid.UUID, error) {
	t, err := lookup(collection)
	if err != nil {
		return uuid.Nil, err
	}
	if rec.ID() == uuid.Nil {
		return uuid.Nil, fmt.Errorf("insert %s without id: %w", t.name, errs.ErrInvalidReference)
	}
	q, args := t.insertSQL(rec)
	if _, err := s.db.Pool.Exec(ctx, q, args...); err != nil {
		return uuid.Nil, mapErr("insert "+t.name, err)
	}
	return rec.ID(), nil
}

func (t *table) insertSQL(rec Record) (string, []any) {
	var names, ph []string
	var args []any
	for _, c := range t.cols {
		v, ok := rec[c.name]
		if !ok || (c.kind == kTime && isZeroTime(v)) {
			continue
		}
		args = append(args, c.arg(v))
		names = append(names, c.name)
		ph = append(ph, fmt.Sprintf("$%d", len(args)))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(names, ", "), strings.Join(ph, ", ")), args
}

// UpdateByID sets the patched columns and bumps updated_at.
func (s *Store) UpdateByID(ctx context.Context, collection string, id uuid.UUID, patch Record) (Record, error) {
	return s.UpdateByIDIf(ctx, collection, id, nil, patch)
}

// UpdateByIDIf is UpdateByID with cond added to the WHERE clause.
func (s *Store) UpdateByIDIf(ctx context.Context, collection string, id uuid.UUID, cond pipeline.Filter, patch Record) (Record, error) {
	t, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	w, args, err := t.where(append(pipeline.Where(pipeline.Eq("id", id)), cond...), nil)
	if err != nil {
		return nil, err
	}
	sets := []string{}
	for _, c := range t.cols {
		v, ok := patch[c.name]
		if !ok || c.name == "id" || c.name == "created_at" || c.name == "updated_at" {
			continue
		}
		args = append(args, c.arg(v))
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	sets = append(sets, "updated_at = now()")
	q := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s", t.name, strings.Join(sets, ", "), w, t.columnList())
	recs, err := s.query(ctx, t, q, args...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errs.ErrNotFound
	}
	return recs[0], nil
}

// DeleteByID removes one row.
func (s *Store) DeleteByID(ctx context.Context, collection string, id uuid.UUID) (bool, error) {
	n, err := s.DeleteMany(ctx, collection, pipeline.Where(pipeline.Eq("id", id)))
	return n > 0, err
}

// DeleteMany removes every matching row.
func (s *Store) DeleteMany(ctx context.Context, collection string, f pipeline.Filter) (int64, error) {
	t, err := lookup(collection)
	if err != nil {
		return 0, err
	}
	w, args, err := t.where(f, nil)
	if err != nil {
		return 0, err
	}
	tag, err := s.db.Pool.Exec(ctx, "DELETE FROM "+t.name+w, args...)
	if err != nil {
		return 0, mapErr("delete "+t.name, err)
	}
	return tag.RowsAffected(), nil
}

// Increment adds delta to an integer column in place.
func (s *Store) Increment(ctx context.Context, collection string, id uuid.UUID, field string, delta int64) error {
	t, c, err := s.numeric(collection, field, kInt)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET %s = %s + $2 WHERE id = $1", t.name, c.name, c.name)
	tag, err := s.db.Pool.Exec(ctx, q, id, delta)
	if err != nil {
		return mapErr("increment "+t.name, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) numeric(collection, field string, want kind) (*table, column, error) {
	t, err := lookup(collection)
	if err != nil {
		return nil, column{}, err
	}
	c, err := t.column(field)
	if err != nil {
		return nil, column{}, err
	}
	if c.kind != want {
		return nil, column{}, fmt.Errorf("postgres: column %s.%s has the wrong type", t.name, field)
	}
	return t, c, nil
}

// AddToSet appends value unless the array already holds it.
func (s *Store) AddToSet(ctx context.Context, collection string, id uuid.UUID, field string, value uuid.UUID) (bool, error) {
	t, c, err := s.numeric(collection, field, kUUIDs)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = array_append(%s, $2::uuid), updated_at = now()
WHERE id = $1 AND NOT ($2::uuid = ANY(%s))`, t.name, c.name, c.name, c.name)
	return s.setOp(ctx, t, q, id, value)
}

// RemoveFromSet drops value from the array if present.
func (s *Store) RemoveFromSet(ctx context.Context, collection string, id uuid.UUID, field string, value uuid.UUID) (bool, error) {
	t, c, err := s.numeric(collection, field, kUUIDs)
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = array_remove(%s, $2::uuid), updated_at = now()
WHERE id = $1 AND $2::uuid = ANY(%s)`, t.name, c.name, c.name, c.name)
	return s.setOp(ctx, t, q, id, value)
}

// setOp runs a conditional array update; zero affected rows means either
// no change or a missing row, which a follow-up existence check tells apart.
func (s *Store) setOp(ctx context.Context, t *table, q string, id, value uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, q, id, value)
	if err != nil {
		return false, mapErr("update "+t.name, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := s.db.Pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+t.name+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, mapErr("select "+t.name, err)
	}
	if !exists {
		return false, errs.ErrNotFound
	}
	return false, nil
}

// ToggleEdge deletes the edge under key or inserts rec in one transaction.
// A concurrent insert of the same edge surfaces as errs.ErrConflict.
func (s *Store) ToggleEdge(ctx context.Context, collection string, key pipeline.Filter, rec Record) (active bool, err error) {
	t, err := lookup(collection)
	if err != nil {
		return false, err
	}
	w, args, err := t.where(key, nil)
	if err != nil {
		return false, err
	}
	if w == "" {
		return false, fmt.Errorf("toggle %s without key: %w", t.name, errs.ErrValidation)
	}

	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, mapErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = mapErr("commit", e)
		}
	}()

	tag, err := tx.Exec(ctx, "DELETE FROM "+t.name+w, args...)
	if err != nil {
		return false, mapErr("delete "+t.name, err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	q, ins := t.insertSQL(rec)
	tag, err = tx.Exec(ctx, q+" ON CONFLICT DO NOTHING", ins...)
	if err != nil {
		return false, mapErr("insert "+t.name, err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("toggle %s: %w", t.name, errs.ErrConflict)
	}
	return true, nil
}

// TextSearch matches plainto_tsquery terms against the concatenated fields.
func (s *Store) TextSearch(ctx context.Context, collection string, fields []string, query string) ([]uuid.UUID, error) {
	t, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" || len(fields) == 0 {
		return nil, nil
	}
	doc, err := t.document(fields)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id FROM %s WHERE %s @@ plainto_tsquery('simple', $1)", t.name, doc)
	rows, err := s.db.Pool.Query(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSearchUnavailable, err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSearchUnavailable, err)
	}
	return ids, nil
}

// document renders the tsvector expression; it matches the GIN index
// created by the migrations for videos(title, description).
func (t *table) document(fields []string) (string, error) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		c, err := t.column(f)
		if err != nil {
			return "", err
		}
		if c.kind != kText {
			return "", fmt.Errorf("postgres: column %s.%s is not text", t.name, f)
		}
		parts[i] = fmt.Sprintf("coalesce(%s, '')", c.name)
	}
	return "to_tsvector('simple', " + strings.Join(parts, " || ' ' || ") + ")", nil
}
