// Package pipeline implements a small aggregation language over keyed
// collections: ordered stages (match, join, addFields, sort, project,
// skip, limit) evaluated over sequences of records. Stores only provide
// filtered lookups; joins and derived fields are computed here so the same
// view definitions run on every backend.
package pipeline

import (
	"bytes"
	"reflect"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Record is one document of a collection, keyed by field name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record's "id" field, or uuid.Nil.
func (r Record) ID() uuid.UUID {
	id, _ := r["id"].(uuid.UUID)
	return id
}

// Seq returns the joined sequence stored under field, or nil.
func (r Record) Seq(field string) []Record {
	s, _ := r[field].([]Record)
	return s
}

// Op is a comparison operator of a filter condition.
type Op int

// Filter operators.
const (
	OpEq Op = iota
	OpNe
	OpIn
)

// Cond is a single field condition.
type Cond struct {
	Field  string
	Op     Op
	Value  any   // OpEq, OpNe
	Values []any // OpIn
}

// Eq matches records whose field equals v.
func Eq(field string, v any) Cond { return Cond{Field: field, Op: OpEq, Value: v} }

// Ne matches records whose field differs from v.
func Ne(field string, v any) Cond { return Cond{Field: field, Op: OpNe, Value: v} }

// In matches records whose field equals one of vs.
func In(field string, vs ...any) Cond { return Cond{Field: field, Op: OpIn, Values: vs} }

// InIDs is In over a list of uuids.
func InIDs(field string, ids []uuid.UUID) Cond {
	vs := make([]any, len(ids))
	for i, id := range ids {
		vs[i] = id
	}
	return In(field, vs...)
}

// Filter is a conjunction of conditions. The empty filter matches everything.
type Filter []Cond

// Where builds a filter from conditions.
func Where(conds ...Cond) Filter { return Filter(conds) }

// Match reports whether r satisfies every condition of f.
func (f Filter) Match(r Record) bool {
	for _, c := range f {
		v := r[c.Field]
		switch c.Op {
		case OpEq:
			if Compare(v, c.Value) != 0 {
				return false
			}
		case OpNe:
			if Compare(v, c.Value) == 0 {
				return false
			}
		case OpIn:
			hit := false
			for _, want := range c.Values {
				if Compare(v, want) == 0 {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	return true
}

// Compare orders two field values. nil sorts first; values of different
// kinds compare by kind name so the order is total.
func Compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y)
		case float64:
			return cmpOrdered(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y)
		case int64:
			return cmpOrdered(x, float64(y))
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:])
		}
	}
	return strings.Compare(kindName(a), kindName(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// normalize folds integer and float widths and named string types so
// values read from different backends compare equal.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case [16]byte:
		return uuid.UUID(x)
	case *uuid.UUID:
		if x == nil {
			return nil
		}
		return *x
	case int64, float64, string, bool, time.Time, uuid.UUID, nil:
		return v
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}

func kindName(v any) string {
	switch v.(type) {
	case int64, float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	case time.Time:
		return "time"
	case uuid.UUID:
		return "uuid"
	}
	return "other"
}

// elements returns the values of a scalar or array field.
func elements(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	case []uuid.UUID:
		out := make([]any, len(x))
		for i, id := range x {
			out[i] = id
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	}
	return []any{v}
}
