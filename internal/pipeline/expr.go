package pipeline

import (
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
)

// Expr derives a value from a (joined) record.
type Expr interface {
	Eval(r Record) (any, error)
}

// ExprFunc adapts a function to Expr.
type ExprFunc func(r Record) (any, error)

// Eval calls f(r).
func (f ExprFunc) Eval(r Record) (any, error) { return f(r) }

// Field copies the value stored under name.
func Field(name string) Expr {
	return ExprFunc(func(r Record) (any, error) { return r[name], nil })
}

// Count is the cardinality of the joined sequence under as.
func Count(as string) Expr {
	return ExprFunc(func(r Record) (any, error) { return int64(len(r.Seq(as))), nil })
}

// First collapses the joined sequence under as to its first element, or nil.
func First(as string) Expr {
	return ExprFunc(func(r Record) (any, error) {
		if s := r.Seq(as); len(s) > 0 {
			return s[0], nil
		}
		return nil, nil
	})
}

// One is First for relations that must resolve: an empty sequence fails
// with errs.ErrNotFound naming the dangling reference.
func One(as, from string) Expr {
	return ExprFunc(func(r Record) (any, error) {
		if s := r.Seq(as); len(s) > 0 {
			return s[0], nil
		}
		return nil, fmt.Errorf("%s %v: %w", as, r[from], errs.ErrNotFound)
	})
}

// Has reports whether the caller's id appears as field in any element of
// the joined sequence under as. Anonymous callers are never members.
func Has(as, field string, caller identity.Caller) Expr {
	return ExprFunc(func(r Record) (any, error) {
		if !caller.Authenticated() {
			return false, nil
		}
		for _, e := range r.Seq(as) {
			if Compare(e[field], caller.ID) == 0 {
				return true, nil
			}
		}
		return false, nil
	})
}

// Sum adds field across the joined sequence under as. The result is int64
// when every summand is integral, float64 otherwise.
func Sum(as, field string) Expr {
	return ExprFunc(func(r Record) (any, error) {
		var (
			ints   int64
			floats float64
			isF    bool
		)
		for _, e := range r.Seq(as) {
			switch v := normalize(e[field]).(type) {
			case int64:
				ints += v
			case float64:
				floats += v
				isF = true
			case nil:
			default:
				return nil, fmt.Errorf("sum %s.%s: non-numeric %T", as, field, v)
			}
		}
		if isF {
			return floats + float64(ints), nil
		}
		return ints, nil
	})
}
