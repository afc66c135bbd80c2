package pipeline

import (
	"context"
	"sort"
)

// Stage is one step of a pipeline. Stages operate on groups of records:
// a top-level pipeline has a single group, a nested join pipeline has one
// group per subject record.
type Stage interface {
	apply(ctx context.Context, src Source, groups [][]Record) ([][]Record, error)
}

// MatchStage keeps records satisfying Filter.
type MatchStage struct{ Filter Filter }

// Match keeps records satisfying every condition.
func Match(conds ...Cond) MatchStage { return MatchStage{Filter: Where(conds...)} }

func (s MatchStage) apply(_ context.Context, _ Source, groups [][]Record) ([][]Record, error) {
	for gi, g := range groups {
		kept := g[:0:0]
		for _, r := range g {
			if s.Filter.Match(r) {
				kept = append(kept, r)
			}
		}
		groups[gi] = kept
	}
	return groups, nil
}

// NamedExpr binds a derived value to a field name.
type NamedExpr struct {
	Name string
	Expr Expr
}

// Set binds expr to name inside AddFields.
func Set(name string, expr Expr) NamedExpr { return NamedExpr{Name: name, Expr: expr} }

// AddFieldsStage derives fields in order; later fields see earlier ones.
type AddFieldsStage struct{ Fields []NamedExpr }

// AddFields derives the given fields on every record.
func AddFields(fields ...NamedExpr) AddFieldsStage { return AddFieldsStage{Fields: fields} }

func (s AddFieldsStage) apply(_ context.Context, _ Source, groups [][]Record) ([][]Record, error) {
	for _, g := range groups {
		for _, r := range g {
			for _, f := range s.Fields {
				v, err := f.Expr.Eval(r)
				if err != nil {
					return nil, err
				}
				r[f.Name] = v
			}
		}
	}
	return groups, nil
}

// SortKey orders by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// Asc sorts ascending by field.
func Asc(field string) SortKey { return SortKey{Field: field} }

// Desc sorts descending by field.
func Desc(field string) SortKey { return SortKey{Field: field, Desc: true} }

// SortStage orders each group by its keys; ties keep input order.
type SortStage struct{ Keys []SortKey }

// Sort orders records by keys.
func Sort(keys ...SortKey) SortStage { return SortStage{Keys: keys} }

func (s SortStage) apply(_ context.Context, _ Source, groups [][]Record) ([][]Record, error) {
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			for _, k := range s.Keys {
				c := Compare(g[i][k.Field], g[j][k.Field])
				if c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return groups, nil
}

// ProjectStage keeps only the allow-listed fields.
type ProjectStage struct{ Fields []string }

// Project keeps only the named fields; everything else is dropped.
func Project(fields ...string) ProjectStage { return ProjectStage{Fields: fields} }

func (s ProjectStage) apply(_ context.Context, _ Source, groups [][]Record) ([][]Record, error) {
	for _, g := range groups {
		for i, r := range g {
			out := make(Record, len(s.Fields))
			for _, f := range s.Fields {
				if v, ok := r[f]; ok {
					out[f] = v
				}
			}
			g[i] = out
		}
	}
	return groups, nil
}

// SkipStage drops the first N records of each group.
type SkipStage struct{ N int }

// Skip drops the first n records.
func Skip(n int) SkipStage { return SkipStage{N: n} }

func (s SkipStage) apply(_ context.Context, _ Source, groups [][]Record) ([][]Record, error) {
	for gi, g := range groups {
		if s.N >= len(g) {
			groups[gi] = g[:0]
			continue
		}
		if s.N > 0 {
			groups[gi] = g[s.N:]
		}
	}
	return groups, nil
}

// LimitStage truncates each group to N records.
type LimitStage struct{ N int }

// Limit keeps at most n records.
func Limit(n int) LimitStage { return LimitStage{N: n} }

func (s LimitStage) apply(_ context.Context, _ Source, groups [][]Record) ([][]Record, error) {
	for gi, g := range groups {
		if s.N >= 0 && s.N < len(g) {
			groups[gi] = g[:s.N]
		}
	}
	return groups, nil
}
