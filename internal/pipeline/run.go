package pipeline

import (
	"context"
)

// Source is the lookup capability a pipeline needs from a store.
// Implementations must be safe for concurrent use.
type Source interface {
	// Find returns the records of collection matching f, in no particular order.
	Find(ctx context.Context, collection string, f Filter) ([]Record, error)
}

// Window orders and slices a filtered find. Limit < 0 keeps every record.
type Window struct {
	Keys  []SortKey
	Skip  int
	Limit int
}

// PageSource is a Source that can order and slice a find itself. FindPage
// must order exactly as SortStage does, breaking remaining ties in Find's
// order. ok is false when the source cannot order by w.Keys; no records are
// read in that case.
type PageSource interface {
	Source
	FindPage(ctx context.Context, collection string, f Filter, w Window) (recs []Record, ok bool, err error)
}

// Run evaluates stages over collection. A leading Match is pushed down to
// the source as the seed filter. When the source is a PageSource, a Sort
// directly after the seed, with the Skip and Limit following it, is pushed
// down too.
func Run(ctx context.Context, src Source, collection string, stages []Stage) ([]Record, error) {
	var seed Filter
	if len(stages) > 0 {
		if m, ok := stages[0].(MatchStage); ok {
			seed = m.Filter
			stages = stages[1:]
		}
	}
	if ps, ok := src.(PageSource); ok {
		if w, n, ok := window(stages); ok {
			recs, pushed, err := ps.FindPage(ctx, collection, seed, w)
			if err != nil {
				return nil, err
			}
			if pushed {
				return Apply(ctx, src, recs, stages[n:])
			}
		}
	}
	recs, err := src.Find(ctx, collection, seed)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, src, recs, stages)
}

// window reads a leading Sort, optional Skip and optional Limit, and
// reports how many stages it consumed.
func window(stages []Stage) (Window, int, bool) {
	if len(stages) == 0 {
		return Window{}, 0, false
	}
	st, ok := stages[0].(SortStage)
	if !ok {
		return Window{}, 0, false
	}
	w, n := Window{Keys: st.Keys, Limit: -1}, 1
	if n < len(stages) {
		if sk, ok := stages[n].(SkipStage); ok {
			w.Skip = max(sk.N, 0)
			n++
		}
	}
	if n < len(stages) {
		if l, ok := stages[n].(LimitStage); ok {
			w.Limit = l.N
			n++
		}
	}
	return w, n, true
}

// Apply evaluates stages over an already loaded sequence.
func Apply(ctx context.Context, src Source, recs []Record, stages []Stage) ([]Record, error) {
	groups, err := applyStages(ctx, src, [][]Record{recs}, stages)
	if err != nil {
		return nil, err
	}
	return groups[0], nil
}

func applyStages(ctx context.Context, src Source, groups [][]Record, stages []Stage) ([][]Record, error) {
	var err error
	for i := 0; i < len(stages); {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		// consecutive joins do not see each other's output, so run them together
		if _, ok := stages[i].(JoinStage); ok {
			var joins []JoinStage
			for i < len(stages) {
				j, ok := stages[i].(JoinStage)
				if !ok {
					break
				}
				joins = append(joins, j)
				i++
			}
			if groups, err = applyJoins(ctx, src, groups, joins); err != nil {
				return nil, err
			}
			continue
		}
		if groups, err = stages[i].apply(ctx, src, groups); err != nil {
			return nil, err
		}
		i++
	}
	return groups, nil
}
