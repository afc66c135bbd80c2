package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// JoinSpec attaches to each subject record, under As, the records of
// Collection whose To field equals the subject's From field. From may hold
// a single value or an array of values. The join is left-outer: subjects
// without matches get an empty sequence. Pipeline runs once per subject
// over that subject's matches.
type JoinSpec struct {
	From       string
	Collection string
	To         string
	As         string
	Pipeline   []Stage
}

// JoinStage executes a JoinSpec.
type JoinStage struct{ Spec JoinSpec }

// Join builds a left-outer join stage.
func Join(spec JoinSpec) JoinStage { return JoinStage{Spec: spec} }

func (s JoinStage) apply(ctx context.Context, src Source, groups [][]Record) ([][]Record, error) {
	return applyJoins(ctx, src, groups, []JoinStage{s})
}

// applyJoins resolves independent joins concurrently and attaches their
// results once all have finished.
func applyJoins(ctx context.Context, src Source, groups [][]Record, joins []JoinStage) ([][]Record, error) {
	var subjects []Record
	for _, g := range groups {
		subjects = append(subjects, g...)
	}
	if len(subjects) == 0 {
		return groups, nil
	}

	results := make([][][]Record, len(joins))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, j := range joins {
		i, j := i, j
		eg.Go(func() error {
			res, err := j.Spec.resolve(egCtx, src, subjects)
			if err != nil {
				return fmt.Errorf("join %s: %w", j.Spec.As, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, j := range joins {
		for k, r := range subjects {
			r[j.Spec.As] = results[i][k]
		}
	}
	return groups, nil
}

// resolve returns, parallel to subjects, the joined sequence of each one.
func (j JoinSpec) resolve(ctx context.Context, src Source, subjects []Record) ([][]Record, error) {
	var keys []any
	seen := map[any]struct{}{}
	for _, r := range subjects {
		for _, v := range elements(r[j.From]) {
			k := normalize(v)
			if k == nil {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	out := make([][]Record, len(subjects))
	if len(keys) == 0 {
		for i := range out {
			out[i] = []Record{}
		}
		return out, nil
	}

	foreign, err := src.Find(ctx, j.Collection, Where(In(j.To, keys...)))
	if err != nil {
		return nil, err
	}
	byKey := map[any][]Record{}
	for _, f := range foreign {
		k := normalize(f[j.To])
		byKey[k] = append(byKey[k], f)
	}

	for i, r := range subjects {
		seq := []Record{}
		for _, v := range elements(r[j.From]) {
			for _, f := range byKey[normalize(v)] {
				// every subject owns its copy; nested stages mutate them
				seq = append(seq, f.Clone())
			}
		}
		out[i] = seq
	}

	if len(j.Pipeline) == 0 {
		return out, nil
	}
	return applyStages(ctx, src, out, j.Pipeline)
}
