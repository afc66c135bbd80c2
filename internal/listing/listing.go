// Package listing implements searchable, sortable, paginated listings over
// the entity store with a uniform result envelope.
package listing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Defaults used when Policy fields are zero.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Policy clamps page requests: page < 1 becomes 1, a page size below 1
// becomes DefaultSize and one above MaxSize becomes MaxSize.
type Policy struct {
	DefaultSize int
	MaxSize     int
}

// Clamp normalizes page and size.
func (p Policy) Clamp(page, size int) (int, int) {
	def, limit := p.DefaultSize, p.MaxSize
	if def < 1 {
		def = DefaultPageSize
	}
	if limit < 1 {
		limit = MaxPageSize
	}
	if def > limit {
		def = limit
	}
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = def
	case size > limit:
		size = limit
	}
	return page, size
}

// Request is the caller-controlled part of a listing.
type Request struct {
	Page     int
	PageSize int
	SortBy   string // empty selects the listing's default
	SortType string // "asc" or "desc"; empty selects descending
	Query    string // optional text search
}

// Spec is the fixed part of a listing, defined per view.
type Spec struct {
	Collection string
	// Filter restricts the listed records, e.g. published videos of an owner.
	Filter pipeline.Filter
	// SearchFields enables Request.Query over these text fields.
	SearchFields []string
	// Sortable is the allow-list of sort fields; DefaultSort applies when
	// the request names none.
	Sortable    []string
	DefaultSort pipeline.SortKey
	// Tail runs on the page slice only: joins, derived fields, projection.
	Tail []pipeline.Stage
}

// Searcher resolves a text query to candidate ids.
type Searcher interface {
	TextSearch(ctx context.Context, collection string, fields []string, query string) ([]uuid.UUID, error)
}

// Lister runs listings against a store.
type Lister struct {
	store  store.Store
	search Searcher
	policy Policy
	log    *zap.Logger
}

// New constructs a Lister. A nil search uses the store's own text search.
func New(st store.Store, search Searcher, policy Policy, log *zap.Logger) *Lister {
	if search == nil {
		search = st
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Lister{store: st, search: search, policy: policy, log: log}
}

// Policy returns the clamp policy in effect.
func (l *Lister) Policy() Policy { return l.policy }

func (l *Lister) sortKey(spec Spec, req Request) (pipeline.SortKey, error) {
	key := spec.DefaultSort
	if key.Field == "" {
		key = pipeline.Desc("created_at")
	}
	if req.SortBy != "" {
		if !slices.Contains(spec.Sortable, req.SortBy) {
			return key, fmt.Errorf("sort by %q: %w", req.SortBy, errs.ErrInvalidReference)
		}
		key = pipeline.Desc(req.SortBy)
	}
	switch strings.ToLower(req.SortType) {
	case "":
	case "asc":
		key.Desc = false
	case "desc":
		key.Desc = true
	default:
		return key, fmt.Errorf("sort type %q: %w", req.SortType, errs.ErrInvalidReference)
	}
	return key, nil
}

// List counts the filtered set, sorts and slices it, then runs spec.Tail
// on the page.
func (l *Lister) List(ctx context.Context, spec Spec, req Request) (model.Page[store.Record], error) {
	page, size := l.policy.Clamp(req.Page, req.PageSize)
	out := model.Page[store.Record]{Items: []store.Record{}, Page: page, PageSize: size, Found: true}

	key, err := l.sortKey(spec, req)
	if err != nil {
		return out, err
	}

	filter := slices.Clone(spec.Filter)
	if q := strings.TrimSpace(req.Query); q != "" && len(spec.SearchFields) > 0 {
		ids, err := l.search.TextSearch(ctx, spec.Collection, spec.SearchFields, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			l.log.Warn("search unavailable, returning empty listing",
				zap.String("collection", spec.Collection), zap.Error(err))
			out.Found = false
			return out, nil
		}
		if len(ids) == 0 {
			out.Found = false
			return out, nil
		}
		filter = append(filter, pipeline.InIDs("id", ids))
	}

	total, err := l.store.Count(ctx, spec.Collection, filter)
	if err != nil {
		return out, err
	}
	out.TotalItems = int(total)
	out.TotalPages = TotalPages(out.TotalItems, size)
	if (page-1)*size >= out.TotalItems {
		return out, nil
	}

	stages := []pipeline.Stage{
		pipeline.MatchStage{Filter: filter},
		pipeline.Sort(key, pipeline.Asc("id")),
		pipeline.Skip((page - 1) * size),
		pipeline.Limit(size),
	}
	recs, err := l.store.Aggregate(ctx, spec.Collection, append(stages, spec.Tail...))
	if err != nil {
		return out, err
	}
	out.Items = recs
	return out, nil
}

// TotalPages is ceil(total / size).
func TotalPages(total, size int) int {
	if size < 1 || total < 1 {
		return 0
	}
	return (total + size - 1) / size
}

// Decode converts a record page into a typed page using decode per item.
func Decode[T any](p model.Page[store.Record], decode func(store.Record) (T, error)) (model.Page[T], error) {
	out := model.Page[T]{
		Items:      make([]T, 0, len(p.Items)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
		Found:      p.Found,
	}
	for _, r := range p.Items {
		v, err := decode(r)
		if err != nil {
			return model.Page[T]{}, err
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}
