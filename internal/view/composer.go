// Package view composes the denormalized, caller-relative views returned at
// the API boundary. Each view is a fixed pipeline over the entity store;
// the caller identity is read from the request context.
package view

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
)

// Composer builds views.
type Composer struct {
	store  store.Store
	lister *listing.Lister
	log    *zap.Logger
}

// New constructs a Composer.
func New(st store.Store, lister *listing.Lister, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{store: st, lister: lister, log: log}
}

// sensitive fields are removed from every emitted record.
var sensitive = []string{"password_hash", "refresh_token"}

// Public projections shared between views.
var (
	ownerFields        = []string{"id", "handle", "full_name", "avatar_url"}
	videoSummaryFields = []string{"id", "title", "description", "thumbnail_url", "duration", "views", "created_at", "owner"}
	latestVideoFields  = []string{"id", "title", "views", "duration", "thumbnail_url"}
)

func redact(v any) {
	switch x := v.(type) {
	case store.Record:
		for _, f := range sensitive {
			delete(x, f)
		}
		for _, e := range x {
			redact(e)
		}
	case []store.Record:
		for _, e := range x {
			redact(e)
		}
	}
}

func decode[T any](r store.Record) (T, error) {
	var out T
	redact(r)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &out})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

func decodeAll[T any](recs []store.Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// aggregate runs stages and logs failures that are not caused by the caller.
func (c *Composer) aggregate(ctx context.Context, name, collection string, stages []pipeline.Stage) ([]store.Record, error) {
	recs, err := c.store.Aggregate(ctx, collection, stages)
	if err != nil {
		c.logFailure(name, err)
		return nil, err
	}
	return recs, nil
}

func (c *Composer) list(ctx context.Context, name string, spec listing.Spec, req listing.Request) (model.Page[store.Record], error) {
	p, err := c.lister.List(ctx, spec, req)
	if err != nil {
		c.logFailure(name, err)
	}
	return p, err
}

func (c *Composer) logFailure(name string, err error) {
	if errs.IsClientError(err) {
		c.log.Debug("view rejected", zap.String("view", name), zap.Error(err))
		return
	}
	c.log.Error("view failed", zap.String("view", name), zap.Error(err))
}

func single[T any](recs []store.Record, what string) (T, error) {
	var zero T
	if len(recs) == 0 {
		return zero, fmt.Errorf("%s: %w", what, errs.ErrNotFound)
	}
	return decode[T](recs[0])
}

func requireCaller(ctx context.Context) (identity.Caller, error) {
	c := identity.FromContext(ctx)
	if !c.Authenticated() {
		return c, errs.ErrUnauthorized
	}
	return c, nil
}

// ownerStages attaches the projected owner referenced by from. A missing
// owner fails the composition with errs.ErrNotFound.
func ownerStages(from string) []pipeline.Stage {
	return []pipeline.Stage{
		pipeline.Join(ownerJoin(from)),
		pipeline.AddFields(pipeline.Set("owner", pipeline.One("owner", from))),
	}
}

func ownerJoin(from string) pipeline.JoinSpec {
	return pipeline.JoinSpec{
		From: from, Collection: model.Users, To: "id", As: "owner",
		Pipeline: []pipeline.Stage{pipeline.Project(ownerFields...)},
	}
}

// likesJoin attaches the likes of kind pointing at each record.
func likesJoin(kind model.TargetKind) pipeline.JoinSpec {
	return pipeline.JoinSpec{
		From: "id", Collection: model.Likes, To: "target_id", As: "likes",
		Pipeline: []pipeline.Stage{pipeline.Match(pipeline.Eq("target_kind", string(kind)))},
	}
}

func likeFields(caller identity.Caller) []pipeline.NamedExpr {
	return []pipeline.NamedExpr{
		pipeline.Set("like_count", pipeline.Count("likes")),
		pipeline.Set("is_liked", pipeline.Has("likes", "liker_id", caller)),
	}
}

func publishedOnly() pipeline.Stage { return pipeline.Match(pipeline.Eq("published", true)) }

// videoSummaryStages collapses the owner and projects a listed video.
func videoSummaryStages() []pipeline.Stage {
	return append(ownerStages("owner_id"), pipeline.Project(videoSummaryFields...))
}
