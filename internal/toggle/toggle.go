// Package toggle flips like and subscription edges atomically.
package toggle

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
)

// Engine toggles edges through store.ToggleEdge, which relies on the
// store's unique keys for (liker, kind, target) and (subscriber, channel).
type Engine struct {
	store store.Store
	newID func() (uuid.UUID, error)
}

// New constructs an Engine.
func New(st store.Store) *Engine {
	return &Engine{store: st, newID: func() (uuid.UUID, error) { return uuid.NewV4() }}
}

func actor(ctx context.Context) (uuid.UUID, error) {
	c := identity.FromContext(ctx)
	if !c.Authenticated() {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return c.ID, nil
}

// Like toggles the caller's like on a video, comment or tweet.
func (e *Engine) Like(ctx context.Context, kind model.TargetKind, target uuid.UUID) (model.ToggleResult, error) {
	liker, err := actor(ctx)
	if err != nil {
		return model.ToggleResult{}, err
	}
	if !kind.Valid() {
		return model.ToggleResult{}, fmt.Errorf("like target kind %q: %w", kind, errs.ErrInvalidReference)
	}
	if target == uuid.Nil {
		return model.ToggleResult{}, fmt.Errorf("like target: %w", errs.ErrInvalidReference)
	}
	if _, err := e.store.FindByID(ctx, kind.Collection(), target); err != nil {
		return model.ToggleResult{}, err
	}
	id, err := e.newID()
	if err != nil {
		return model.ToggleResult{}, err
	}
	key := pipeline.Where(
		pipeline.Eq("liker_id", liker),
		pipeline.Eq("target_kind", string(kind)),
		pipeline.Eq("target_id", target),
	)
	like := model.Like{ID: id, LikerID: liker, TargetKind: kind, TargetID: target}
	active, err := e.store.ToggleEdge(ctx, model.Likes, key, like.Fields())
	if err != nil {
		return model.ToggleResult{}, err
	}
	return model.ToggleResult{Active: active}, nil
}

// Subscription toggles the caller's subscription to channel.
// Subscribing to oneself is rejected before any store access.
func (e *Engine) Subscription(ctx context.Context, channel uuid.UUID) (model.ToggleResult, error) {
	sub, err := actor(ctx)
	if err != nil {
		return model.ToggleResult{}, err
	}
	if channel == uuid.Nil {
		return model.ToggleResult{}, fmt.Errorf("channel: %w", errs.ErrInvalidReference)
	}
	if channel == sub {
		return model.ToggleResult{}, fmt.Errorf("subscribe to self: %w", errs.ErrValidation)
	}
	if _, err := e.store.FindByID(ctx, model.Users, channel); err != nil {
		return model.ToggleResult{}, err
	}
	id, err := e.newID()
	if err != nil {
		return model.ToggleResult{}, err
	}
	key := pipeline.Where(pipeline.Eq("subscriber_id", sub), pipeline.Eq("channel_id", channel))
	s := model.Subscription{ID: id, SubscriberID: sub, ChannelID: channel}
	active, err := e.store.ToggleEdge(ctx, model.Subscriptions, key, s.Fields())
	if err != nil {
		return model.ToggleResult{}, err
	}
	return model.ToggleResult{Active: active}, nil
}
