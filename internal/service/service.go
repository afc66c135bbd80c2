// Package service contains the owner-authorized mutations and the read paths
// that carry side effects (view counting, watch history).
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// base holds what every service needs.
type base struct {
	store store.Store
	log   *zap.Logger
	newID func() (uuid.UUID, error)
}

func newBase(st store.Store, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{store: st, log: log, newID: func() (uuid.UUID, error) { return uuid.NewV4() }}
}

func caller(ctx context.Context) (uuid.UUID, error) {
	c := identity.FromContext(ctx)
	if !c.Authenticated() {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return c.ID, nil
}

// owned loads collection/id and checks that the caller owns it.
func (b base) owned(ctx context.Context, collection string, id uuid.UUID) (store.Record, uuid.UUID, error) {
	uid, err := caller(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if id == uuid.Nil {
		return nil, uuid.Nil, fmt.Errorf("%s id: %w", collection, errs.ErrInvalidReference)
	}
	rec, err := b.store.FindByID(ctx, collection, id)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if owner, _ := rec["owner_id"].(uuid.UUID); owner != uid {
		return nil, uuid.Nil, fmt.Errorf("%s %s: %w", collection, id, errs.ErrUnauthorized)
	}
	return rec, uid, nil
}

// dropLikes removes every like pointing at targets of kind.
func (b base) dropLikes(ctx context.Context, kind model.TargetKind, targets ...uuid.UUID) error {
	if len(targets) == 0 {
		return nil
	}
	_, err := b.store.DeleteMany(ctx, model.Likes, likesOf(kind, targets))
	if err != nil {
		return fmt.Errorf("delete %s likes: %w", kind, err)
	}
	return nil
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s is required: %w", field, errs.ErrValidation)
	}
	return v, nil
}

func decodeRecord[T any](r store.Record) (T, error) {
	var out T
	if err := mapstructure.Decode(map[string]any(r), &out); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}
