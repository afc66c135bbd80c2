package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// PlaylistService defines playlist mutations. Videos form a set.
type PlaylistService interface {
	Create(ctx context.Context, name, description string) (model.Playlist, error)
	Update(ctx context.Context, id uuid.UUID, p PlaylistPatch) (model.Playlist, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// AddVideo adds an existing video; adding a member again is a no-op.
	AddVideo(ctx context.Context, playlist, video uuid.UUID) (model.Playlist, error)
	// RemoveVideo removes a video; removing a non-member is a no-op.
	RemoveVideo(ctx context.Context, playlist, video uuid.UUID) (model.Playlist, error)
}

// PlaylistPatch lists the playlist fields to change; nil means unchanged.
type PlaylistPatch struct {
	Name        *string
	Description *string
}

type PlaylistServiceImpl struct{ base }

// NewPlaylistService constructs PlaylistService.
func NewPlaylistService(st store.Store, log *zap.Logger) *PlaylistServiceImpl {
	return &PlaylistServiceImpl{base: newBase(st, log)}
}

func (s *PlaylistServiceImpl) Create(ctx context.Context, name, description string) (model.Playlist, error) {
	uid, err := caller(ctx)
	if err != nil {
		return model.Playlist{}, err
	}
	name, err = required("name", name)
	if err != nil {
		return model.Playlist{}, err
	}
	id, err := s.newID()
	if err != nil {
		return model.Playlist{}, err
	}
	p := model.Playlist{ID: id, Name: name, Description: strings.TrimSpace(description), OwnerID: uid}
	if _, err := s.store.Insert(ctx, model.Playlists, p.Fields()); err != nil {
		return model.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return s.load(ctx, id)
}

func (s *PlaylistServiceImpl) Update(ctx context.Context, id uuid.UUID, p PlaylistPatch) (model.Playlist, error) {
	if _, _, err := s.owned(ctx, model.Playlists, id); err != nil {
		return model.Playlist{}, err
	}
	patch := store.Record{}
	if p.Name != nil {
		name, err := required("name", *p.Name)
		if err != nil {
			return model.Playlist{}, err
		}
		patch["name"] = name
	}
	if p.Description != nil {
		patch["description"] = strings.TrimSpace(*p.Description)
	}
	if len(patch) == 0 {
		return model.Playlist{}, fmt.Errorf("nothing to update: %w", errs.ErrValidation)
	}
	rec, err := s.store.UpdateByID(ctx, model.Playlists, id, patch)
	if err != nil {
		return model.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return decodeRecord[model.Playlist](rec)
}

func (s *PlaylistServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, _, err := s.owned(ctx, model.Playlists, id); err != nil {
		return err
	}
	if _, err := s.store.DeleteByID(ctx, model.Playlists, id); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

func (s *PlaylistServiceImpl) AddVideo(ctx context.Context, playlist, video uuid.UUID) (model.Playlist, error) {
	if err := s.member(ctx, playlist, video); err != nil {
		return model.Playlist{}, err
	}
	if _, err := s.store.FindByID(ctx, model.Videos, video); err != nil {
		return model.Playlist{}, err
	}
	if _, err := s.store.AddToSet(ctx, model.Playlists, playlist, "video_ids", video); err != nil {
		return model.Playlist{}, fmt.Errorf("add playlist video: %w", err)
	}
	return s.load(ctx, playlist)
}

func (s *PlaylistServiceImpl) RemoveVideo(ctx context.Context, playlist, video uuid.UUID) (model.Playlist, error) {
	if err := s.member(ctx, playlist, video); err != nil {
		return model.Playlist{}, err
	}
	if _, err := s.store.RemoveFromSet(ctx, model.Playlists, playlist, "video_ids", video); err != nil {
		return model.Playlist{}, fmt.Errorf("remove playlist video: %w", err)
	}
	return s.load(ctx, playlist)
}

// member checks the video reference and playlist ownership.
func (s *PlaylistServiceImpl) member(ctx context.Context, playlist, video uuid.UUID) error {
	if _, err := caller(ctx); err != nil {
		return err
	}
	if video == uuid.Nil {
		return fmt.Errorf("video id: %w", errs.ErrInvalidReference)
	}
	_, _, err := s.owned(ctx, model.Playlists, playlist)
	return err
}

func (s *PlaylistServiceImpl) load(ctx context.Context, id uuid.UUID) (model.Playlist, error) {
	rec, err := s.store.FindByID(ctx, model.Playlists, id)
	if err != nil {
		return model.Playlist{}, err
	}
	return decodeRecord[model.Playlist](rec)
}
