package service

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// CommentService defines comment mutations.
type CommentService interface {
	// Add attaches a comment by the caller to an existing video.
	Add(ctx context.Context, video uuid.UUID, content string) (model.Comment, error)
	// Edit replaces the content of an owned comment.
	Edit(ctx context.Context, id uuid.UUID, content string) (model.Comment, error)
	// Delete removes an owned comment and its likes.
	Delete(ctx context.Context, id uuid.UUID) error
}

type CommentServiceImpl struct{ base }

// NewCommentService constructs CommentService.
func NewCommentService(st store.Store, log *zap.Logger) *CommentServiceImpl {
	return &CommentServiceImpl{base: newBase(st, log)}
}

// Add stores a comment; the video must exist.
func (s *CommentServiceImpl) Add(ctx context.Context, video uuid.UUID, content string) (model.Comment, error) {
	uid, err := caller(ctx)
	if err != nil {
		return model.Comment{}, err
	}
	content, err = required("content", content)
	if err != nil {
		return model.Comment{}, err
	}
	if video == uuid.Nil {
		return model.Comment{}, fmt.Errorf("video id: %w", errs.ErrInvalidReference)
	}
	if _, err := s.store.FindByID(ctx, model.Videos, video); err != nil {
		return model.Comment{}, err
	}
	id, err := s.newID()
	if err != nil {
		return model.Comment{}, err
	}
	c := model.Comment{ID: id, Content: content, OwnerID: uid, VideoID: video}
	if _, err := s.store.Insert(ctx, model.Comments, c.Fields()); err != nil {
		return model.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	rec, err := s.store.FindByID(ctx, model.Comments, id)
	if err != nil {
		return model.Comment{}, err
	}
	return decodeRecord[model.Comment](rec)
}

// Edit updates content of an owned comment.
func (s *CommentServiceImpl) Edit(ctx context.Context, id uuid.UUID, content string) (model.Comment, error) {
	if _, _, err := s.owned(ctx, model.Comments, id); err != nil {
		return model.Comment{}, err
	}
	content, err := required("content", content)
	if err != nil {
		return model.Comment{}, err
	}
	rec, err := s.store.UpdateByID(ctx, model.Comments, id, store.Record{"content": content})
	if err != nil {
		return model.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return decodeRecord[model.Comment](rec)
}

// Delete removes the comment's likes, then the comment.
func (s *CommentServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, _, err := s.owned(ctx, model.Comments, id); err != nil {
		return err
	}
	if err := s.dropLikes(ctx, model.KindComment, id); err != nil {
		return err
	}
	if _, err := s.store.DeleteByID(ctx, model.Comments, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
