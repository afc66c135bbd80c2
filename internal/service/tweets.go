package service

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// TweetService defines tweet mutations.
type TweetService interface {
	Create(ctx context.Context, content string) (model.Tweet, error)
	Update(ctx context.Context, id uuid.UUID, content string) (model.Tweet, error)
	// Delete removes an owned tweet and its likes.
	Delete(ctx context.Context, id uuid.UUID) error
}

type TweetServiceImpl struct{ base }

// NewTweetService constructs TweetService.
func NewTweetService(st store.Store, log *zap.Logger) *TweetServiceImpl {
	return &TweetServiceImpl{base: newBase(st, log)}
}

func (s *TweetServiceImpl) Create(ctx context.Context, content string) (model.Tweet, error) {
	uid, err := caller(ctx)
	if err != nil {
		return model.Tweet{}, err
	}
	content, err = required("content", content)
	if err != nil {
		return model.Tweet{}, err
	}
	id, err := s.newID()
	if err != nil {
		return model.Tweet{}, err
	}
	t := model.Tweet{ID: id, Content: content, OwnerID: uid}
	if _, err := s.store.Insert(ctx, model.Tweets, t.Fields()); err != nil {
		return model.Tweet{}, fmt.Errorf("insert tweet: %w", err)
	}
	rec, err := s.store.FindByID(ctx, model.Tweets, id)
	if err != nil {
		return model.Tweet{}, err
	}
	return decodeRecord[model.Tweet](rec)
}

func (s *TweetServiceImpl) Update(ctx context.Context, id uuid.UUID, content string) (model.Tweet, error) {
	if _, _, err := s.owned(ctx, model.Tweets, id); err != nil {
		return model.Tweet{}, err
	}
	content, err := required("content", content)
	if err != nil {
		return model.Tweet{}, err
	}
	rec, err := s.store.UpdateByID(ctx, model.Tweets, id, store.Record{"content": content})
	if err != nil {
		return model.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	return decodeRecord[model.Tweet](rec)
}

func (s *TweetServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, _, err := s.owned(ctx, model.Tweets, id); err != nil {
		return err
	}
	if err := s.dropLikes(ctx, model.KindTweet, id); err != nil {
		return err
	}
	if _, err := s.store.DeleteByID(ctx, model.Tweets, id); err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	return nil
}
