package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/vidgraph/internal/blob"
	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// VideoService defines video publishing and the counted watch path.
type VideoService interface {
	// Publish uploads media and thumbnail and stores an unpublished video.
	Publish(ctx context.Context, in PublishInput) (model.Video, error)
	// Watch returns the video detail, counts the view and records history.
	Watch(ctx context.Context, id uuid.UUID) (model.VideoDetail, error)
	// Update changes title, description or thumbnail of an owned video.
	Update(ctx context.Context, id uuid.UUID, p VideoPatch) (model.Video, error)
	// TogglePublish flips the published flag of an owned video.
	TogglePublish(ctx context.Context, id uuid.UUID) (model.Video, error)
	// Delete removes an owned video with its likes, comments and blobs.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PublishInput describes an upload. Paths are local files.
type PublishInput struct {
	Title         string
	Description   string
	MediaPath     string
	ThumbnailPath string
}

// VideoPatch lists the video fields to change; nil or empty means unchanged.
type VideoPatch struct {
	Title         *string
	Description   *string
	ThumbnailPath string
}

// DetailViewer composes the side-effect-free video detail.
type DetailViewer interface {
	VideoDetail(ctx context.Context, id uuid.UUID) (model.VideoDetail, error)
}

// Indexer mirrors videos into an external text-search index.
type Indexer interface {
	Put(ctx context.Context, v model.Video) error
	Remove(ctx context.Context, id uuid.UUID) error
}

type VideoServiceImpl struct {
	base
	viewer DetailViewer
	blobs  blob.Store
	index  Indexer
}

// NewVideoService constructs VideoService. index may be nil.
func NewVideoService(st store.Store, viewer DetailViewer, blobs blob.Store, index Indexer, log *zap.Logger) *VideoServiceImpl {
	return &VideoServiceImpl{base: newBase(st, log), viewer: viewer, blobs: blobs, index: index}
}

// Publish stores the video unpublished; the owner publishes it with
// TogglePublish. Blobs already uploaded are deleted if a later step fails.
func (s *VideoServiceImpl) Publish(ctx context.Context, in PublishInput) (model.Video, error) {
	uid, err := caller(ctx)
	if err != nil {
		return model.Video{}, err
	}
	title, err := required("title", in.Title)
	if err != nil {
		return model.Video{}, err
	}
	if in.MediaPath == "" || in.ThumbnailPath == "" {
		return model.Video{}, fmt.Errorf("media and thumbnail files are required: %w", errs.ErrValidation)
	}
	if s.blobs == nil {
		return model.Video{}, fmt.Errorf("blob store not configured: %w", errs.ErrDependency)
	}

	media, err := s.blobs.Upload(ctx, in.MediaPath, blob.Media)
	if err != nil {
		return model.Video{}, err
	}
	thumb, err := s.blobs.Upload(ctx, in.ThumbnailPath, blob.Image)
	if err != nil {
		discardBlobs(ctx, s.blobs, s.log, media.URL)
		return model.Video{}, err
	}
	id, err := s.newID()
	if err != nil {
		discardBlobs(ctx, s.blobs, s.log, media.URL, thumb.URL)
		return model.Video{}, err
	}
	v := model.Video{
		ID:           id,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		MediaURL:     media.URL,
		ThumbnailURL: thumb.URL,
		Duration:     media.Duration,
		OwnerID:      uid,
	}
	if _, err := s.store.Insert(ctx, model.Videos, v.Fields()); err != nil {
		discardBlobs(ctx, s.blobs, s.log, media.URL, thumb.URL)
		return model.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return s.reload(ctx, id)
}

// Watch composes the detail, then increments the view count and appends the
// video to the caller's watch history. Both writes are logged and swallowed.
func (s *VideoServiceImpl) Watch(ctx context.Context, id uuid.UUID) (model.VideoDetail, error) {
	d, err := s.viewer.VideoDetail(ctx, id)
	if err != nil {
		return model.VideoDetail{}, err
	}
	if err := s.store.Increment(ctx, model.Videos, id, "views", 1); err != nil {
		s.log.Warn("count view", zap.Stringer("video_id", id), zap.Error(err))
	} else {
		d.Views++
	}
	if c := identity.FromContext(ctx); c.Authenticated() {
		if _, err := s.store.AddToSet(ctx, model.Users, c.ID, "watch_history", id); err != nil {
			s.log.Warn("record watch history", zap.Stringer("video_id", id), zap.Stringer("user_id", c.ID), zap.Error(err))
		}
	}
	return d, nil
}

// Update applies p to an owned video. A replaced thumbnail is deleted
// best-effort.
func (s *VideoServiceImpl) Update(ctx context.Context, id uuid.UUID, p VideoPatch) (model.Video, error) {
	cur, _, err := s.owned(ctx, model.Videos, id)
	if err != nil {
		return model.Video{}, err
	}
	patch := store.Record{}
	if p.Title != nil {
		title, err := required("title", *p.Title)
		if err != nil {
			return model.Video{}, err
		}
		patch["title"] = title
	}
	if p.Description != nil {
		patch["description"] = strings.TrimSpace(*p.Description)
	}
	var newThumb string
	if p.ThumbnailPath != "" {
		if s.blobs == nil {
			return model.Video{}, fmt.Errorf("blob store not configured: %w", errs.ErrDependency)
		}
		obj, err := s.blobs.Upload(ctx, p.ThumbnailPath, blob.Image)
		if err != nil {
			return model.Video{}, err
		}
		newThumb = obj.URL
		patch["thumbnail_url"] = newThumb
	}
	if len(patch) == 0 {
		return model.Video{}, fmt.Errorf("nothing to update: %w", errs.ErrValidation)
	}

	rec, err := s.store.UpdateByID(ctx, model.Videos, id, patch)
	if err != nil {
		discardBlobs(ctx, s.blobs, s.log, newThumb)
		return model.Video{}, fmt.Errorf("update video: %w", err)
	}
	if old, _ := cur["thumbnail_url"].(string); newThumb != "" && old != "" {
		discardBlobs(ctx, s.blobs, s.log, old)
	}
	return s.synced(ctx, rec)
}

// TogglePublish flips published on an owned video.
func (s *VideoServiceImpl) TogglePublish(ctx context.Context, id uuid.UUID) (model.Video, error) {
	cur, _, err := s.owned(ctx, model.Videos, id)
	if err != nil {
		return model.Video{}, err
	}
	published, _ := cur["published"].(bool)
	rec, err := s.store.UpdateByID(ctx, model.Videos, id, store.Record{"published": !published})
	if err != nil {
		return model.Video{}, fmt.Errorf("toggle publish: %w", err)
	}
	return s.synced(ctx, rec)
}

// Delete removes dependents before the video so a failed run can be
// repeated: likes on the video, likes on its comments, the comments, the
// video itself. Blob and index removal are best-effort.
func (s *VideoServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	cur, _, err := s.owned(ctx, model.Videos, id)
	if err != nil {
		return err
	}
	if err := s.dropLikes(ctx, model.KindVideo, id); err != nil {
		return err
	}
	comments, err := s.store.Aggregate(ctx, model.Comments, []pipeline.Stage{
		pipeline.Match(pipeline.Eq("video_id", id)),
		pipeline.Project("id"),
	})
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID())
	}
	if err := s.dropLikes(ctx, model.KindComment, ids...); err != nil {
		return err
	}
	if _, err := s.store.DeleteMany(ctx, model.Comments, byField("video_id", id)); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if _, err := s.store.DeleteByID(ctx, model.Videos, id); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	media, _ := cur["media_url"].(string)
	thumb, _ := cur["thumbnail_url"].(string)
	discardBlobs(ctx, s.blobs, s.log, media, thumb)
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			s.log.Warn("unindex video", zap.Stringer("video_id", id), zap.Error(err))
		}
	}
	s.log.Info("video deleted", zap.Stringer("video_id", id), zap.Int("comments", len(ids)))
	return nil
}

func (s *VideoServiceImpl) reload(ctx context.Context, id uuid.UUID) (model.Video, error) {
	rec, err := s.store.FindByID(ctx, model.Videos, id)
	if err != nil {
		return model.Video{}, err
	}
	return s.synced(ctx, rec)
}

// synced decodes rec and pushes it to the index best-effort.
func (s *VideoServiceImpl) synced(ctx context.Context, rec store.Record) (model.Video, error) {
	v, err := decodeRecord[model.Video](rec)
	if err != nil {
		return model.Video{}, err
	}
	if s.index != nil {
		if err := s.index.Put(ctx, v); err != nil {
			s.log.Warn("index video", zap.Stringer("video_id", v.ID), zap.Error(err))
		}
	}
	return v, nil
}
