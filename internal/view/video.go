package view

import (
	"context"
	"fmt"
	"slices"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

var videoSortable = []string{"created_at", "views", "duration", "title"}

// VideoDetail composes a video with likes and channel subscription state
// relative to the caller. Unpublished videos are visible to their owner only.
// It has no side effects; see service.Videos.Watch for the read path that
// counts views.
func (c *Composer) VideoDetail(ctx context.Context, id uuid.UUID) (model.VideoDetail, error) {
	if id == uuid.Nil {
		return model.VideoDetail{}, fmt.Errorf("video id: %w", errs.ErrInvalidReference)
	}
	caller := identity.FromContext(ctx)
	stages := []pipeline.Stage{
		pipeline.Match(pipeline.Eq("id", id)),
		pipeline.Join(likesJoin(model.KindVideo)),
		pipeline.Join(ownerJoin("owner_id")),
		pipeline.Join(pipeline.JoinSpec{From: "owner_id", Collection: model.Subscriptions, To: "channel_id", As: "subscribers"}),
		pipeline.AddFields(append(likeFields(caller),
			pipeline.Set("owner", pipeline.One("owner", "owner_id")),
			pipeline.Set("subscriber_count", pipeline.Count("subscribers")),
			pipeline.Set("is_subscribed", pipeline.Has("subscribers", "subscriber_id", caller)),
		)...),
		pipeline.Project("id", "title", "description", "media_url", "thumbnail_url", "duration", "views",
			"published", "owner_id", "owner", "created_at", "like_count", "is_liked", "subscriber_count", "is_subscribed"),
	}
	recs, err := c.aggregate(ctx, "video_detail", model.Videos, stages)
	if err != nil {
		return model.VideoDetail{}, err
	}
	if len(recs) == 0 {
		return model.VideoDetail{}, fmt.Errorf("video %s: %w", id, errs.ErrNotFound)
	}
	rec := recs[0]
	owner, _ := rec["owner_id"].(uuid.UUID)
	if published, _ := rec["published"].(bool); !published && !caller.Is(owner) {
		return model.VideoDetail{}, fmt.Errorf("video %s: %w", id, errs.ErrNotFound)
	}
	return decode[model.VideoDetail](rec)
}

// VideoQuery selects the public video listing.
type VideoQuery struct {
	listing.Request
	// OwnerID restricts the listing to one channel when set.
	OwnerID uuid.UUID
}

// Videos lists published videos with optional search and owner filter.
func (c *Composer) Videos(ctx context.Context, q VideoQuery) (model.Page[model.VideoSummary], error) {
	filter := pipeline.Where(pipeline.Eq("published", true))
	if q.OwnerID != uuid.Nil {
		filter = append(filter, pipeline.Eq("owner_id", q.OwnerID))
	}
	spec := listing.Spec{
		Collection:   model.Videos,
		Filter:       filter,
		SearchFields: []string{"title", "description"},
		Sortable:     videoSortable,
		Tail:         videoSummaryStages(),
	}
	p, err := c.list(ctx, "videos", spec, q.Request)
	if err != nil {
		return model.Page[model.VideoSummary]{}, err
	}
	return listing.Decode(p, decode[model.VideoSummary])
}

// WatchHistory returns the caller's watched videos that are still
// published, most recent first.
func (c *Composer) WatchHistory(ctx context.Context) ([]model.VideoSummary, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	stages := []pipeline.Stage{
		pipeline.Match(pipeline.Eq("id", caller.ID)),
		pipeline.Join(pipeline.JoinSpec{
			From: "watch_history", Collection: model.Videos, To: "id", As: "history",
			Pipeline: append([]pipeline.Stage{publishedOnly()}, videoSummaryStages()...),
		}),
		pipeline.Project("history"),
	}
	recs, err := c.aggregate(ctx, "watch_history", model.Users, stages)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("user %s: %w", caller.ID, errs.ErrNotFound)
	}
	history := slices.Clone(recs[0].Seq("history"))
	slices.Reverse(history)
	return decodeAll[model.VideoSummary](history)
}
