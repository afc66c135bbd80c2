package view

import (
	"context"

	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

// CurrentUser returns the caller's own account.
func (c *Composer) CurrentUser(ctx context.Context) (model.Account, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return model.Account{}, err
	}
	recs, err := c.aggregate(ctx, "current_user", model.Users, []pipeline.Stage{
		pipeline.Match(pipeline.Eq("id", caller.ID)),
		pipeline.Project("id", "handle", "email", "full_name", "avatar_url", "cover_url", "created_at", "updated_at"),
	})
	if err != nil {
		return model.Account{}, err
	}
	return single[model.Account](recs, "user "+caller.ID.String())
}

// LikedVideos lists the published videos the caller liked, newest like
// first. Likes are narrowed to published targets before counting, so the
// totals match the pages.
func (c *Composer) LikedVideos(ctx context.Context, req listing.Request) (model.Page[model.LikedVideo], error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return model.Page[model.LikedVideo]{}, err
	}
	req.SortBy, req.SortType = "", ""
	likes := pipeline.Where(
		pipeline.Eq("liker_id", caller.ID),
		pipeline.Eq("target_kind", string(model.KindVideo)),
	)
	targets, err := c.publishedTargets(ctx, likes)
	if err != nil {
		c.logFailure("liked_videos", err)
		return model.Page[model.LikedVideo]{}, err
	}
	spec := listing.Spec{
		Collection:  model.Likes,
		Filter:      append(likes, pipeline.InIDs("target_id", targets)),
		DefaultSort: pipeline.Desc("updated_at"),
		Tail: []pipeline.Stage{
			pipeline.Join(pipeline.JoinSpec{
				From: "target_id", Collection: model.Videos, To: "id", As: "video",
				Pipeline: append([]pipeline.Stage{publishedOnly()}, videoSummaryStages()...),
			}),
			pipeline.AddFields(pipeline.Set("video", pipeline.First("video"))),
			pipeline.Project("id", "updated_at", "video"),
		},
	}
	p, err := c.list(ctx, "liked_videos", spec, req)
	if err != nil {
		return model.Page[model.LikedVideo]{}, err
	}
	return listing.Decode(p, decode[model.LikedVideo])
}

// publishedTargets returns the ids of published videos targeted by the
// likes matching f.
func (c *Composer) publishedTargets(ctx context.Context, f pipeline.Filter) ([]uuid.UUID, error) {
	likes, err := c.store.Find(ctx, model.Likes, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(likes))
	for _, l := range likes {
		if id, ok := l["target_id"].(uuid.UUID); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ids, nil
	}
	videos, err := c.store.Find(ctx, model.Videos, pipeline.Where(
		pipeline.InIDs("id", ids),
		pipeline.Eq("published", true),
	))
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.ID())
	}
	return out, nil
}
