package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

// ChannelProfile resolves a handle to its channel with subscription counts
// and whether the caller is subscribed.
func (c *Composer) ChannelProfile(ctx context.Context, handle string) (model.ChannelProfile, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return model.ChannelProfile{}, fmt.Errorf("handle: %w", errs.ErrInvalidReference)
	}
	caller := identity.FromContext(ctx)
	stages := []pipeline.Stage{
		pipeline.Match(pipeline.Eq("handle", handle)),
		pipeline.Join(pipeline.JoinSpec{From: "id", Collection: model.Subscriptions, To: "channel_id", As: "subscribers"}),
		pipeline.Join(pipeline.JoinSpec{From: "id", Collection: model.Subscriptions, To: "subscriber_id", As: "subscribed_to"}),
		pipeline.AddFields(
			pipeline.Set("subscriber_count", pipeline.Count("subscribers")),
			pipeline.Set("subscribed_to_count", pipeline.Count("subscribed_to")),
			pipeline.Set("is_subscribed", pipeline.Has("subscribers", "subscriber_id", caller)),
		),
		pipeline.Project("id", "handle", "full_name", "email", "avatar_url", "cover_url",
			"subscriber_count", "subscribed_to_count", "is_subscribed"),
	}
	recs, err := c.aggregate(ctx, "channel_profile", model.Users, stages)
	if err != nil {
		return model.ChannelProfile{}, err
	}
	return single[model.ChannelProfile](recs, "channel "+handle)
}

// ChannelStats totals the caller's channel.
func (c *Composer) ChannelStats(ctx context.Context) (model.ChannelStats, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return model.ChannelStats{}, err
	}
	subs, err := c.store.Count(ctx, model.Subscriptions, pipeline.Where(pipeline.Eq("channel_id", caller.ID)))
	if err != nil {
		return model.ChannelStats{}, err
	}
	videos, err := c.aggregate(ctx, "channel_stats", model.Videos, []pipeline.Stage{
		pipeline.Match(pipeline.Eq("owner_id", caller.ID)),
		pipeline.Join(likesJoin(model.KindVideo)),
		pipeline.Join(pipeline.JoinSpec{From: "id", Collection: model.Comments, To: "video_id", As: "comments"}),
		pipeline.AddFields(
			pipeline.Set("like_count", pipeline.Count("likes")),
			pipeline.Set("comment_count", pipeline.Count("comments")),
		),
		pipeline.Project("views", "like_count", "comment_count"),
	})
	if err != nil {
		return model.ChannelStats{}, err
	}
	st := model.ChannelStats{TotalSubscribers: subs, TotalVideos: int64(len(videos))}
	for _, v := range videos {
		views, _ := v["views"].(int64)
		likes, _ := v["like_count"].(int64)
		comments, _ := v["comment_count"].(int64)
		st.TotalViews += views
		st.TotalLikes += likes
		st.TotalComments += comments
	}
	return st, nil
}

// ChannelVideos lists the caller's own videos, published or not, with
// like and comment counts.
func (c *Composer) ChannelVideos(ctx context.Context, req listing.Request) (model.Page[model.ChannelVideo], error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return model.Page[model.ChannelVideo]{}, err
	}
	spec := listing.Spec{
		Collection: model.Videos,
		Filter:     pipeline.Where(pipeline.Eq("owner_id", caller.ID)),
		Sortable:   videoSortable,
		Tail: []pipeline.Stage{
			pipeline.Join(likesJoin(model.KindVideo)),
			pipeline.Join(pipeline.JoinSpec{From: "id", Collection: model.Comments, To: "video_id", As: "comments"}),
			pipeline.AddFields(
				pipeline.Set("like_count", pipeline.Count("likes")),
				pipeline.Set("comment_count", pipeline.Count("comments")),
			),
			pipeline.Project("id", "title", "thumbnail_url", "duration", "views", "published",
				"created_at", "like_count", "comment_count"),
		},
	}
	p, err := c.list(ctx, "channel_videos", spec, req)
	if err != nil {
		return model.Page[model.ChannelVideo]{}, err
	}
	return listing.Decode(p, decode[model.ChannelVideo])
}

// channelEdgeSpec lists subscription edges of one side of user, attaching
// the counterpart user found under other with its own subscriber count,
// the caller's membership and its latest published upload.
func channelEdgeSpec(side, other string, user uuid.UUID, caller identity.Caller) listing.Spec {
	return listing.Spec{
		Collection: model.Subscriptions,
		Filter:     pipeline.Where(pipeline.Eq(side, user)),
		Tail: []pipeline.Stage{
			pipeline.Join(pipeline.JoinSpec{
				From: other, Collection: model.Users, To: "id", As: "user",
				Pipeline: []pipeline.Stage{
					pipeline.Join(pipeline.JoinSpec{From: "id", Collection: model.Subscriptions, To: "channel_id", As: "subscribers"}),
					pipeline.Join(pipeline.JoinSpec{
						From: "id", Collection: model.Videos, To: "owner_id", As: "videos",
						Pipeline: []pipeline.Stage{
							publishedOnly(),
							pipeline.Sort(pipeline.Desc("created_at")),
							pipeline.Limit(1),
							pipeline.Project(latestVideoFields...),
						},
					}),
					pipeline.AddFields(
						pipeline.Set("subscriber_count", pipeline.Count("subscribers")),
						pipeline.Set("is_subscribed", pipeline.Has("subscribers", "subscriber_id", caller)),
						pipeline.Set("latest_video", pipeline.First("videos")),
					),
					pipeline.Project("id", "handle", "full_name", "avatar_url",
						"subscriber_count", "is_subscribed", "latest_video"),
				},
			}),
			pipeline.AddFields(pipeline.Set("user", pipeline.One("user", other))),
			pipeline.Project("id", "created_at", "user"),
		},
	}
}

// Subscribers lists who subscribes to channel. Only the channel itself may
// list them.
func (c *Composer) Subscribers(ctx context.Context, channel uuid.UUID, req listing.Request) (model.Page[model.SubscriptionEntry], error) {
	return c.edges(ctx, "subscribers", "channel_id", "subscriber_id", channel, req)
}

// SubscribedChannels lists the channels subscriber follows. Only the
// subscriber may list them.
func (c *Composer) SubscribedChannels(ctx context.Context, subscriber uuid.UUID, req listing.Request) (model.Page[model.SubscriptionEntry], error) {
	return c.edges(ctx, "subscribed_channels", "subscriber_id", "channel_id", subscriber, req)
}

func (c *Composer) edges(ctx context.Context, name, side, other string, user uuid.UUID, req listing.Request) (model.Page[model.SubscriptionEntry], error) {
	if user == uuid.Nil {
		return model.Page[model.SubscriptionEntry]{}, fmt.Errorf("user: %w", errs.ErrInvalidReference)
	}
	caller := identity.FromContext(ctx)
	if !caller.Is(user) {
		return model.Page[model.SubscriptionEntry]{}, errs.ErrUnauthorized
	}
	p, err := c.list(ctx, name, channelEdgeSpec(side, other, user, caller), req)
	if err != nil {
		return model.Page[model.SubscriptionEntry]{}, err
	}
	return listing.Decode(p, decode[model.SubscriptionEntry])
}
