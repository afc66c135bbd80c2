package view

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

// UserTweets lists the tweets of a user, most recently updated first.
func (c *Composer) UserTweets(ctx context.Context, user uuid.UUID, req listing.Request) (model.Page[model.TweetView], error) {
	if user == uuid.Nil {
		return model.Page[model.TweetView]{}, fmt.Errorf("user id: %w", errs.ErrInvalidReference)
	}
	if _, err := c.store.FindByID(ctx, model.Users, user); err != nil {
		return model.Page[model.TweetView]{}, err
	}
	caller := identity.FromContext(ctx)
	spec := listing.Spec{
		Collection:  model.Tweets,
		Filter:      pipeline.Where(pipeline.Eq("owner_id", user)),
		Sortable:    []string{"created_at", "updated_at"},
		DefaultSort: pipeline.Desc("updated_at"),
		Tail: []pipeline.Stage{
			pipeline.Join(ownerJoin("owner_id")),
			pipeline.Join(likesJoin(model.KindTweet)),
			pipeline.AddFields(append(likeFields(caller),
				pipeline.Set("owner", pipeline.One("owner", "owner_id")))...),
			pipeline.Project("id", "content", "owner_id", "owner", "like_count", "is_liked", "created_at", "updated_at"),
		},
	}
	p, err := c.list(ctx, "user_tweets", spec, req)
	if err != nil {
		return model.Page[model.TweetView]{}, err
	}
	return listing.Decode(p, decode[model.TweetView])
}
