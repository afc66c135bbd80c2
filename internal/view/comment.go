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

// Comments lists the comments of a video, most recently updated first.
func (c *Composer) Comments(ctx context.Context, video uuid.UUID, req listing.Request) (model.Page[model.CommentView], error) {
	if video == uuid.Nil {
		return model.Page[model.CommentView]{}, fmt.Errorf("video id: %w", errs.ErrInvalidReference)
	}
	if _, err := c.store.FindByID(ctx, model.Videos, video); err != nil {
		return model.Page[model.CommentView]{}, err
	}
	caller := identity.FromContext(ctx)
	req.SortBy, req.SortType = "", ""
	spec := listing.Spec{
		Collection:  model.Comments,
		Filter:      pipeline.Where(pipeline.Eq("video_id", video)),
		DefaultSort: pipeline.Desc("updated_at"),
		Tail: []pipeline.Stage{
			pipeline.Join(ownerJoin("owner_id")),
			pipeline.Join(likesJoin(model.KindComment)),
			pipeline.AddFields(append(likeFields(caller),
				pipeline.Set("owner", pipeline.One("owner", "owner_id")))...),
			pipeline.Project("id", "content", "updated_at", "owner", "like_count", "is_liked"),
		},
	}
	p, err := c.list(ctx, "comments", spec, req)
	if err != nil {
		return model.Page[model.CommentView]{}, err
	}
	return listing.Decode(p, decode[model.CommentView])
}
