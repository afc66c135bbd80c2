package view

import (
	"context"
	"fmt"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

// playlistVideos joins the published members of a playlist in playlist
// order; totals are summed over the same filtered sequence.
func playlistVideos(summary bool) []pipeline.Stage {
	nested := []pipeline.Stage{publishedOnly()}
	if summary {
		nested = append(nested, pipeline.Project("views", "duration"))
	} else {
		nested = append(nested, videoSummaryStages()...)
	}
	return []pipeline.Stage{
		pipeline.Join(pipeline.JoinSpec{From: "video_ids", Collection: model.Videos, To: "id", As: "videos", Pipeline: nested}),
		pipeline.AddFields(
			pipeline.Set("total_videos", pipeline.Count("videos")),
			pipeline.Set("total_views", pipeline.Sum("videos", "views")),
			pipeline.Set("total_duration", pipeline.Sum("videos", "duration")),
		),
	}
}

// Playlist composes a playlist with its published videos, totals and owner.
func (c *Composer) Playlist(ctx context.Context, id uuid.UUID) (model.PlaylistDetail, error) {
	if id == uuid.Nil {
		return model.PlaylistDetail{}, fmt.Errorf("playlist id: %w", errs.ErrInvalidReference)
	}
	stages := []pipeline.Stage{pipeline.Match(pipeline.Eq("id", id))}
	stages = append(stages, playlistVideos(false)...)
	stages = append(stages, ownerStages("owner_id")...)
	stages = append(stages, pipeline.Project("id", "name", "description", "created_at", "updated_at",
		"owner", "videos", "total_videos", "total_views", "total_duration"))

	recs, err := c.aggregate(ctx, "playlist", model.Playlists, stages)
	if err != nil {
		return model.PlaylistDetail{}, err
	}
	return single[model.PlaylistDetail](recs, "playlist "+id.String())
}

// UserPlaylists lists a user's playlists with per-playlist totals.
func (c *Composer) UserPlaylists(ctx context.Context, user uuid.UUID, req listing.Request) (model.Page[model.PlaylistSummary], error) {
	if user == uuid.Nil {
		return model.Page[model.PlaylistSummary]{}, fmt.Errorf("user id: %w", errs.ErrInvalidReference)
	}
	if _, err := c.store.FindByID(ctx, model.Users, user); err != nil {
		return model.Page[model.PlaylistSummary]{}, err
	}
	tail := append(playlistVideos(true), pipeline.Project("id", "name", "description", "created_at", "updated_at",
		"total_videos", "total_views", "total_duration"))
	spec := listing.Spec{
		Collection: model.Playlists,
		Filter:     pipeline.Where(pipeline.Eq("owner_id", user)),
		Sortable:   []string{"created_at", "updated_at", "name"},
		Tail:       tail,
	}
	p, err := c.list(ctx, "user_playlists", spec, req)
	if err != nil {
		return model.Page[model.PlaylistSummary]{}, err
	}
	return listing.Decode(p, decode[model.PlaylistSummary])
}
