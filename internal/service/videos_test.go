package service

import (
	"context"
	"testing"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/and161185/vidgraph/internal/store/memory"
	"github.com/and161185/vidgraph/internal/view"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type videoEnv struct {
	st    *failingStore
	svc   *VideoServiceImpl
	blobs *fakeBlobs
	index *fakeIndex
}

func newVideos(t *testing.T) *videoEnv {
	log := zaptest.NewLogger(t)
	st := &failingStore{Store: memory.New()}
	composer := view.New(st, listing.New(st, nil, listing.Policy{DefaultSize: 10, MaxSize: 50}, log), log)
	e := &videoEnv{st: st, blobs: &fakeBlobs{}, index: &fakeIndex{}}
	e.svc = NewVideoService(st, composer, e.blobs, e.index, log)
	return e
}

func TestVideos_PublishStartsUnpublished(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	owner := seedUser(t, e.st, "alice")

	_, err := e.svc.Publish(context.Background(), PublishInput{Title: "t", MediaPath: "/tmp/m.mp4", ThumbnailPath: "/tmp/t.png"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = e.svc.Publish(as(owner), PublishInput{Title: "t", MediaPath: "/tmp/m.mp4"})
	require.ErrorIs(t, err, errs.ErrValidation)

	v, err := e.svc.Publish(as(owner), PublishInput{Title: " intro ", Description: "d", MediaPath: "/tmp/m.mp4", ThumbnailPath: "/tmp/t.png"})
	require.NoError(t, err)
	require.Equal(t, "intro", v.Title)
	require.False(t, v.Published)
	require.Equal(t, owner, v.OwnerID)
	require.Equal(t, 42.5, v.Duration)
	require.Equal(t, "https://cdn.test/m.mp4", v.MediaURL)
	require.Contains(t, e.index.put, v.ID)

	// unpublished videos are hidden from everyone but the owner
	_, err = e.svc.Watch(as(seedUser(t, e.st, "bob")), v.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = e.svc.Watch(as(owner), v.ID)
	require.NoError(t, err)
}

func TestVideos_PublishDiscardsMediaWhenThumbnailFails(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	owner := seedUser(t, e.st, "alice")
	e.blobs.uploadErr = map[string]error{"/tmp/t.png": errs.ErrDependency}

	_, err := e.svc.Publish(as(owner), PublishInput{Title: "t", MediaPath: "/tmp/m.mp4", ThumbnailPath: "/tmp/t.png"})
	require.ErrorIs(t, err, errs.ErrDependency)
	require.Equal(t, []string{"https://cdn.test/m.mp4"}, e.blobs.deleted)
	require.Zero(t, count(t, e.st, model.Videos))
}

func TestVideos_WatchCountsViewsAndHistory(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	owner, viewer := seedUser(t, e.st, "alice"), seedUser(t, e.st, "bob")
	vid := seedVideo(t, e.st, owner, true)

	d, err := e.svc.Watch(as(viewer), vid)
	require.NoError(t, err)
	require.EqualValues(t, 1, d.Views)
	_, err = e.svc.Watch(as(viewer), vid)
	require.NoError(t, err)
	_, err = e.svc.Watch(context.Background(), vid)
	require.NoError(t, err)

	rec, err := e.st.FindByID(context.Background(), model.Videos, vid)
	require.NoError(t, err)
	require.EqualValues(t, 3, rec["views"])
	u, err := e.st.FindByID(context.Background(), model.Users, viewer)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{vid}, u["watch_history"])
}

func TestVideos_WatchSwallowsSideEffectFailures(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	owner := seedUser(t, e.st, "alice")
	vid := seedVideo(t, e.st, owner, true)
	e.st.incrementErr = errBoom
	e.st.addToSetErr = errBoom

	d, err := e.svc.Watch(as(owner), vid)
	require.NoError(t, err)
	require.Zero(t, d.Views)

	_, err = e.svc.Watch(as(owner), newID())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestVideos_UpdateAndTogglePublish(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	owner, other := seedUser(t, e.st, "alice"), seedUser(t, e.st, "bob")
	vid := seedVideo(t, e.st, owner, false)

	title := "renamed"
	_, err := e.svc.Update(as(other), vid, VideoPatch{Title: &title})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = e.svc.Update(as(owner), vid, VideoPatch{})
	require.ErrorIs(t, err, errs.ErrValidation)
	blank := "  "
	_, err = e.svc.Update(as(owner), vid, VideoPatch{Title: &blank})
	require.ErrorIs(t, err, errs.ErrValidation)

	v, err := e.svc.Update(as(owner), vid, VideoPatch{Title: &title, ThumbnailPath: "/tmp/new.png"})
	require.NoError(t, err)
	require.Equal(t, "renamed", v.Title)
	require.Equal(t, "https://cdn.test/new.png", v.ThumbnailURL)
	require.Equal(t, []string{"https://cdn.test/t.png"}, e.blobs.deleted)

	v, err = e.svc.TogglePublish(as(owner), vid)
	require.NoError(t, err)
	require.True(t, v.Published)
	require.True(t, e.index.put[vid].Published)
	v, err = e.svc.TogglePublish(as(owner), vid)
	require.NoError(t, err)
	require.False(t, v.Published)

	_, err = e.svc.TogglePublish(as(owner), uuid.Nil)
	require.ErrorIs(t, err, errs.ErrInvalidReference)
}

func TestVideos_DeleteCascades(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	ctx := context.Background()
	owner, fan := seedUser(t, e.st, "alice"), seedUser(t, e.st, "bob")
	vid := seedVideo(t, e.st, owner, true)
	keep := seedVideo(t, e.st, owner, true)

	comments := NewCommentService(e.st, zaptest.NewLogger(t))
	c1, err := comments.Add(as(fan), vid, "first")
	require.NoError(t, err)
	kept, err := comments.Add(as(fan), keep, "stays")
	require.NoError(t, err)
	seedLike(t, e.st, fan, model.KindVideo, vid)
	seedLike(t, e.st, owner, model.KindComment, c1.ID)
	seedLike(t, e.st, fan, model.KindVideo, keep)
	seedLike(t, e.st, owner, model.KindComment, kept.ID)

	require.ErrorIs(t, e.svc.Delete(as(fan), vid), errs.ErrUnauthorized)
	require.NoError(t, e.svc.Delete(as(owner), vid))

	_, err = e.st.FindByID(ctx, model.Videos, vid)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.EqualValues(t, 1, count(t, e.st, model.Comments))
	require.EqualValues(t, 2, count(t, e.st, model.Likes))
	left, err := e.st.Find(ctx, model.Likes, nil)
	require.NoError(t, err)
	for _, l := range left {
		require.NotEqual(t, vid, l["target_id"])
		require.NotEqual(t, c1.ID, l["target_id"])
	}
	require.ElementsMatch(t, []string{"https://cdn.test/m.mp4", "https://cdn.test/t.png"}, e.blobs.deleted)
	require.Equal(t, []uuid.UUID{vid}, e.index.removed)

	require.ErrorIs(t, e.svc.Delete(as(owner), vid), errs.ErrNotFound)
}

func TestVideos_DeleteToleratesBlobAndIndexFailures(t *testing.T) {
	t.Parallel()
	e := newVideos(t)
	owner := seedUser(t, e.st, "alice")
	vid := seedVideo(t, e.st, owner, true)
	e.blobs.deleteErr = errBoom
	e.index.err = errBoom

	require.NoError(t, e.svc.Delete(as(owner), vid))
	require.Zero(t, count(t, e.st, model.Videos))
}

var _ store.Store = (*failingStore)(nil)
