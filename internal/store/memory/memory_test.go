package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func user(handle, email string) store.Record {
	return store.Record{"id": newID(), "handle": handle, "email": email, "watch_history": []uuid.UUID{}}
}

func TestInsert_UniqueHandleAndEmail(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Insert(ctx, model.Users, user("alice", "a@x.io"))
	require.NoError(t, err)

	_, err = s.Insert(ctx, model.Users, user("alice", "b@x.io"))
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = s.Insert(ctx, model.Users, user("bob", "a@x.io"))
	require.ErrorIs(t, err, errs.ErrConflict)

	n, err := s.Count(ctx, model.Users, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestUpdateByID_ConflictAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := user("alice", "a@x.io"), user("bob", "b@x.io")
	for _, r := range []store.Record{a, b} {
		_, err := s.Insert(ctx, model.Users, r)
		require.NoError(t, err)
	}

	_, err := s.UpdateByID(ctx, model.Users, b.ID(), store.Record{"handle": "alice"})
	require.ErrorIs(t, err, errs.ErrConflict)

	got, err := s.UpdateByID(ctx, model.Users, b.ID(), store.Record{"handle": "bobby"})
	require.NoError(t, err)
	require.Equal(t, "bobby", got["handle"])

	_, err = s.UpdateByID(ctx, model.Users, newID(), store.Record{"handle": "x"})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := user("alice", "a@x.io")
	_, err := s.Insert(ctx, model.Users, u)
	require.NoError(t, err)

	got, err := s.FindByID(ctx, model.Users, u.ID())
	require.NoError(t, err)
	got["handle"] = "mallory"

	again, err := s.FindByID(ctx, model.Users, u.ID())
	require.NoError(t, err)
	require.Equal(t, "alice", again["handle"])
}

func TestSetOperations(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := user("alice", "a@x.io")
	_, err := s.Insert(ctx, model.Users, u)
	require.NoError(t, err)
	v := newID()

	changed, err := s.AddToSet(ctx, model.Users, u.ID(), "watch_history", v)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.AddToSet(ctx, model.Users, u.ID(), "watch_history", v)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := s.FindByID(ctx, model.Users, u.ID())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{v}, got["watch_history"])

	changed, err = s.RemoveFromSet(ctx, model.Users, u.ID(), "watch_history", v)
	require.NoError(t, err)
	require.True(t, changed)

	_, err = s.AddToSet(ctx, model.Users, newID(), "watch_history", v)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := newID()
	_, err := s.Insert(ctx, model.Videos, store.Record{"id": id, "views": int64(0)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Increment(ctx, model.Videos, id, "views", 1))
	}
	got, err := s.FindByID(ctx, model.Videos, id)
	require.NoError(t, err)
	require.Equal(t, int64(3), got["views"])
}

func TestToggleEdge_ConcurrentTogglesAlternate(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub, ch := newID(), newID()
	key := pipeline.Where(pipeline.Eq("subscriber_id", sub), pipeline.Eq("channel_id", ch))

	var on atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			active, err := s.ToggleEdge(ctx, model.Subscriptions, key,
				store.Record{"id": newID(), "subscriber_id": sub, "channel_id": ch})
			require.NoError(t, err)
			if active {
				on.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 5, on.Load())
	n, err := s.Count(ctx, model.Subscriptions, key)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCheckConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := newID()

	_, err := s.Insert(ctx, model.Subscriptions, store.Record{"id": newID(), "subscriber_id": id, "channel_id": id})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Insert(ctx, model.Likes, store.Record{"id": newID(), "liker_id": id, "target_kind": "playlist", "target_id": newID()})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	s := New()
	video := newID()
	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, model.Comments, store.Record{"id": newID(), "video_id": video, "content": "c"})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, model.Comments, store.Record{"id": newID(), "video_id": newID(), "content": "other"})
	require.NoError(t, err)

	n, err := s.DeleteMany(ctx, model.Comments, pipeline.Where(pipeline.Eq("video_id", video)))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	left, err := s.Count(ctx, model.Comments, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, left)
}

func TestTextSearch(t *testing.T) {
	ctx := context.Background()
	s := New()
	hit, miss := newID(), newID()
	_, err := s.Insert(ctx, model.Videos, store.Record{"id": hit, "title": "Go Concurrency", "description": "channels and goroutines"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.Videos, store.Record{"id": miss, "title": "Gardening", "description": "tomatoes"})
	require.NoError(t, err)

	ids, err := s.TextSearch(ctx, model.Videos, []string{"title", "description"}, "go CHANNELS")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{hit}, ids)

	ids, err = s.TextSearch(ctx, model.Videos, []string{"title"}, "   ")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestUnknownCollection(t *testing.T) {
	_, err := New().Find(context.Background(), "nope", nil)
	require.Error(t, err)
}
