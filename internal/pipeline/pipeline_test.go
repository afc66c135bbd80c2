package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	data  map[string][]Record
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Find(_ context.Context, collection string, flt Filter) ([]Record, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []Record
	for _, r := range f.data[collection] {
		if flt.Match(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func fixture() (*fakeSource, uuid.UUID, uuid.UUID, uuid.UUID) {
	alice, bob, carol := newID(), newID(), newID()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{data: map[string][]Record{
		"users": {
			{"id": alice, "handle": "alice", "password_hash": "x"},
			{"id": bob, "handle": "bob", "password_hash": "y"},
			{"id": carol, "handle": "carol", "password_hash": "z"},
		},
		"subscriptions": {
			{"id": newID(), "subscriber_id": bob, "channel_id": alice},
			{"id": newID(), "subscriber_id": carol, "channel_id": alice},
			{"id": newID(), "subscriber_id": alice, "channel_id": bob},
		},
		"videos": {
			{"id": newID(), "owner_id": alice, "title": "old", "views": int64(10), "duration": 1.5, "published": true, "created_at": t0},
			{"id": newID(), "owner_id": alice, "title": "new", "views": int64(5), "duration": 2.0, "published": true, "created_at": t0.Add(time.Hour)},
			{"id": newID(), "owner_id": alice, "title": "draft", "views": int64(100), "duration": 9.0, "published": false, "created_at": t0.Add(2 * time.Hour)},
		},
	}}
	return src, alice, bob, carol
}

func TestJoin_LeftOuterCountAndMembership(t *testing.T) {
	src, alice, bob, carol := fixture()
	ctx := context.Background()

	out, err := Run(ctx, src, "users", []Stage{
		Join(JoinSpec{From: "id", Collection: "subscriptions", To: "channel_id", As: "subscribers"}),
		Join(JoinSpec{From: "id", Collection: "subscriptions", To: "subscriber_id", As: "subscribed_to"}),
		AddFields(
			Set("subscriber_count", Count("subscribers")),
			Set("subscribed_to_count", Count("subscribed_to")),
			Set("is_subscribed", Has("subscribers", "subscriber_id", identity.As(bob))),
		),
		Sort(Asc("handle")),
		Project("id", "handle", "subscriber_count", "subscribed_to_count", "is_subscribed"),
	})
	require.NoError(t, err)
	require.Len(t, out, 3, "subjects without matches must be kept")

	require.Equal(t, alice, out[0]["id"])
	require.Equal(t, int64(2), out[0]["subscriber_count"])
	require.Equal(t, int64(1), out[0]["subscribed_to_count"])
	require.Equal(t, true, out[0]["is_subscribed"])

	require.Equal(t, bob, out[1]["id"])
	require.Equal(t, int64(1), out[1]["subscriber_count"])
	require.Equal(t, false, out[1]["is_subscribed"])

	require.Equal(t, carol, out[2]["id"])
	require.Equal(t, int64(0), out[2]["subscriber_count"])
	require.Equal(t, int64(1), out[2]["subscribed_to_count"])

	for _, r := range out {
		require.NotContains(t, r, "password_hash")
		require.NotContains(t, r, "subscribers")
	}
}

func TestHas_AnonymousIsNeverMember(t *testing.T) {
	r := Record{"likes": []Record{{"liker_id": uuid.Nil}}}
	v, err := Has("likes", "liker_id", identity.Anonymous).Eval(r)
	require.NoError(t, err)
	require.Equal(t, false, v)
}

func TestJoin_NestedPipelinePerSubject(t *testing.T) {
	src, alice, bob, _ := fixture()
	ctx := context.Background()

	out, err := Run(ctx, src, "users", []Stage{
		Match(In("id", alice, bob)),
		Join(JoinSpec{From: "id", Collection: "videos", To: "owner_id", As: "latest", Pipeline: []Stage{
			Match(Eq("published", true)),
			Sort(Desc("created_at")),
			Limit(1),
			Project("id", "title"),
		}}),
		AddFields(Set("latest", First("latest"))),
		Sort(Asc("handle")),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	latest, ok := out[0]["latest"].(Record)
	require.True(t, ok)
	require.Equal(t, "new", latest["title"])
	require.Nil(t, out[1]["latest"], "bob has no videos")
}

func TestSumOverFilteredJoin(t *testing.T) {
	src, alice, _, _ := fixture()
	out, err := Run(context.Background(), src, "users", []Stage{
		Match(Eq("id", alice)),
		Join(JoinSpec{From: "id", Collection: "videos", To: "owner_id", As: "videos", Pipeline: []Stage{
			Match(Eq("published", true)),
		}}),
		AddFields(
			Set("total_videos", Count("videos")),
			Set("total_views", Sum("videos", "views")),
			Set("total_duration", Sum("videos", "duration")),
		),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(2), out[0]["total_videos"])
	require.Equal(t, int64(15), out[0]["total_views"])
	require.InDelta(t, 3.5, out[0]["total_duration"], 1e-9)
}

func TestJoin_ArrayFromFieldKeepsOrder(t *testing.T) {
	a, b, c := newID(), newID(), newID()
	src := &fakeSource{data: map[string][]Record{
		"videos":    {{"id": a, "title": "a"}, {"id": b, "title": "b"}, {"id": c, "title": "c"}},
		"playlists": {{"id": newID(), "video_ids": []uuid.UUID{c, a}}},
	}}
	out, err := Run(context.Background(), src, "playlists", []Stage{
		Join(JoinSpec{From: "video_ids", Collection: "videos", To: "id", As: "videos"}),
	})
	require.NoError(t, err)
	vids := out[0].Seq("videos")
	require.Len(t, vids, 2)
	require.Equal(t, "c", vids[0]["title"])
	require.Equal(t, "a", vids[1]["title"])
}

func TestJoin_EmptyKeysSkipsLookup(t *testing.T) {
	src := &fakeSource{data: map[string][]Record{
		"playlists": {{"id": newID(), "video_ids": []uuid.UUID{}}},
	}}
	out, err := Run(context.Background(), src, "playlists", []Stage{
		Join(JoinSpec{From: "video_ids", Collection: "videos", To: "id", As: "videos"}),
		AddFields(Set("n", Count("videos"))),
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), out[0]["n"])
	require.NotNil(t, out[0]["videos"])
	require.Equal(t, int32(1), src.calls.Load(), "only the seed lookup runs")
}

func TestOne_MissingReferenceIsNotFound(t *testing.T) {
	owner := newID()
	src := &fakeSource{data: map[string][]Record{
		"videos": {{"id": newID(), "owner_id": owner}},
	}}
	_, err := Run(context.Background(), src, "videos", []Stage{
		Join(JoinSpec{From: "owner_id", Collection: "users", To: "id", As: "owner"}),
		AddFields(Set("owner", One("owner", "owner_id"))),
	})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSourceErrorAbortsComposition(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	_, err := Run(context.Background(), src, "users", nil)
	require.Error(t, err)

	ok := &fakeSource{data: map[string][]Record{"users": {{"id": newID()}}}}
	_, err = Apply(context.Background(), &fakeSource{err: errors.New("db down")}, ok.data["users"], []Stage{
		Join(JoinSpec{From: "id", Collection: "likes", To: "target_id", As: "likes"}),
	})
	require.ErrorContains(t, err, "join likes")
}

func TestSharedForeignRecordsAreCopiedPerSubject(t *testing.T) {
	owner := newID()
	src := &fakeSource{data: map[string][]Record{
		"users": {{"id": owner, "handle": "o"}},
	}}
	subjects := []Record{{"id": newID(), "owner_id": owner}, {"id": newID(), "owner_id": owner}}
	out, err := Apply(context.Background(), src, subjects, []Stage{
		Join(JoinSpec{From: "owner_id", Collection: "users", To: "id", As: "owner", Pipeline: []Stage{
			AddFields(Set("tag", Field("handle"))),
		}}),
	})
	require.NoError(t, err)
	out[0].Seq("owner")[0]["tag"] = "changed"
	require.Equal(t, "o", out[1].Seq("owner")[0]["tag"])
}

func TestSkipLimitAndSortStability(t *testing.T) {
	recs := []Record{
		{"n": 1, "k": "b"}, {"n": 2, "k": "a"}, {"n": 3, "k": "b"}, {"n": 4, "k": "a"},
	}
	out, err := Apply(context.Background(), &fakeSource{}, recs, []Stage{
		Sort(Asc("k")), Skip(1), Limit(2),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 4, out[0]["n"])
	require.Equal(t, 1, out[1]["n"])

	out, err = Apply(context.Background(), &fakeSource{}, recs, []Stage{Skip(10)})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCompare(t *testing.T) {
	t0 := time.Now()
	id := newID()
	type kind string
	require.Equal(t, 0, Compare(int(3), int64(3)))
	require.Equal(t, -1, Compare(int64(2), 2.5))
	require.Equal(t, 1, Compare(t0.Add(time.Second), t0))
	require.Equal(t, 0, Compare(id, [16]byte(id)))
	require.Equal(t, 0, Compare(kind("video"), "video"))
	require.Equal(t, -1, Compare(nil, "x"))
	require.Equal(t, -1, Compare(false, true))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Apply(ctx, &fakeSource{}, []Record{{"id": newID()}}, []Stage{Limit(1)})
	require.ErrorIs(t, err, context.Canceled)
}

type pagedSource struct {
	fakeSource
	orderable bool
	windows   []Window
}

var _ PageSource = (*pagedSource)(nil)

func (p *pagedSource) FindPage(ctx context.Context, collection string, f Filter, w Window) ([]Record, bool, error) {
	p.windows = append(p.windows, w)
	if !p.orderable {
		return nil, false, nil
	}
	recs, err := p.Find(ctx, collection, f)
	if err != nil {
		return nil, false, err
	}
	recs, err = Apply(ctx, &p.fakeSource, recs, []Stage{Sort(w.Keys...), Skip(w.Skip), Limit(w.Limit)})
	return recs, true, err
}

func TestRun_PushesWindowToPageSource(t *testing.T) {
	base, alice, _, _ := fixture()
	src := &pagedSource{fakeSource: fakeSource{data: base.data}, orderable: true}

	out, err := Run(context.Background(), src, "videos", []Stage{
		Match(Eq("owner_id", alice)),
		Sort(Desc("views")),
		Skip(1),
		Limit(1),
		Project("title"),
	})
	require.NoError(t, err)
	require.Equal(t, []Record{{"title": "old"}}, out)
	require.Equal(t, []Window{{Keys: []SortKey{Desc("views")}, Skip: 1, Limit: 1}}, src.windows)
	require.EqualValues(t, 1, src.calls.Load())

	// a source that cannot order falls back to sorting in memory
	src = &pagedSource{fakeSource: fakeSource{data: base.data}}
	out, err = Run(context.Background(), src, "videos", []Stage{
		Match(Eq("owner_id", alice)),
		Sort(Asc("views")),
		Limit(2),
		Project("title"),
	})
	require.NoError(t, err)
	require.Equal(t, []Record{{"title": "new"}, {"title": "old"}}, out)
	require.Len(t, src.windows, 1)
}

func TestRun_NoWindowWithoutLeadingSort(t *testing.T) {
	base, alice, _, _ := fixture()
	src := &pagedSource{fakeSource: fakeSource{data: base.data}, orderable: true}

	out, err := Run(context.Background(), src, "videos", []Stage{
		Match(Eq("owner_id", alice)),
		Limit(1),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Empty(t, src.windows)
}
