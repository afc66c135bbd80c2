package listing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/and161185/vidgraph/internal/store/memory"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingSearch struct{}

func (failingSearch) TextSearch(context.Context, string, []string, string) ([]uuid.UUID, error) {
	return nil, fmt.Errorf("elastic down: %w", errs.ErrSearchUnavailable)
}

var videoSpec = Spec{
	Collection:   model.Videos,
	Filter:       pipeline.Where(pipeline.Eq("published", true)),
	SearchFields: []string{"title", "description"},
	Sortable:     []string{"created_at", "views", "title"},
}

func seed(t *testing.T, n int) *memory.Store {
	t.Helper()
	s := memory.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := s.Insert(context.Background(), model.Videos, store.Record{
			"id":          uuid.Must(uuid.NewV4()),
			"title":       fmt.Sprintf("video %02d", i),
			"description": "",
			"views":       int64(i % 3),
			"published":   true,
			"created_at":  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.Insert(context.Background(), model.Videos, store.Record{
		"id": uuid.Must(uuid.NewV4()), "title": "draft", "published": false, "created_at": base,
	})
	require.NoError(t, err)
	return s
}

func TestClamp(t *testing.T) {
	p := Policy{DefaultSize: 10, MaxSize: 50}
	cases := []struct{ page, size, wantPage, wantSize int }{
		{0, 0, 1, 10},
		{-3, -1, 1, 10},
		{2, 500, 2, 50},
		{4, 20, 4, 20},
	}
	for _, c := range cases {
		page, size := p.Clamp(c.page, c.size)
		require.Equal(t, c.wantPage, page)
		require.Equal(t, c.wantSize, size)
	}
	_, size := Policy{}.Clamp(1, 0)
	require.Equal(t, DefaultPageSize, size)
}

func TestTotalPages(t *testing.T) {
	for _, c := range []struct{ n, l, want int }{{0, 10, 0}, {1, 10, 1}, {10, 10, 1}, {11, 10, 2}, {25, 7, 4}} {
		require.Equal(t, c.want, TotalPages(c.n, c.l), "n=%d l=%d", c.n, c.l)
	}
}

func TestList_PagesConcatenateWithoutDuplicates(t *testing.T) {
	s := seed(t, 23)
	l := New(s, nil, Policy{DefaultSize: 5, MaxSize: 20}, zaptest.NewLogger(t))

	seen := map[uuid.UUID]bool{}
	var order []string
	for page := 1; ; page++ {
		p, err := l.List(context.Background(), videoSpec, Request{Page: page, PageSize: 5})
		require.NoError(t, err)
		require.True(t, p.Found)
		require.Equal(t, 23, p.TotalItems)
		require.Equal(t, 5, p.TotalPages)
		if len(p.Items) == 0 {
			break
		}
		for _, r := range p.Items {
			require.False(t, seen[r.ID()])
			seen[r.ID()] = true
			order = append(order, r["title"].(string))
		}
	}
	require.Len(t, seen, 23)
	require.Equal(t, "video 22", order[0], "default sort is newest first")
}

func TestList_SortAllowList(t *testing.T) {
	s := seed(t, 3)
	l := New(s, nil, Policy{}, zaptest.NewLogger(t))

	_, err := l.List(context.Background(), videoSpec, Request{SortBy: "password_hash"})
	require.ErrorIs(t, err, errs.ErrInvalidReference)

	_, err = l.List(context.Background(), videoSpec, Request{SortBy: "title", SortType: "sideways"})
	require.ErrorIs(t, err, errs.ErrInvalidReference)

	p, err := l.List(context.Background(), videoSpec, Request{SortBy: "title", SortType: "asc"})
	require.NoError(t, err)
	require.Equal(t, "video 00", p.Items[0]["title"])
}

func TestList_SearchNoMatchIsNotFoundFlag(t *testing.T) {
	s := seed(t, 3)
	l := New(s, nil, Policy{}, zaptest.NewLogger(t))

	p, err := l.List(context.Background(), videoSpec, Request{Query: "nothing like this"})
	require.NoError(t, err)
	require.False(t, p.Found)
	require.Empty(t, p.Items)
	require.Zero(t, p.TotalItems)

	p, err = l.List(context.Background(), videoSpec, Request{Query: "video 01"})
	require.NoError(t, err)
	require.True(t, p.Found)
	require.Equal(t, 1, p.TotalItems)
}

func TestList_SearchOnlyFindsPublished(t *testing.T) {
	s := seed(t, 1)
	l := New(s, nil, Policy{}, zaptest.NewLogger(t))

	p, err := l.List(context.Background(), videoSpec, Request{Query: "draft"})
	require.NoError(t, err)
	require.True(t, p.Found)
	require.Empty(t, p.Items)
}

func TestList_SearchUnavailableDegrades(t *testing.T) {
	s := seed(t, 3)
	l := New(s, failingSearch{}, Policy{}, zaptest.NewLogger(t))

	p, err := l.List(context.Background(), videoSpec, Request{Query: "video"})
	require.NoError(t, err)
	require.False(t, p.Found)
	require.Empty(t, p.Items)

	p, err = l.List(context.Background(), videoSpec, Request{})
	require.NoError(t, err)
	require.True(t, p.Found)
	require.Len(t, p.Items, 3)
}

func TestList_EmptyListingIsFound(t *testing.T) {
	l := New(memory.New(), nil, Policy{}, zaptest.NewLogger(t))
	p, err := l.List(context.Background(), videoSpec, Request{})
	require.NoError(t, err)
	require.True(t, p.Found)
	require.NotNil(t, p.Items)
	require.Zero(t, p.TotalPages)
}

func TestList_TailRunsOnPageOnly(t *testing.T) {
	s := seed(t, 12)
	l := New(s, nil, Policy{}, zaptest.NewLogger(t))
	spec := videoSpec
	spec.Tail = []pipeline.Stage{pipeline.Project("id", "title")}

	p, err := l.List(context.Background(), spec, Request{Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, p.Items, 5)
	for _, r := range p.Items {
		require.Len(t, r, 2)
	}
}

func TestDecode(t *testing.T) {
	p := model.Page[store.Record]{Items: []store.Record{{"title": "a"}, {"title": "b"}}, Page: 1, PageSize: 2, TotalItems: 2, TotalPages: 1, Found: true}
	got, err := Decode(p, func(r store.Record) (string, error) { return r["title"].(string), nil })
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got.Items)
	require.Equal(t, 1, got.TotalPages)

	_, err = Decode(p, func(store.Record) (string, error) { return "", errors.New("bad") })
	require.Error(t, err)
}
