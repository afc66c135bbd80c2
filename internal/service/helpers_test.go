package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/and161185/vidgraph/internal/blob"
	"github.com/and161185/vidgraph/internal/identity"
	"github.com/and161185/vidgraph/internal/limiter"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/and161185/vidgraph/internal/store/memory"
	"github.com/gofrs/uuid/v5"
)

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeBlobs struct {
	mu        sync.Mutex
	uploadErr map[string]error // by local path
	deleteErr error
	uploads   []string
	deleted   []string
}

var _ blob.Store = (*fakeBlobs)(nil)

func (b *fakeBlobs) Upload(_ context.Context, path string, kind blob.Kind) (blob.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.uploadErr[path]; err != nil {
		return blob.Object{}, err
	}
	obj := blob.Object{URL: "https://cdn.test/" + filepath.Base(path)}
	if kind == blob.Media {
		obj.Duration = 42.5
	}
	b.uploads = append(b.uploads, obj.URL)
	return obj, nil
}

func (b *fakeBlobs) Delete(_ context.Context, url string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, url)
	return strings.HasPrefix(url, "https://cdn.test/"), b.deleteErr
}

type fakeIndex struct {
	put     map[uuid.UUID]model.Video
	removed []uuid.UUID
	err     error
}

var _ Indexer = (*fakeIndex)(nil)

func (f *fakeIndex) Put(_ context.Context, v model.Video) error {
	if f.err != nil {
		return f.err
	}
	if f.put == nil {
		f.put = map[uuid.UUID]model.Video{}
	}
	f.put[v.ID] = v
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return f.err
}

// failingStore fails selected store writes.
type failingStore struct {
	*memory.Store
	incrementErr error
	addToSetErr  error
}

func (f *failingStore) Increment(ctx context.Context, c string, id uuid.UUID, field string, d int64) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	return f.Store.Increment(ctx, c, id, field, d)
}

func (f *failingStore) AddToSet(ctx context.Context, c string, id uuid.UUID, field string, v uuid.UUID) (bool, error) {
	if f.addToSetErr != nil {
		return false, f.addToSetErr
	}
	return f.Store.AddToSet(ctx, c, id, field, v)
}

var errBoom = errors.New("boom")

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func as(id uuid.UUID) context.Context {
	return identity.WithCaller(context.Background(), identity.As(id))
}

func seedUser(t *testing.T, st store.Store, handle string) uuid.UUID {
	t.Helper()
	u := model.User{ID: newID(), Handle: handle, Email: handle + "@x.io", FullName: handle}
	id, err := st.Insert(context.Background(), model.Users, u.Fields())
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedVideo(t *testing.T, st store.Store, owner uuid.UUID, published bool) uuid.UUID {
	t.Helper()
	v := model.Video{ID: newID(), Title: "v", OwnerID: owner, Published: published,
		MediaURL: "https://cdn.test/m.mp4", ThumbnailURL: "https://cdn.test/t.png"}
	id, err := st.Insert(context.Background(), model.Videos, v.Fields())
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return id
}

func seedLike(t *testing.T, st store.Store, liker uuid.UUID, kind model.TargetKind, target uuid.UUID) {
	t.Helper()
	l := model.Like{ID: newID(), LikerID: liker, TargetKind: kind, TargetID: target}
	if _, err := st.Insert(context.Background(), model.Likes, l.Fields()); err != nil {
		t.Fatalf("seed like: %v", err)
	}
}

func count(t *testing.T, st store.Store, collection string) int64 {
	t.Helper()
	n, err := st.Count(context.Background(), collection, nil)
	if err != nil {
		t.Fatalf("count %s: %v", collection, err)
	}
	return n
}
