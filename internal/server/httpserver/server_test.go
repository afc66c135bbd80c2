package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/limiter"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/service"
	"github.com/and161185/vidgraph/internal/store/memory"
	"github.com/and161185/vidgraph/internal/toggle"
	"github.com/and161185/vidgraph/internal/view"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var signKey = []byte("test-key")

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, func(*Deps) {})
}

func newTestServerWith(t *testing.T, opt func(*Deps)) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	st := memory.New()
	lister := listing.New(st, nil, listing.Policy{DefaultSize: 10, MaxSize: 50}, log)
	composer := view.New(st, lister, log)
	d := Deps{
		Users:     service.NewUserService(st, limiter.NewMemory(limiter.DefaultParams), nil, signKey, time.Minute, log),
		Videos:    service.NewVideoService(st, composer, nil, nil, log),
		Comments:  service.NewCommentService(st, log),
		Tweets:    service.NewTweetService(st, log),
		Playlists: service.NewPlaylistService(st, log),
		Views:     composer,
		Toggles:   toggle.New(st),
		SignKey:   signKey,
		UploadDir: t.TempDir(),
	}
	opt(&d)
	ts := httptest.NewServer(New(d, log).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&rdr).Encode(body))
	}
	req, err := http.NewRequest(method, url, &rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func register(t *testing.T, base, handle string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"handle": handle, "email": handle + "@x.io", "fullName": handle, "password": "secret1",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	resp, err := http.Post(base+"/api/v1/users/register", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := do(t, http.MethodPost, base+"/api/v1/users/login", "", map[string]string{"login": handle, "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return out["accessToken"].(string)
}

func TestHealthcheck(t *testing.T) {
	ts := newTestServer(t)
	resp, out := do(t, http.MethodGet, ts.URL+"/healthcheck", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", out["status"])
}

func TestRegisterLoginAndTweetFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := register(t, ts.URL, "alice")

	resp, me := do(t, http.MethodGet, ts.URL+"/api/v1/users/current-user", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", me["handle"])
	require.NotContains(t, me, "passwordHash")

	resp, tw := do(t, http.MethodPost, ts.URL+"/api/v1/tweets", alice, map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tweetID := tw["id"].(string)

	bob := register(t, ts.URL, "bob")
	resp, res := do(t, http.MethodPost, ts.URL+"/api/v1/likes/toggle/t/"+tweetID, bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, res["active"])

	resp, page := do(t, http.MethodGet, fmt.Sprintf("%s/api/v1/tweets/user/%s?page=x&limit=5", ts.URL, me["id"]), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, page["totalItems"])
	require.EqualValues(t, 1, page["page"])
	require.EqualValues(t, 5, page["pageSize"])
	require.Equal(t, true, page["found"])
	items := page["items"].([]any)
	require.Len(t, items, 1)
	require.EqualValues(t, 1, items[0].(map[string]any)["likeCount"])
	require.Equal(t, false, items[0].(map[string]any)["isLiked"])

	resp, out := do(t, http.MethodDelete, ts.URL+"/api/v1/tweets/"+tweetID, bob, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.EqualValues(t, 401, out["code"])

	resp, out = do(t, http.MethodDelete, ts.URL+"/api/v1/tweets/"+tweetID, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, out)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/v1/users/logout", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	alice := register(t, ts.URL, "alice")

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/v1/videos/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/v1/videos/"+newUUID(), "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/v1/tweets", "", map[string]string{"content": "x"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/v1/videos", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, out := do(t, http.MethodPost, ts.URL+"/api/v1/tweets", alice, map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, out["error"], "content")

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/v1/videos?sortBy=password_hash", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/v1/users/c/nobody", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/v1/users/login", "", map[string]string{"login": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func loginFrom(t *testing.T, base, forwardedFor, password string) int {
	t.Helper()
	body, err := json.Marshal(map[string]string{"login": "alice", "password": password})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/users/login", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginLockoutIgnoresForwardedFor(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts.URL, "alice")

	codes := make([]int, 0, limiter.DefaultParams.MaxFails)
	for i := 0; i < limiter.DefaultParams.MaxFails; i++ {
		codes = append(codes, loginFrom(t, ts.URL, fmt.Sprintf("203.0.113.%d", i), "wrong"))
	}
	require.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1])
	require.Equal(t, http.StatusTooManyRequests, loginFrom(t, ts.URL, "198.51.100.7", "secret1"))
}

func TestLoginTrustsForwardedForBehindProxy(t *testing.T) {
	ts := newTestServerWith(t, func(d *Deps) { d.TrustProxy = true })
	register(t, ts.URL, "alice")

	for i := 0; i < limiter.DefaultParams.MaxFails; i++ {
		require.Equal(t, http.StatusUnauthorized, loginFrom(t, ts.URL, fmt.Sprintf("203.0.113.%d", i), "wrong"))
	}
	require.Equal(t, http.StatusOK, loginFrom(t, ts.URL, "198.51.100.7", "secret1"))
}

func TestVideosListingEnvelope(t *testing.T) {
	ts := newTestServer(t)
	resp, page := do(t, http.MethodGet, ts.URL+"/api/v1/videos?page=0&limit=1000", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, k := range []string{"items", "page", "pageSize", "totalItems", "totalPages", "found"} {
		require.Contains(t, page, k)
	}
	require.EqualValues(t, 1, page["page"])
	require.EqualValues(t, 50, page["pageSize"])
	require.Equal(t, []any{}, page["items"])
}

func TestRecover(t *testing.T) {
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", errs.ErrInvalidReference): http.StatusBadRequest,
		errs.ErrValidation:                            http.StatusBadRequest,
		errs.ErrUnauthorized:                          http.StatusUnauthorized,
		errs.ErrNotFound:                              http.StatusNotFound,
		errs.ErrConflict:                              http.StatusConflict,
		errs.ErrRateLimited:                           http.StatusTooManyRequests,
		errs.ErrDependency:                            http.StatusBadGateway,
		errors.New("boom"):                            http.StatusInternalServerError,
		context.DeadlineExceeded:                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, statusOf(err), err.Error())
	}
}

func newUUID() string { return uuid.Must(uuid.NewV4()).String() }
