// Package httpserver exposes the vidgraph REST API under /api/v1.
package httpserver

import (
	"context"
	"net/http"

	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/service"
	"github.com/and161185/vidgraph/internal/toggle"
	"github.com/and161185/vidgraph/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Viewer composes the read-only views.
type Viewer interface {
	ChannelProfile(ctx context.Context, handle string) (model.ChannelProfile, error)
	ChannelStats(ctx context.Context) (model.ChannelStats, error)
	ChannelVideos(ctx context.Context, req listing.Request) (model.Page[model.ChannelVideo], error)
	Subscribers(ctx context.Context, channel uuid.UUID, req listing.Request) (model.Page[model.SubscriptionEntry], error)
	SubscribedChannels(ctx context.Context, subscriber uuid.UUID, req listing.Request) (model.Page[model.SubscriptionEntry], error)
	Comments(ctx context.Context, video uuid.UUID, req listing.Request) (model.Page[model.CommentView], error)
	Videos(ctx context.Context, q view.VideoQuery) (model.Page[model.VideoSummary], error)
	WatchHistory(ctx context.Context) ([]model.VideoSummary, error)
	UserTweets(ctx context.Context, user uuid.UUID, req listing.Request) (model.Page[model.TweetView], error)
	Playlist(ctx context.Context, id uuid.UUID) (model.PlaylistDetail, error)
	UserPlaylists(ctx context.Context, user uuid.UUID, req listing.Request) (model.Page[model.PlaylistSummary], error)
	CurrentUser(ctx context.Context) (model.Account, error)
	LikedVideos(ctx context.Context, req listing.Request) (model.Page[model.LikedVideo], error)
}

// Toggler flips like and subscription edges.
type Toggler interface {
	Like(ctx context.Context, kind model.TargetKind, target uuid.UUID) (model.ToggleResult, error)
	Subscription(ctx context.Context, channel uuid.UUID) (model.ToggleResult, error)
}

var (
	_ Viewer  = (*view.Composer)(nil)
	_ Toggler = (*toggle.Engine)(nil)
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Users     service.UserService
	Videos    service.VideoService
	Comments  service.CommentService
	Tweets    service.TweetService
	Playlists service.PlaylistService
	Views     Viewer
	Toggles   Toggler
	SignKey   []byte
	// TrustProxy honours X-Forwarded-For and X-Real-IP as the client
	// address, which keys login throttling.
	TrustProxy bool
	// UploadDir holds multipart files while a request runs; empty means os.TempDir.
	UploadDir string
}

// Server wires services into HTTP handlers.
type Server struct {
	Deps
	log      *zap.Logger
	validate *validator.Validate
}

// New constructs a Server.
func New(d Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Deps: d, log: log, validate: newValidator()}
}

// Routes returns the router with middleware applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))

	r.Get("/healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Post("/refresh-token", s.refresh)
			r.Get("/c/{handle}", s.channelProfile)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", s.logout)
				r.Post("/change-password", s.changePassword)
				r.Get("/current-user", s.currentUser)
				r.Patch("/update-account", s.updateAccount)
				r.Patch("/avatar", s.updateImage("avatar", service.Avatar))
				r.Patch("/cover-image", s.updateImage("coverImage", service.Cover))
				r.Get("/history", s.watchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", s.listVideos)
			r.Get("/{videoId}", s.watchVideo)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", s.publishVideo)
				r.Patch("/{videoId}", s.updateVideo)
				r.Delete("/{videoId}", s.deleteVideo)
				r.Patch("/toggle/publish/{videoId}", s.togglePublish)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/{videoId}", s.listComments)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{videoId}", s.addComment)
				r.Patch("/c/{commentId}", s.editComment)
				r.Delete("/c/{commentId}", s.deleteComment)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle/v/{targetId}", s.toggleLike(model.KindVideo))
			r.Post("/toggle/c/{targetId}", s.toggleLike(model.KindComment))
			r.Post("/toggle/t/{targetId}", s.toggleLike(model.KindTweet))
			r.Get("/videos", s.likedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/c/{channelId}", s.toggleSubscription)
			r.Get("/c/{channelId}", s.subscribers)
			r.Get("/u/{subscriberId}", s.subscribedChannels)
		})

		r.Route("/tweets", func(r chi.Router) {
			r.Get("/user/{userId}", s.userTweets)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", s.createTweet)
				r.Patch("/{tweetId}", s.updateTweet)
				r.Delete("/{tweetId}", s.deleteTweet)
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/{playlistId}", s.playlist)
			r.Get("/user/{userId}", s.userPlaylists)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", s.createPlaylist)
				r.Patch("/{playlistId}", s.updatePlaylist)
				r.Delete("/{playlistId}", s.deletePlaylist)
				r.Patch("/add/{videoId}/{playlistId}", s.playlistVideo(true))
				r.Patch("/remove/{videoId}/{playlistId}", s.playlistVideo(false))
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/stats", s.channelStats)
			r.Get("/videos", s.channelVideos)
		})
	})
	return r
}
