// Command vidgraph-server starts the vidgraph HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/vidgraph/internal/blob"
	"github.com/and161185/vidgraph/internal/blob/s3"
	"github.com/and161185/vidgraph/internal/config"
	"github.com/and161185/vidgraph/internal/limiter"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/and161185/vidgraph/internal/migrate"
	"github.com/and161185/vidgraph/internal/search/elastic"
	"github.com/and161185/vidgraph/internal/server/httpserver"
	"github.com/and161185/vidgraph/internal/service"
	"github.com/and161185/vidgraph/internal/store"
	"github.com/and161185/vidgraph/internal/store/memory"
	"github.com/and161185/vidgraph/internal/store/postgres"
	"github.com/and161185/vidgraph/internal/toggle"
	"github.com/and161185/vidgraph/internal/view"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, prepares the store and collaborators, and serves HTTP.
func main() {
	cfgPath := flag.String("config", "", "YAML config file (default ./config.yml if present)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger is not built yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("driver", cfg.DB.Driver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	params := limiter.Params{Window: cfg.Auth.FailWindow, MaxFails: cfg.Auth.MaxFails, BlockFor: cfg.Auth.BlockFor}
	if params.Window <= 0 || params.MaxFails <= 0 || params.BlockFor <= 0 {
		params = limiter.DefaultParams
	}

	var (
		st  store.Store
		lim limiter.Limiter
	)
	switch cfg.DB.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		st = memory.New()
		lim = limiter.NewMemory(params)
	default:
		ver, err := migrate.Up(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		logger.Info("schema ready", zap.Int64("version", ver))

		db, err := postgres.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("postgres pool", zap.Error(err))
		}
		defer db.Close()
		st = postgres.NewStore(db)
		lim = limiter.NewPG(db.Pool, params)
	}

	var blobs blob.Store
	if cfg.Blob.Endpoint != "" {
		b, err := s3.New(s3.Config{
			Endpoint:  cfg.Blob.Endpoint,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			Bucket:    cfg.Blob.Bucket,
			Secure:    cfg.Blob.Secure,
			PublicURL: cfg.Blob.PublicURL,
		})
		if err != nil {
			logger.Fatal("blob store", zap.Error(err))
		}
		blobs = b
	} else {
		logger.Warn("blob store not configured; uploads are disabled")
	}

	var (
		searcher listing.Searcher
		indexer  service.Indexer
	)
	if cfg.Search.ElasticURL != "" {
		ix, err := elastic.New(cfg.Search.ElasticURL, cfg.Search.Index, logger)
		if err != nil {
			logger.Fatal("search index", zap.Error(err))
		}
		if err := ix.EnsureIndex(ctx); err != nil {
			// searches degrade to found=false until the index is reachable
			logger.Warn("ensure search index", zap.Error(err))
		}
		searcher, indexer = ix, ix
	}

	policy := listing.Policy{DefaultSize: cfg.Paging.DefaultSize, MaxSize: cfg.Paging.MaxSize}
	lister := listing.New(st, searcher, policy, logger)
	composer := view.New(st, lister, logger)
	signKey := []byte(cfg.Auth.JWTKey)

	api := httpserver.New(httpserver.Deps{
		Users:      service.NewUserService(st, lim, blobs, signKey, cfg.Auth.AccessTTL, logger),
		Videos:     service.NewVideoService(st, composer, blobs, indexer, logger),
		Comments:   service.NewCommentService(st, logger),
		Tweets:     service.NewTweetService(st, logger),
		Playlists:  service.NewPlaylistService(st, logger),
		Views:      composer,
		Toggles:    toggle.New(st),
		SignKey:    signKey,
		TrustProxy: cfg.HTTP.TrustProxy,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forced shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
