package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musicshare/cache"
	"musicshare/config"
	"musicshare/core/account"
	"musicshare/core/auth"
	"musicshare/core/catalog"
	"musicshare/db"
	"musicshare/logger"
	"musicshare/repository"
	"musicshare/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// 用户认证相关的API端点
	router.HandleFunc("/token", h.limited(h.LoginHandler)).Methods(http.MethodPost)
	router.HandleFunc("/register", h.limited(h.RegisterHandler)).Methods(http.MethodPost)
	router.HandleFunc("/auth", h.AuthPageHandler).Methods(http.MethodGet)
	router.HandleFunc("/logout", h.AuthMiddleware(h.LogoutHandler)).Methods(http.MethodPost)
	router.HandleFunc("/account", h.AuthMiddleware(h.AccountHandler)).Methods(http.MethodGet)

	// 公开浏览
	router.HandleFunc("/", h.ListAuthorsHandler).Methods(http.MethodGet)
	router.HandleFunc("/authors", h.ListAuthorsHandler).Methods(http.MethodGet)
	router.HandleFunc("/authors/{alias}", h.GetAuthorHandler).Methods(http.MethodGet)
	router.HandleFunc("/authors/{alias}/tracks", h.ListAuthorTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/all", h.ListTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{alias}", h.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/playlists/all", h.ListPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{alias}", h.GetPlaylistHandler).Methods(http.MethodGet)

	// 曲库管理 (admin)
	router.HandleFunc("/music/authors/", h.AuthMiddleware(h.CreateAuthorHandler)).Methods(http.MethodPost)
	router.HandleFunc("/music/authors/{alias}/tracks/", h.AuthMiddleware(h.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/music/authors/{alias}", h.AuthMiddleware(h.DeleteAuthorHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/music/tracks/{alias}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/music/playlists/{alias}", h.AuthMiddleware(h.DeletePlaylistHandler)).Methods(http.MethodDelete)

	// 播放列表
	router.HandleFunc("/playlists/", h.AuthMiddleware(h.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/playlists/{playlist}/tracks/{track}", h.AuthMiddleware(h.AddTrackToPlaylistHandler)).Methods(http.MethodPost)

	// 媒体文件 (MinIO)
	router.HandleFunc("/music/media", h.AuthMiddleware(h.UploadMediaHandler)).Methods(http.MethodPost)
	router.HandleFunc("/audio/{name}", h.MediaHandler(storage.KindAudio)).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/img/{name}", h.MediaHandler(storage.KindImage)).Methods(http.MethodGet, http.MethodHead)

	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
		router.Use(h.metrics.middleware)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	return router
}

func (h *APIHandler) limited(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return h.limiter.Middleware(next)
}

// NewHTTPHandler wraps the router with request logging and CORS. The
// middleware sits outside the router so preflight and unmatched requests
// pass through it too.
func NewHTTPHandler(h *APIHandler) http.Handler {
	return loggingMiddleware(corsMiddleware(NewRouter(h)))
}

// Start connects the backing services, serves HTTP on cfg.HTTPAddr and shuts
// down gracefully on SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		return err
	}

	var tokenOpts []auth.TokenOption
	if cfg.RedisEnabled() {
		var rdb *redis.Client
		rdb, err = db.ConnectRedis(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		tokenOpts = append(tokenOpts, auth.WithRevoker(cache.NewRevocationList(rdb)))
	} else {
		logger.Warn("REDIS_HOST not set, logout will not revoke tokens")
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.TokenTTL, tokenOpts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handlerOpts := []HandlerOption{WithMetrics(NewMetrics(reg))}
	if cfg.RateLimitEnabled() {
		handlerOpts = append(handlerOpts, WithLoginLimiter(NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginBurst, 3*time.Minute)))
	}
	if cfg.MediaEnabled() {
		media, err := storage.NewMinioStore(context.Background(), cfg)
		if err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, WithMediaStore(media))
	} else {
		logger.Warn("MINIO_ENDPOINT not set, media routes are disabled")
	}

	users := repository.NewGormUserRepository(gdb)
	playlists := repository.NewGormPlaylistRepository(gdb)
	h := NewAPIHandler(
		account.NewService(users, playlists, cfg.BcryptCost),
		catalog.NewService(repository.NewGormAuthorRepository(gdb), repository.NewGormTrackRepository(gdb), playlists),
		tokens,
		users,
		handlerOpts...,
	)

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewHTTPHandler(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
