// Package server exposes the stylist over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mhpenta/tryon"
	"github.com/mhpenta/tryon/internal/metrics"
)

// Config configures the server.
type Config struct {
	Stylist  *tryon.Stylist
	Wardrobe tryon.Wardrobe

	// AssetsDir resolves local image URLs and is served under /wardrobe-assets/.
	AssetsDir string

	// HTTPClient fetches remote photos (optional)
	HTTPClient *http.Client

	// PhotoHosts are the only hosts a remote photoUrl may name. When empty
	// only local asset paths are accepted.
	PhotoHosts []string

	// Metrics is optional; when set /metrics is served.
	Metrics *metrics.Collector
	Logger  *slog.Logger

	MaxUploadBytes int64
	SessionTTL     time.Duration

	// RequestsPerMinute per client IP on /api; zero disables the limit.
	RequestsPerMinute int
	Burst             int

	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end of the stylist.
type Server struct {
	cfg      Config
	stylist  *tryon.Stylist
	wardrobe tryon.Wardrobe
	sessions *SessionStore
	logger   *slog.Logger
	router   *mux.Router

	photoHosts []string
}

// New creates the server. Background work (session expiry, limiter cleanup)
// stops when ctx is done.
func New(ctx context.Context, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = tryon.MaxImageSize + 1<<20
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: time.Minute}
	}

	s := &Server{
		cfg:      cfg,
		stylist:  cfg.Stylist,
		wardrobe: cfg.Wardrobe,
		sessions: NewSessionStore(cfg.SessionTTL),
		logger:   cfg.Logger.With("component", "server"),
	}
	for _, host := range cfg.PhotoHosts {
		s.photoHosts = append(s.photoHosts, strings.ToLower(strings.TrimSpace(host)))
	}
	if cfg.Metrics != nil {
		s.sessions.onChange = cfg.Metrics.SetActiveSessions
	}
	if cfg.SessionTTL > 0 {
		go s.sessions.Run(ctx, min(cfg.SessionTTL, time.Minute))
	}

	s.router = s.routes(ctx)
	return s
}

func (s *Server) routes(ctx context.Context) *mux.Router {
	r := mux.NewRouter()
	r.Use(recovery(s.logger), requestLogger(s.logger, s.cfg.Metrics))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics.Handler()).Methods(http.MethodGet)
	}
	if s.cfg.AssetsDir != "" {
		r.PathPrefix("/wardrobe-assets/").Handler(http.FileServer(http.Dir(s.cfg.AssetsDir))).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	if s.cfg.RequestsPerMinute > 0 {
		api.Use(newIPRateLimiter(ctx, s.cfg.RequestsPerMinute, s.cfg.Burst).middleware)
	}
	api.Use(s.limitBody)

	api.HandleFunc("/wardrobe", s.handleWardrobe).Methods(http.MethodGet)
	api.HandleFunc("/model-image", s.handleModelImage).Methods(http.MethodPost)
	api.HandleFunc("/recommendations", s.handleRecommendation).Methods(http.MethodPost)
	api.HandleFunc("/outfit-images", s.handleOutfitImage).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/messages", s.handleSendMessage).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/model-image", s.handleSetSessionModelImage).Methods(http.MethodPut)

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

// fail logs the error and writes it with its mapped status. Internal errors
// are not echoed to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
	)
	writeError(w, status, msg)
}
