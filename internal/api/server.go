package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/storage"
	"github.com/IshaanNene/newswire/internal/types"
)

const (
	defaultArticleLimit = 10
	maxArticleLimit     = 100
	shortSummaryLength  = 200

	msgStarted       = "Scraping started! Fresh articles will appear below."
	msgStopAccepted  = "Scraping stop requested. Process will finish gracefully."
	msgNotConfigured = "scrape controller not initialized"
)

// RunController is the interface the API uses to control scrape runs.
type RunController interface {
	Start() (string, error)
	RequestStop() error
	Progress() types.RunStatus
}

// ArticleLister reads stored articles, newest first.
type ArticleLister interface {
	List(ctx context.Context, limit int) ([]types.StoredArticle, error)
}

// Server provides the JSON control API for scrape runs and stored articles.
type Server struct {
	mux     *http.ServeMux
	srv     *http.Server
	port    int
	logger  *slog.Logger
	ctrl    RunController
	store   ArticleLister
	metrics http.Handler
	now     func() time.Time
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(port int, ctrl RunController, store ArticleLister, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		port:    port,
		logger:  logger.With("component", "api_server"),
		ctrl:    ctrl,
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}

	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the API server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("API server shutting down")
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Run control
	s.mux.HandleFunc("GET /api/scrape/progress", s.handleProgress)
	s.mux.HandleFunc("POST /api/scrape/start", s.handleStart)
	s.mux.HandleFunc("POST /api/scrape/stop", s.handleStop)

	// Articles
	s.mux.HandleFunc("GET /api/articles", s.handleArticles)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.ctrl == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": msgNotConfigured})
		return
	}
	s.jsonResponse(w, http.StatusOK, s.ctrl.Progress())
}

// actionResponse is returned by the start and stop endpoints.
type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.ctrl == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": msgNotConfigured})
		return
	}
	runID, err := s.ctrl.Start()
	switch {
	case errors.Is(err, types.ErrAlreadyRunning):
		s.jsonResponse(w, http.StatusConflict, actionResponse{Message: types.MsgAlreadyRunning})
		return
	case err != nil:
		s.jsonResponse(w, http.StatusServiceUnavailable, actionResponse{Message: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusAccepted, actionResponse{Success: true, Message: msgStarted, RunID: runID})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.ctrl == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": msgNotConfigured})
		return
	}
	if err := s.ctrl.RequestStop(); err != nil {
		s.jsonResponse(w, http.StatusConflict, actionResponse{Message: types.MsgNotRunning})
		return
	}
	s.jsonResponse(w, http.StatusOK, actionResponse{Success: true, Message: msgStopAccepted})
}

// articleView is a stored article plus its display summary.
type articleView struct {
	types.StoredArticle
	ShortSummary string `json:"short_summary"`
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	limit := defaultArticleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxArticleLimit)
	}

	articles, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list articles failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "failed to list articles"})
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, articleView{StoredArticle: a, ShortSummary: a.ShortSummary(shortSummaryLength)})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"count":    len(views),
		"articles": views,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.List(r.Context(), 0)
	if err != nil {
		s.logger.Error("list articles failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute stats"})
		return
	}
	s.jsonResponse(w, http.StatusOK, storage.ComputeStats(articles, s.now()))
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}
