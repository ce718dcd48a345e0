// Package server provides the HTTP API for TalentMatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/talentmatch/talentmatch/internal/analytics"
	"github.com/talentmatch/talentmatch/internal/config"
	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/extract"
	"github.com/talentmatch/talentmatch/internal/profile"
	"github.com/talentmatch/talentmatch/internal/storage"
)

// Server is the HTTP server for the TalentMatch API.
type Server struct {
	engine    *engine.Engine
	storage   storage.Storage
	reporter  *analytics.Reporter
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
	extractor *extract.Extractor
	parser    *profile.Parser

	// configPath, when set, is where admin parameter changes are persisted.
	configPath string
	configMu   sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithConfigPath enables persisting admin parameter changes back to the
// config file at path.
func WithConfigPath(path string) Option {
	return func(s *Server) { s.configPath = path }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	eng *engine.Engine,
	store storage.Storage,
	reporter *analytics.Reporter,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		engine:    eng,
		storage:   store,
		reporter:  reporter,
		config:    cfg,
		logger:    logger,
		extractor: extract.NewExtractor(),
		parser:    profile.NewParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/candidates", s.handleUpsertCandidate)
		r.Post("/candidates/upload", s.handleUploadCandidate)
		r.Get("/candidates", s.handleListCandidates)
		r.Get("/candidates/{id}", s.handleGetCandidate)
		r.Delete("/candidates/{id}", s.handleDeleteCandidate)
		r.Get("/candidates/{id}/summary", s.handleCandidateSummary)
		r.Get("/candidates/{id}/recommendations", s.handleCandidateRecommendations)

		r.Post("/postings", s.handleUpsertPosting)
		r.Get("/postings", s.handleListPostings)
		r.Get("/postings/{id}", s.handleGetPosting)
		r.Delete("/postings/{id}", s.handleDeletePosting)

		r.Post("/match", s.handleMatch)
		r.Post("/match/search", s.handleSearch)
		r.Post("/match/score", s.handlePairwiseScore)

		r.Post("/reindex", s.handleReindex)
		r.Post("/snapshots/save", s.handleSaveSnapshots)
		r.Post("/snapshots/load", s.handleLoadSnapshots)

		r.Get("/statistics", s.handleStatistics)
		r.Get("/status", s.handleStatus)
		r.Get("/analytics/report", s.handleAnalyticsReport)

		r.Get("/admin/parameters", s.handleGetParameters)
		r.Put("/admin/parameters", s.handlePutParameters)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
