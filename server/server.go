// Package server assembles the engine: store, AI provider, intelligence
// services, background runners, and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/teamlens/teamlens/internal/profile"
	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/cache"
	"github.com/teamlens/teamlens/plugin/ai/insight"
	"github.com/teamlens/teamlens/plugin/ai/learning"
	"github.com/teamlens/teamlens/plugin/ai/mention"
	"github.com/teamlens/teamlens/plugin/ai/prompt"
	"github.com/teamlens/teamlens/plugin/ai/semantic"
	"github.com/teamlens/teamlens/plugin/ai/teamctx"
	serverai "github.com/teamlens/teamlens/server/ai"
	apiv1 "github.com/teamlens/teamlens/server/router/api/v1"
	"github.com/teamlens/teamlens/server/runner/embedding"
	"github.com/teamlens/teamlens/server/service/chat"
	"github.com/teamlens/teamlens/server/worker"
	"github.com/teamlens/teamlens/store"
)

type Server struct {
	profile *profile.Profile
	store   *store.Store

	echo  *echo.Echo
	cache *cache.Service
	pool  *worker.Pool

	embeddingRunner *embedding.Runner
	runnerCancel    context.CancelFunc
}

func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	cacheService := cache.NewService(cache.DefaultServiceConfig())
	pool := worker.NewPool(4, 30*time.Second)

	var completion ai.CompletionService
	var embedder ai.EmbeddingService
	if p.IsAIEnabled() {
		provider, err := serverai.NewProvider(serverai.NewConfigFromProfile(p))
		if err != nil {
			return nil, fmt.Errorf("create AI provider: %w", err)
		}
		completion = provider
		embedder = provider
	} else {
		slog.Warn("AI provider not configured, engine runs in degraded mode")
	}

	searcher := semantic.NewSearcher(st, embedder, completion, cacheService, semantic.DefaultConfig())
	builder := teamctx.NewBuilder(st, cacheService, teamctx.DefaultConfig())
	detector := mention.NewDetector(completion, cacheService, mention.DefaultConfig())
	recorder := learning.NewEngine(st, completion, learning.DefaultConfig())
	generator := insight.NewGenerator(st, recorder, completion, insight.DefaultConfig())

	var searcherIface chat.SemanticSearcher
	if embedder != nil {
		searcherIface = searcher
	}
	chatService := chat.NewService(chat.Options{
		Store:          st,
		Builder:        builder,
		Searcher:       searcherIface,
		Detector:       detector,
		Recorder:       recorder,
		Completion:     completion,
		Embedder:       embedder,
		Pool:           pool,
		EmbeddingModel: p.AIEmbeddingModel,
		Assembler:      prompt.NewAssembler(prompt.DefaultConfig()),
	})

	s := &Server{
		profile: p,
		store:   st,
		echo:    e,
		cache:   cacheService,
		pool:    pool,
	}
	if embedder != nil {
		s.embeddingRunner = embedding.NewRunner(st, embedder, p.AIEmbeddingModel)
	}

	apiService := apiv1.NewAPIV1Service(p, st, chatService, generator)
	apiService.RegisterRoutes(e)

	return s, nil
}

// Start begins serving and launches the background runners.
func (s *Server) Start(ctx context.Context) error {
	if s.embeddingRunner != nil {
		runnerCtx, cancel := context.WithCancel(ctx)
		s.runnerCancel = cancel
		go s.embeddingRunner.Run(runnerCtx)
	}

	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server listening", "addr", addr, "mode", s.profile.Mode)
	return s.echo.Start(addr)
}

// Shutdown stops the HTTP surface, drains background work, and closes the
// store.
func (s *Server) Shutdown(ctx context.Context) {
	if s.runnerCancel != nil {
		s.runnerCancel()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "err", err)
	}

	s.pool.Close()
	s.cache.Close()

	if err := s.store.Close(); err != nil {
		slog.Error("store close failed", "err", err)
	}
	slog.Info("server stopped")
}
