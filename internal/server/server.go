package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teachmate/teachmate/config"
	"github.com/teachmate/teachmate/internal/chat"
	"github.com/teachmate/teachmate/internal/curriculum"
	"github.com/teachmate/teachmate/internal/index"
	"github.com/teachmate/teachmate/internal/ingest"
	"github.com/teachmate/teachmate/internal/session"
	"github.com/teachmate/teachmate/internal/session/inmemory"
	redis_session "github.com/teachmate/teachmate/internal/session/redis"
	"github.com/teachmate/teachmate/provider"
	"github.com/teachmate/teachmate/tools/websearch"
)

func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		if code == http.StatusInternalServerError {
			// upstream details stay in the server log
			msg = "internal error"
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-API-Key"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if cfg.General.APIKeyEnforced {
		e.Use(apiKeyMiddleware(cfg.General.APIKey))
	}

	// Shared dependencies (top-level DI)
	ctx := context.Background()

	llm, err := provider.NewProvider(provider.Client(cfg.Providers.Default), provider.Options{
		APIKey:          cfg.Providers.OpenAI.APIKey,
		CompletionModel: cfg.Providers.OpenAI.CompletionModel,
		EmbeddingModel:  cfg.Providers.OpenAI.EmbeddingModel,
		VisionModel:     cfg.Providers.OpenAI.VisionModel,
		Temperature:     cfg.Providers.OpenAI.Temperature,
		MaxTokens:       cfg.Providers.OpenAI.MaxTokens,
		Timeout:         cfg.Providers.OpenAI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("llm provider (providers.default=%s): %w", cfg.Providers.Default, err)
	}

	var searcher websearch.WebSearcher
	if cfg.Search.APIKey != "" {
		var err error
		searcher, err = websearch.NewWebSearcher(websearch.Provider(cfg.Search.Provider), cfg.Search.APIKey, cfg.Search.Timeout)
		if err != nil {
			return fmt.Errorf("search provider: %w", err)
		}
	} else {
		log.Printf("search.api_key not set, web search disabled")
	}

	var store session.Store
	var curStore curriculum.Store
	switch cfg.Sessions.Store {
	case "inmemory":
		store = inmemory.NewStore()
		curStore = curriculum.NewInMemoryStore()
	case "redis", "":
		rdb, err := redis_session.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		store = redis_session.NewStore(rdb)
		curStore = curriculum.NewRedisStore(rdb)
	default:
		return fmt.Errorf("unsupported sessions.store: %s", cfg.Sessions.Store)
	}

	var factory index.Factory
	switch cfg.Vector.Provider {
	case "memory":
		factory = index.MemoryFactory()
	case "pinecone":
		factory = index.PineconeFactory(cfg.Vector.Pinecone.Host, cfg.Vector.Pinecone.APIKey, cfg.Vector.Pinecone.Timeout)
	case "":
		log.Printf("vector.provider not set, document retrieval disabled")
	}
	indexMgr := index.NewManager(llm, factory, nil)
	gate := index.RelevanceGate{Threshold: cfg.Vector.SimilarityThreshold, TopK: cfg.Vector.TopK}

	ingestor := ingest.NewIngestor(llm, indexMgr, cfg.Ingest.MaxUploadBytes, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, nil)
	locker := session.NewLocker()

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := chat.NewOrchestrator(
		store, locker, indexMgr, gate, searcher, ingestor,
		chat.NewRewriter(llm, nil), chat.NewIntentDetector(llm, nil), chat.NewComposer(llm, nil),
		cfg.Search.MaxResults, cfg.Sessions.TurnTimeout, orchLogger,
	)

	curSvc := curriculum.NewService(llm, searcher, curStore, nil)

	sh := &SessionsHandler{Store: store, Locker: locker, Index: indexMgr}
	sh.Register(e.Group("/sessions"))
	e.GET("/sources/:id", sh.sources)

	ih := &IngestHandler{Store: store, Locker: locker, Ingestor: ingestor}
	ih.Register(e.Group("/process"))

	ch := &ChatHandler{Orch: orch}
	ch.Register(e.Group("/chat"))

	cu := &CurriculaHandler{Service: curSvc, Store: curStore}
	cu.Register(e.Group("/curricula"))

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// apiKeyMiddleware rejects requests without the configured key. Health
// and metrics stay open for probes and scrapers.
func apiKeyMiddleware(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == "/healthz" || path == "/metrics" {
				return next(c)
			}
			if c.Request().Header.Get("X-API-Key") != key {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			return next(c)
		}
	}
}
