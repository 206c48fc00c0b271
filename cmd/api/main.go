// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/config"
	"github.com/echo-ai/support-platform/internal/embedding"
	"github.com/echo-ai/support-platform/internal/handler"
	"github.com/echo-ai/support-platform/internal/llm"
	"github.com/echo-ai/support-platform/internal/middleware"
	"github.com/echo-ai/support-platform/internal/notify"
	"github.com/echo-ai/support-platform/internal/queue"
	"github.com/echo-ai/support-platform/internal/rag"
	"github.com/echo-ai/support-platform/internal/service"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/internal/vector"
	"github.com/echo-ai/support-platform/pkg/logger"
	"github.com/echo-ai/support-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Record store. Supabase in production, in-memory for local dev
	// when no project is configured.
	var st store.Store
	if cfg.SupabaseURL != "" {
		st, err = store.NewSupabaseStore(store.SupabaseConfig{
			URL:    cfg.SupabaseURL,
			APIKey: cfg.SupabaseAPIKey,
		})
		if err != nil {
			log.Error("failed to create record store", zap.Error(err))
			os.Exit(1)
		}
	} else {
		log.Warn("SUPABASE_URL not set, using in-memory store")
		st = store.NewMemoryStore()
	}

	// Vector index and retrieval pipeline.
	embedder := embedding.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	index, err := vector.NewIndex(vector.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Dims:       embedding.Dimensions,
	}, embedder, log)
	if err != nil {
		log.Error("failed to connect to vector store", zap.Error(err))
		os.Exit(1)
	}
	defer index.Close()

	if err := index.EnsureCollection(ctx); err != nil {
		log.Error("failed to ensure vector collection", zap.Error(err))
		os.Exit(1)
	}

	pipeline := rag.NewPipeline(st, embedder, index, rag.Options{
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		TopK:           cfg.TopK,
		ScoreThreshold: cfg.ScoreThreshold,
	}, log)

	// Escalation notifications ride on NATS JetStream. The platform
	// stays up without it; escalations still persist, only the push
	// notification is lost.
	var notifier notify.Notifier = notify.NoopNotifier{}
	var natsClient *notify.Client
	natsClient, err = notify.Connect(notify.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Warn("NATS unavailable, escalation notifications disabled", zap.Error(err))
		natsClient = nil
	} else {
		defer natsClient.Close()
		n := notify.NewNATSNotifier(natsClient, log)
		if err := n.EnsureStream(ctx); err != nil {
			log.Warn("failed to ensure escalations stream", zap.Error(err))
		} else {
			notifier = n
		}
	}

	// Ingest queue.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", zap.Error(err))
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	ingestQueue := queue.NewIngestQueue(redisClient)

	// Model adapter.
	adapter := llm.NewAdapter(llm.APIKeys{
		OpenAI:    cfg.OpenAIAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		Gemini:    cfg.GeminiAPIKey,
		Grok:      cfg.GrokAPIKey,
	}, llm.DefaultPricing(), log)

	// Services.
	orchestrator := service.NewOrchestrator(st, pipeline, adapter, notifier, service.Options{
		ContextWindow: cfg.ContextWindow,
		ModelTimeout:  cfg.ModelTimeout,
	}, log)
	sessionSvc := service.NewSessionService(st, log)
	documentSvc := service.NewDocumentService(st, ingestQueue, pipeline, log)

	// Handlers.
	healthHandler := handler.NewHealthHandler(natsClient)
	sessionHandler := handler.NewSessionHandler(sessionSvc, orchestrator, log)
	documentHandler := handler.NewDocumentHandler(documentSvc, log)
	usageHandler := handler.NewUsageHandler(sessionSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Get("/messages", sessionHandler.Messages)
				r.Post("/messages", sessionHandler.Send)
				r.Post("/escalate", sessionHandler.Escalate)
				r.Post("/close", sessionHandler.Close)
				r.Put("/sentiment", sessionHandler.Sentiment)
			})
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentHandler.Create)
			r.Get("/", documentHandler.List)
			r.With(middleware.RequireScope("admin")).Post("/reindex", documentHandler.Reindex)
			r.Get("/{id}", documentHandler.Get)
		})

		r.Get("/usage", usageHandler.Get)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
