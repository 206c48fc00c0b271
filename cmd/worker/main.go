// Package main is the entry point for the background worker. It drains
// the document ingest queue and runs the nightly retention sweep.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/echo-ai/support-platform/internal/config"
	"github.com/echo-ai/support-platform/internal/embedding"
	"github.com/echo-ai/support-platform/internal/queue"
	"github.com/echo-ai/support-platform/internal/rag"
	"github.com/echo-ai/support-platform/internal/store"
	"github.com/echo-ai/support-platform/internal/vector"
	"github.com/echo-ai/support-platform/pkg/logger"
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

	log.Info("starting worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", zap.Error(err))
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	ingestQueue := queue.NewIngestQueue(redisClient)

	// Retention sweep at 03:00 UTC daily.
	c := cron.New(cron.WithLocation(time.UTC))
	_, err = c.AddFunc("0 3 * * *", func() {
		sweepExpiredMessages(context.Background(), st, log)
	})
	if err != nil {
		log.Error("failed to schedule retention job", zap.Error(err))
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	log.Info("worker ready, draining ingest queue")
	runIngestLoop(ctx, ingestQueue, pipeline, log)

	log.Info("worker stopped")
}

// runIngestLoop blocks on the queue until the context is cancelled. Each
// job is one document; a failed ingest is recorded on the document row,
// so the job is not requeued.
func runIngestLoop(ctx context.Context, q *queue.IngestQueue, pipeline *rag.Pipeline, log *logger.Logger) {
	for {
		job, err := q.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		log.Info("ingesting document",
			zap.String("document_id", job.DocumentID),
			zap.String("tenant_id", job.TenantID),
		)
		if err := pipeline.Ingest(ctx, job.DocumentID); err != nil {
			log.Error("ingest failed",
				zap.String("document_id", job.DocumentID),
				zap.Error(err),
			)
		}
	}
}

// sweepExpiredMessages deletes messages past each tenant's retention
// window. Tenants with no retention configured are skipped.
func sweepExpiredMessages(ctx context.Context, st store.Store, log *logger.Logger) {
	tenants, err := st.ListTenants(ctx)
	if err != nil {
		log.Error("retention sweep: list tenants failed", zap.Error(err))
		return
	}

	for _, tenant := range tenants {
		days := tenant.Settings.RetentionDays
		if days <= 0 {
			continue
		}
		cutoff := time.Now().AddDate(0, 0, -days)
		deleted, err := st.DeleteMessagesBefore(ctx, tenant.ID, cutoff)
		if err != nil {
			log.Error("retention sweep failed",
				zap.String("tenant_id", tenant.ID),
				zap.Error(err),
			)
			continue
		}
		if deleted > 0 {
			log.Info("retention sweep",
				zap.String("tenant_id", tenant.ID),
				zap.Int("deleted", deleted),
			)
		}
	}
}
