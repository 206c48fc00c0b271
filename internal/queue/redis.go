// Package queue provides the Redis-backed ingest job queue that decouples
// document registration from the indexing pipeline.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IngestKey is the Redis list holding pending ingest jobs.
const IngestKey = "echo:ingest"

// ErrEmpty is returned by Dequeue when no job arrived within the wait
// window.
var ErrEmpty = errors.New("queue: empty")

// IngestJob is one document indexing request.
type IngestJob struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// IngestQueue is a Redis list used as a FIFO work queue. Producers LPUSH,
// the worker BRPOPs, so jobs drain oldest-first.
type IngestQueue struct {
	client *redis.Client
}

func NewIngestQueue(client *redis.Client) *IngestQueue {
	return &IngestQueue{client: client}
}

// Enqueue pushes an ingest job for the worker to pick up.
func (q *IngestQueue) Enqueue(ctx context.Context, job IngestJob) error {
	if job.EnqueuedAt == 0 {
		job.EnqueuedAt = time.Now().Unix()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job: %w", err)
	}
	if err := q.client.LPush(ctx, IngestKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue ingest job: %w", err)
	}
	return nil
}

// Dequeue blocks for up to wait and returns the oldest pending job, or
// ErrEmpty when the wait elapses with nothing queued.
func (q *IngestQueue) Dequeue(ctx context.Context, wait time.Duration) (*IngestJob, error) {
	vals, err := q.client.BRPop(ctx, wait, IngestKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("dequeue ingest job: %w", err)
	}
	// BRPop returns [key, value].
	if len(vals) != 2 {
		return nil, fmt.Errorf("dequeue ingest job: unexpected reply length %d", len(vals))
	}

	var job IngestJob
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("decode ingest job: %w", err)
	}
	return &job, nil
}

// Depth returns the number of pending jobs.
func (q *IngestQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, IngestKey).Result()
}
