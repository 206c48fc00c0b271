package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-ai/support-platform/internal/model"
)

func seedSession(t *testing.T, s *MemoryStore, id string) *model.Session {
	t.Helper()
	session := &model.Session{
		ID:       id,
		TenantID: "tenant-1",
		Status:   model.SessionActive,
	}
	require.NoError(t, s.CreateSession(context.Background(), session))
	return session
}

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedSession(t, s, "sess-1")

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, got.Status)

	status := model.SessionEscalated
	agent := "agent-1"
	require.NoError(t, s.PatchSession(ctx, "sess-1", model.SessionPatch{
		Status:          &status,
		AssignedAgentID: &agent,
	}))

	got, err = s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionEscalated, got.Status)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, "agent-1", *got.AssignedAgentID)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListMessagesWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedSession(t, s, "sess-1")

	base := time.Now()
	for i, content := range []string{"first", "second", "third", "fourth"} {
		require.NoError(t, s.AppendMessage(ctx, &model.Message{
			ID:        content,
			SessionID: "sess-1",
			Role:      model.RoleUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	// A limited window keeps the most recent messages in chronological
	// order.
	msgs, err := s.ListMessages(ctx, "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "third", msgs[0].Content)
	assert.Equal(t, "fourth", msgs[1].Content)

	all, err := s.ListMessages(ctx, "sess-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	count, err := s.CountMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMemoryStoreRecordUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	delta := model.UsageDelta{
		TenantID:         "tenant-1",
		Date:             "2026-08-31",
		Provider:         "openai",
		Model:            "gpt-4o",
		PromptTokens:     10,
		CompletionTokens: 5,
		Cost:             0.001,
	}

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = s.RecordUsage(ctx, delta)
		}()
	}
	wg.Wait()

	records, err := s.ListUsageSince(ctx, "tenant-1", "2026-08-01")
	require.NoError(t, err)
	require.Len(t, records, 1, "same key must collapse into one record")

	rec := records[0]
	assert.Equal(t, writers*10, rec.PromptTokens)
	assert.Equal(t, writers*5, rec.CompletionTokens)
	assert.Equal(t, writers*15, rec.TotalTokens)
	assert.Equal(t, writers, rec.RequestCount)
	assert.InDelta(t, writers*0.001, rec.EstimatedCost, 1e-9)
}

func TestMemoryStoreListUsageSinceFiltersByDate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, date := range []string{"2026-07-01", "2026-08-15", "2026-08-30"} {
		require.NoError(t, s.RecordUsage(ctx, model.UsageDelta{
			TenantID: "tenant-1",
			Date:     date,
			Provider: "openai",
			Model:    "gpt-4o",
		}))
	}

	records, err := s.ListUsageSince(ctx, "tenant-1", "2026-08-01")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-08-15", records[0].Date)
	assert.Equal(t, "2026-08-30", records[1].Date)
}

func TestMemoryStoreDeleteMessagesBefore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedSession(t, s, "sess-1")

	now := time.Now()
	require.NoError(t, s.AppendMessage(ctx, &model.Message{
		ID: "old", SessionID: "sess-1", Role: model.RoleUser,
		Content: "old", CreatedAt: now.AddDate(0, 0, -40),
	}))
	require.NoError(t, s.AppendMessage(ctx, &model.Message{
		ID: "fresh", SessionID: "sess-1", Role: model.RoleUser,
		Content: "fresh", CreatedAt: now,
	}))

	deleted, err := s.DeleteMessagesBefore(ctx, "tenant-1", now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	remaining, err := s.ListMessages(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].Content)
}
