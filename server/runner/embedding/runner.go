// Package embedding backfills vector embeddings for messages that were
// persisted before their embedding was computed, or whose embedding call
// failed at write time.
package embedding

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/store"
)

// MessageStore is the store slice the runner needs.
type MessageStore interface {
	FindMessagesWithoutEmbedding(ctx context.Context, find *store.FindMessagesWithoutEmbedding) ([]*store.Message, error)
	UpsertMessageEmbedding(ctx context.Context, upsert *store.MessageEmbedding) (*store.MessageEmbedding, error)
}

type Runner struct {
	store    MessageStore
	embedder ai.EmbeddingService
	model    string

	interval  time.Duration
	batchSize int
	// limiter paces batches, one per second, so backfill never starves
	// interactive traffic of provider quota.
	limiter *rate.Limiter
}

func NewRunner(messageStore MessageStore, embedder ai.EmbeddingService, model string) *Runner {
	return &Runner{
		store:     messageStore,
		embedder:  embedder,
		model:     model,
		interval:  2 * time.Minute,
		batchSize: 5,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Run loops until the context is cancelled. One pass runs immediately on
// startup so a restart with a backlog catches up without waiting a tick.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes one backlog sweep.
func (r *Runner) RunOnce(ctx context.Context) {
	messages, err := r.store.FindMessagesWithoutEmbedding(ctx, &store.FindMessagesWithoutEmbedding{
		Limit: r.batchSize * 20,
	})
	if err != nil {
		slog.Error("embedding backlog query failed", "err", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	slog.Info("embedding backlog found", "count", len(messages))
	processed := 0
	for start := 0; start < len(messages); start += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("embedding backfill cancelled", "processed", processed, "total", len(messages))
			return
		default:
		}

		// One limiter token per batch, not per message.
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}

		end := start + r.batchSize
		if end > len(messages) {
			end = len(messages)
		}
		for _, m := range messages[start:end] {
			if err := r.process(ctx, m); err != nil {
				slog.Error("embedding backfill failed for message", "messageID", m.ID, "err", err)
				continue
			}
			processed++
		}
	}
	slog.Info("embedding backfill pass done", "processed", processed, "total", len(messages))
}

func (r *Runner) process(ctx context.Context, m *store.Message) error {
	vector, err := r.embedder.Embed(ctx, m.Content)
	if err != nil {
		return err
	}
	_, err = r.store.UpsertMessageEmbedding(ctx, &store.MessageEmbedding{
		MessageID: m.ID,
		Embedding: vector,
		Model:     r.model,
	})
	return err
}
