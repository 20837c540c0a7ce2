package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/store"
)

type mockMessageStore struct {
	mu       sync.Mutex
	backlog  []*store.Message
	findErr  error
	upserted []*store.MessageEmbedding
}

func (m *mockMessageStore) FindMessagesWithoutEmbedding(_ context.Context, _ *store.FindMessagesWithoutEmbedding) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backlog, m.findErr
}

func (m *mockMessageStore) UpsertMessageEmbedding(_ context.Context, upsert *store.MessageEmbedding) (*store.MessageEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, upsert)
	return upsert, nil
}

func newTestRunner(st MessageStore, embedder ai.EmbeddingService) *Runner {
	r := NewRunner(st, embedder, "text-embedding-3-small")
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	return r
}

func TestRunOnceBackfillsBacklog(t *testing.T) {
	st := &mockMessageStore{
		backlog: []*store.Message{
			{ID: 1, Content: "first"},
			{ID: 2, Content: "second"},
		},
	}
	r := newTestRunner(st, &ai.MockEmbeddingService{})

	r.RunOnce(context.Background())

	require.Len(t, st.upserted, 2)
	assert.Equal(t, int32(1), st.upserted[0].MessageID)
	assert.Equal(t, "text-embedding-3-small", st.upserted[0].Model)
	assert.NotEmpty(t, st.upserted[0].Embedding)
}

func TestRunOnceSkipsWhenBacklogEmpty(t *testing.T) {
	st := &mockMessageStore{}
	r := newTestRunner(st, &ai.MockEmbeddingService{})

	r.RunOnce(context.Background())
	assert.Empty(t, st.upserted)
}

func TestRunOnceContinuesPastEmbedFailures(t *testing.T) {
	st := &mockMessageStore{
		backlog: []*store.Message{
			{ID: 1, Content: "fails"},
			{ID: 2, Content: "works"},
		},
	}
	embedder := &ai.MockEmbeddingService{
		EmbedFunc: func(_ context.Context, text string) ([]float32, error) {
			if text == "fails" {
				return nil, errors.New("provider error")
			}
			return []float32{0.1, 0.2}, nil
		},
	}
	r := newTestRunner(st, embedder)

	r.RunOnce(context.Background())

	require.Len(t, st.upserted, 1)
	assert.Equal(t, int32(2), st.upserted[0].MessageID)
}

func TestRunOncePacesPerBatch(t *testing.T) {
	var backlog []*store.Message
	for i := int32(1); i <= 12; i++ {
		backlog = append(backlog, &store.Message{ID: i, Content: "pending"})
	}
	st := &mockMessageStore{backlog: backlog}
	r := NewRunner(st, &ai.MockEmbeddingService{}, "text-embedding-3-small")
	r.limiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

	started := time.Now()
	r.RunOnce(context.Background())
	elapsed := time.Since(started)

	require.Len(t, st.upserted, 12)
	// 12 messages in batches of 5 take two limiter waits after the initial
	// token. Per-message pacing would take eleven.
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestRunOnceToleratesFindError(t *testing.T) {
	st := &mockMessageStore{findErr: errors.New("db down")}
	r := newTestRunner(st, &ai.MockEmbeddingService{})

	r.RunOnce(context.Background())
	assert.Empty(t, st.upserted)
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	st := &mockMessageStore{
		backlog: []*store.Message{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}},
	}
	r := newTestRunner(st, &ai.MockEmbeddingService{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.RunOnce(ctx)

	assert.Empty(t, st.upserted)
}
