package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/mention"
	"github.com/teamlens/teamlens/plugin/ai/semantic"
	"github.com/teamlens/teamlens/plugin/ai/teamctx"
	engineerrors "github.com/teamlens/teamlens/server/internal/errors"
	"github.com/teamlens/teamlens/server/worker"
	"github.com/teamlens/teamlens/store"
)

type mockDataStore struct {
	mu            sync.Mutex
	persons       map[int32]*store.Person
	created       []*store.Message
	embeddings    []*store.MessageEmbedding
	lastContact   map[int32]int64
	transcript    []*store.Message
	transcriptErr error
}

func newMockDataStore() *mockDataStore {
	return &mockDataStore{
		persons:     make(map[int32]*store.Person),
		lastContact: make(map[int32]int64),
	}
}

func (m *mockDataStore) GetPerson(_ context.Context, find *store.FindPerson) (*store.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if find.ID == nil {
		return nil, nil
	}
	return m.persons[*find.ID], nil
}

func (m *mockDataStore) UpdatePerson(_ context.Context, update *store.UpdatePerson) (*store.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if update.LastContactTs != nil {
		m.lastContact[update.ID] = *update.LastContactTs
	}
	return m.persons[update.ID], nil
}

func (m *mockDataStore) ListMessages(_ context.Context, _ *store.FindMessage) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript, m.transcriptErr
}

func (m *mockDataStore) CreateMessage(_ context.Context, create *store.Message) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *create
	cp.ID = int32(len(m.created) + 1)
	m.created = append(m.created, &cp)
	return &cp, nil
}

func (m *mockDataStore) UpsertMessageEmbedding(_ context.Context, upsert *store.MessageEmbedding) (*store.MessageEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings = append(m.embeddings, upsert)
	return upsert, nil
}

type stubBuilder struct {
	ctx *teamctx.ManagementContext
	err error
}

func (s *stubBuilder) BuildContext(_ context.Context, _ int32) (*teamctx.ManagementContext, error) {
	return s.ctx, s.err
}

type stubSearcher struct {
	result *semantic.Result
}

func (s *stubSearcher) Search(_ context.Context, _ int32, _ string, _ *int32) (*semantic.Result, error) {
	return s.result, nil
}

type stubDetector struct {
	mu          sync.Mutex
	people      []mention.DetectedPerson
	delay       time.Duration
	fullCalls   int
	fullRosters [][]string
}

func (s *stubDetector) DetectLocal(_ string, _ []string) []mention.DetectedPerson {
	return s.people
}

func (s *stubDetector) Detect(_ context.Context, _ int32, _ string, existingNames []string) []mention.DetectedPerson {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullCalls++
	s.fullRosters = append(s.fullRosters, existingNames)
	return s.people
}

type stubRecorder struct {
	mu       sync.Mutex
	recorded [][]*store.Message
}

func (s *stubRecorder) RecordFromConversation(_ context.Context, _ int32, messages []*store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, messages)
	return nil
}

func teamContext() *teamctx.ManagementContext {
	return &teamctx.ManagementContext{
		People: []teamctx.PersonSummary{
			{ID: 1, Name: "Sarah", Relationship: store.RelationshipDirectReport},
		},
		TeamSize: teamctx.TeamSize{
			Total:          1,
			ByRelationship: map[store.Relationship]int{store.RelationshipDirectReport: 1},
		},
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc := NewService(Options{Store: newMockDataStore(), Builder: &stubBuilder{ctx: teamContext()}})

	_, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: "   "})
	require.Error(t, err)
	assert.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeInvalidArgument))
}

func TestChatRejectsOversizedMessage(t *testing.T) {
	svc := NewService(Options{Store: newMockDataStore(), Builder: &stubBuilder{ctx: teamContext()}})

	_, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: strings.Repeat("x", maxMessageLen+1)})
	require.Error(t, err)
	assert.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeInvalidArgument))
}

func TestChatHappyPath(t *testing.T) {
	var gotSystem, gotUser string
	completion := &ai.MockCompletionService{
		CompleteFunc: func(_ context.Context, messages []ai.Message) (string, error) {
			for _, m := range messages {
				switch m.Role {
				case "system":
					gotSystem = m.Content
				case "user":
					gotUser = m.Content
				}
			}
			return "Start from her goals.", nil
		},
	}

	svc := NewService(Options{
		Store:      newMockDataStore(),
		Builder:    &stubBuilder{ctx: teamContext()},
		Searcher:   &stubSearcher{result: &semantic.Result{Similar: []semantic.SearchHit{{MessageID: 1, Content: "promo history"}}}},
		Detector:   &stubDetector{people: []mention.DetectedPerson{{Name: "Sarah", Confidence: 0.9}}},
		Completion: completion,
	})

	resp, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: "How should I prep Sarah's review?"})
	require.NoError(t, err)

	assert.Equal(t, "Start from her goals.", resp.Reply)
	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.DetectedPeople, 1)
	assert.Equal(t, "Sarah", resp.DetectedPeople[0].Name)

	assert.Contains(t, gotSystem, "Sarah", "roster flows into the system prompt")
	assert.Contains(t, gotSystem, "promo history", "semantic hits flow into the system prompt")
	assert.Equal(t, "How should I prep Sarah's review?", gotUser)
}

func TestChatCompletionFailure(t *testing.T) {
	completion := &ai.MockCompletionService{
		CompleteFunc: func(_ context.Context, _ []ai.Message) (string, error) {
			return "", errors.New("provider down")
		},
	}
	svc := NewService(Options{Store: newMockDataStore(), Builder: &stubBuilder{ctx: teamContext()}, Completion: completion})

	_, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: "hello there team"})
	require.Error(t, err)
	assert.True(t, engineerrors.IsCode(err, engineerrors.ErrCodeAIUnavailable))
}

func TestChatWithoutProvider(t *testing.T) {
	svc := NewService(Options{Store: newMockDataStore(), Builder: &stubBuilder{ctx: teamContext()}})

	resp, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: "is anyone struggling?"})
	require.NoError(t, err)
	assert.Equal(t, offlineReply, resp.Reply)
}

func TestChatDegradesOnContextFailure(t *testing.T) {
	completion := &ai.MockCompletionService{
		CompleteFunc: func(_ context.Context, _ []ai.Message) (string, error) {
			return "ok", nil
		},
	}
	svc := NewService(Options{
		Store:      newMockDataStore(),
		Builder:    &stubBuilder{err: errors.New("store down")},
		Completion: completion,
	})

	resp, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: "what should I focus on?"})
	require.NoError(t, err, "context failure must not fail the turn")
	assert.Equal(t, "ok", resp.Reply)
}

func TestChatReplyDoesNotWaitForMentionDetection(t *testing.T) {
	pool := worker.NewPool(2, 5*time.Second)
	detector := &stubDetector{delay: time.Second}
	svc := NewService(Options{
		Store:    newMockDataStore(),
		Builder:  &stubBuilder{ctx: teamContext()},
		Detector: detector,
		Pool:     pool,
		Completion: &ai.MockCompletionService{
			CompleteFunc: func(_ context.Context, _ []ai.Message) (string, error) {
				return "quick reply", nil
			},
		},
	})

	started := time.Now()
	resp, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, Message: "how is the team doing this sprint?"})
	elapsed := time.Since(started)
	require.NoError(t, err)
	assert.Equal(t, "quick reply", resp.Reply)
	assert.Less(t, elapsed, 500*time.Millisecond, "reply must not wait for the full detection cascade")

	pool.Close()
	detector.mu.Lock()
	defer detector.mu.Unlock()
	assert.Equal(t, 1, detector.fullCalls, "full cascade runs once in the background")
	require.Len(t, detector.fullRosters, 1)
	assert.Contains(t, detector.fullRosters[0], "Sarah", "background detection receives the roster names")
}

func TestChatBackgroundWork(t *testing.T) {
	st := newMockDataStore()
	sarah := int32(7)
	st.persons[sarah] = &store.Person{ID: sarah, Name: "Sarah", Relationship: store.RelationshipDirectReport}

	pool := worker.NewPool(2, time.Second)
	recorder := &stubRecorder{}
	svc := NewService(Options{
		Store:          st,
		Builder:        &stubBuilder{ctx: teamContext()},
		Recorder:       recorder,
		Embedder:       &ai.MockEmbeddingService{},
		Pool:           pool,
		EmbeddingModel: "text-embedding-3-small",
		Completion: &ai.MockCompletionService{
			CompleteFunc: func(_ context.Context, _ []ai.Message) (string, error) {
				return "noted", nil
			},
		},
	})

	_, err := svc.Chat(context.Background(), &TurnRequest{UserID: 42, PersonID: &sarah, Message: "Sarah crushed the launch"})
	require.NoError(t, err)
	pool.Close()

	st.mu.Lock()
	defer st.mu.Unlock()
	require.Len(t, st.created, 2, "user and assistant turns persisted")
	assert.Equal(t, store.MessageRoleUser, st.created[0].Role)
	assert.Equal(t, store.MessageRoleAssistant, st.created[1].Role)
	assert.Equal(t, &sarah, st.created[0].PersonID)

	require.Len(t, st.embeddings, 1, "user turn embedded inline")
	assert.Equal(t, st.created[0].ID, st.embeddings[0].MessageID)
	assert.Equal(t, "text-embedding-3-small", st.embeddings[0].Model)

	assert.NotZero(t, st.lastContact[sarah], "focus person's last contact bumped")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.recorded, 1)
	assert.Len(t, recorder.recorded[0], 2)
}
