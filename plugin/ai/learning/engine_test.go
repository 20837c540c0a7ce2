package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/store"
)

type memPatternStore struct {
	mu       sync.Mutex
	nextID   int32
	patterns []*store.Pattern
}

func (m *memPatternStore) CreatePattern(_ context.Context, create *store.Pattern) (*store.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *create
	cp.ID = m.nextID
	m.patterns = append(m.patterns, &cp)
	out := cp
	return &out, nil
}

func (m *memPatternStore) ListPatterns(_ context.Context, find *store.FindPattern) ([]*store.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Pattern
	for _, p := range m.patterns {
		if find.CreatorID != nil && p.CreatorID != *find.CreatorID {
			continue
		}
		if find.Kind != nil && p.Kind != *find.Kind {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPatternStore) UpdatePattern(_ context.Context, update *store.UpdatePattern) (*store.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patterns {
		if p.ID != update.ID {
			continue
		}
		if update.Frequency != nil {
			p.Frequency = *update.Frequency
		}
		if update.Confidence != nil {
			p.Confidence = *update.Confidence
		}
		if update.LastOccurred != nil {
			p.LastOccurred = *update.LastOccurred
		}
		if update.PersonIDs != nil {
			p.PersonIDs = *update.PersonIDs
		}
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("pattern %d not found", update.ID)
}

func conversation(n int) []*store.Message {
	msgs := make([]*store.Message, 0, n)
	for i := 0; i < n; i++ {
		role := store.MessageRoleUser
		if i%2 == 1 {
			role = store.MessageRoleAssistant
		}
		msgs = append(msgs, &store.Message{
			ID:      int32(i + 1),
			Role:    role,
			Content: fmt.Sprintf("message %d about the deadline pressure on the team", i),
		})
	}
	return msgs
}

func candidateCompletion(payload string) *ai.MockCompletionService {
	return &ai.MockCompletionService{
		CompleteJSONFunc: func(_ context.Context, _ []ai.Message, out any) error {
			return json.Unmarshal([]byte(payload), out)
		},
	}
}

func TestRecordSkipsShortConversations(t *testing.T) {
	st := &memPatternStore{}
	engine := NewEngine(st, candidateCompletion(`[{"kind":"topic","description":"anything at all","keywords":["a","b","c"]}]`), DefaultConfig())

	err := engine.RecordFromConversation(context.Background(), 42, conversation(3))
	require.NoError(t, err)
	assert.Empty(t, st.patterns)
}

func TestRecordCreatesPattern(t *testing.T) {
	st := &memPatternStore{}
	engine := NewEngine(st, candidateCompletion(`[{"kind":"challenge","description":"Deadline pressure is mounting","keywords":["deadline","pressure","planning"]}]`), DefaultConfig())

	err := engine.RecordFromConversation(context.Background(), 42, conversation(4))
	require.NoError(t, err)
	require.Len(t, st.patterns, 1)

	p := st.patterns[0]
	assert.NotEmpty(t, p.UID)
	assert.Equal(t, int32(42), p.CreatorID)
	assert.Equal(t, store.PatternKindChallenge, p.Kind)
	assert.Equal(t, int32(1), p.Frequency)
	assert.InDelta(t, 0.5, p.Confidence, 0.001)
	assert.NotZero(t, p.LastOccurred)
}

func TestRecordMergesSimilarPattern(t *testing.T) {
	st := &memPatternStore{}
	ctx := context.Background()

	first := candidateCompletion(`[{"kind":"challenge","description":"Deadline pressure hurting the sprint","keywords":["deadline","pressure","planning","scope","estimation","sprint","velocity","overtime","burnout","capacity"]}]`)
	err := NewEngine(st, first, DefaultConfig()).RecordFromConversation(ctx, 42, conversation(4))
	require.NoError(t, err)
	require.Len(t, st.patterns, 1)
	firstOccurred := st.patterns[0].LastOccurred

	// Seven of ten keywords shared with the stored pattern.
	second := candidateCompletion(`[{"kind":"challenge","description":"Sprint deadlines keep slipping","keywords":["deadline","pressure","planning","scope","estimation","sprint","velocity","retro","slippage","quality"]}]`)
	err = NewEngine(st, second, DefaultConfig()).RecordFromConversation(ctx, 42, conversation(4))
	require.NoError(t, err)

	require.Len(t, st.patterns, 1, "a similar detection must update, not duplicate")
	p := st.patterns[0]
	assert.Equal(t, int32(2), p.Frequency)
	assert.InDelta(t, 0.6, p.Confidence, 0.001)
	assert.GreaterOrEqual(t, p.LastOccurred, firstOccurred)
}

func TestRecordIsIdempotentUnderRepeats(t *testing.T) {
	st := &memPatternStore{}
	engine := NewEngine(st, candidateCompletion(`[{"kind":"topic","description":"Hiring plans for the platform team","keywords":["hiring","headcount","interviews"]}]`), DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, engine.RecordFromConversation(ctx, 42, conversation(4)))
	}

	require.Len(t, st.patterns, 1)
	assert.Equal(t, int32(6), st.patterns[0].Frequency)
	assert.LessOrEqual(t, st.patterns[0].Confidence, 1.0)
}

func TestRecordDoesNotMergeAcrossKinds(t *testing.T) {
	st := &memPatternStore{}
	ctx := context.Background()

	topic := candidateCompletion(`[{"kind":"topic","description":"Deadline talk keeps recurring","keywords":["deadline","pressure","planning"]}]`)
	require.NoError(t, NewEngine(st, topic, DefaultConfig()).RecordFromConversation(ctx, 42, conversation(4)))

	challenge := candidateCompletion(`[{"kind":"challenge","description":"Deadline pressure is a real problem","keywords":["deadline","pressure","planning"]}]`)
	require.NoError(t, NewEngine(st, challenge, DefaultConfig()).RecordFromConversation(ctx, 42, conversation(4)))

	assert.Len(t, st.patterns, 2)
}

func TestRecordHeuristicFallback(t *testing.T) {
	st := &memPatternStore{}
	engine := NewEngine(st, nil, DefaultConfig())

	err := engine.RecordFromConversation(context.Background(), 42, conversation(4))
	require.NoError(t, err)
	require.NotEmpty(t, st.patterns, "keyword fallback should still extract from a deadline-heavy conversation")
	for _, p := range st.patterns {
		assert.NotEmpty(t, p.Keywords)
	}
}

func TestKeywordSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, keywordSimilarity([]string{"a", "b"}, []string{"B", "A"}), 0.001)
	assert.InDelta(t, 0.5, keywordSimilarity([]string{"a", "b", "c", "d"}, []string{"a", "b"}), 0.001)
	assert.Zero(t, keywordSimilarity(nil, []string{"a"}))
	assert.Zero(t, keywordSimilarity([]string{"a"}, []string{"b"}))
}

func TestGetInsights(t *testing.T) {
	st := &memPatternStore{
		patterns: []*store.Pattern{
			{ID: 1, UID: "rare", CreatorID: 42, Kind: store.PatternKindTopic, Description: "Mentioned once", Frequency: 1, Confidence: 0.5},
			{ID: 2, UID: "frequent", CreatorID: 42, Kind: store.PatternKindChallenge, Description: "Deadline pressure", Frequency: 4, Confidence: 0.8},
			{ID: 3, UID: "other-user", CreatorID: 7, Kind: store.PatternKindChallenge, Description: "Not yours", Frequency: 9, Confidence: 0.9},
		},
	}

	t.Run("template fallback without completion", func(t *testing.T) {
		insights, err := NewEngine(st, nil, DefaultConfig()).GetInsights(context.Background(), 42)
		require.NoError(t, err)
		require.Len(t, insights, 1, "only the frequent pattern of this user qualifies")
		assert.Equal(t, "frequent", insights[0].PatternUID)
		assert.NotEmpty(t, insights[0].Insight)
		assert.NotEmpty(t, insights[0].Suggestions)
		assert.InDelta(t, 0.8, insights[0].Relevance, 0.001)
	})

	t.Run("AI composition", func(t *testing.T) {
		completion := candidateCompletion(`{"insight":"You are absorbing deadline pressure instead of renegotiating scope.","suggestions":["Renegotiate scope","Flag the risk early","Protect focus time","Extra one"],"relevance":0.9}`)
		insights, err := NewEngine(st, completion, DefaultConfig()).GetInsights(context.Background(), 42)
		require.NoError(t, err)
		require.Len(t, insights, 1)
		assert.Contains(t, insights[0].Insight, "deadline pressure")
		assert.Len(t, insights[0].Suggestions, 3, "suggestions are capped")
		assert.InDelta(t, 0.9, insights[0].Relevance, 0.001)
	})
}
