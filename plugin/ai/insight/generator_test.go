package insight

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/learning"
	"github.com/teamlens/teamlens/store"
)

type mockDataStore struct {
	persons     []*store.Person
	personsErr  error
	messages    []*store.Message
	messagesErr error
}

func (m *mockDataStore) ListPersons(_ context.Context, _ *store.FindPerson) ([]*store.Person, error) {
	return m.persons, m.personsErr
}

func (m *mockDataStore) ListMessages(_ context.Context, find *store.FindMessage) ([]*store.Message, error) {
	if m.messagesErr != nil {
		return nil, m.messagesErr
	}
	var out []*store.Message
	for _, msg := range m.messages {
		if find.Role != nil && msg.Role != *find.Role {
			continue
		}
		if find.CreatedAfter != nil && msg.CreatedTs < *find.CreatedAfter {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

type mockPatternInsights struct {
	insights []learning.Insight
	err      error
}

func (m *mockPatternInsights) GetInsights(_ context.Context, _ int32) ([]learning.Insight, error) {
	return m.insights, m.err
}

func daysAgo(d int) int64 {
	return time.Now().Add(-time.Duration(d) * 24 * time.Hour).Unix()
}

func TestConversationStarters(t *testing.T) {
	st := &mockDataStore{
		persons: []*store.Person{
			{ID: 1, Name: "Sarah", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(20)},
			{ID: 2, Name: "Alex", Relationship: store.RelationshipPeer, LastContactTs: daysAgo(8)},
			{ID: 3, Name: "Kim", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
			{ID: 4, Name: "Never", Relationship: store.RelationshipStakeholder, LastContactTs: 0},
		},
	}
	g := NewGenerator(st, nil, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	var starters []ProactiveInsight
	for _, in := range insights {
		if in.Kind == KindConversationStarter {
			starters = append(starters, in)
		}
	}
	require.Len(t, starters, 3, "three contacts are stale, one is fresh")
	for _, s := range starters {
		assert.NotNil(t, s.PersonID)
		assert.NotEqual(t, int32(3), *s.PersonID, "recently contacted person must not get a starter")
		assert.NotEmpty(t, s.ID)
		assert.Greater(t, s.ExpiresTs, s.CreatedTs)
	}
	// 20 days without contact is past twice the threshold.
	assert.Equal(t, PriorityHigh, starters[0].Priority)
}

func TestStartersCapped(t *testing.T) {
	var persons []*store.Person
	for i := int32(1); i <= 6; i++ {
		persons = append(persons, &store.Person{ID: i, Name: "P", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(30)})
	}
	g := NewGenerator(&mockDataStore{persons: persons}, nil, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	starters := 0
	for _, in := range insights {
		if in.Kind == KindConversationStarter {
			starters++
		}
	}
	assert.Equal(t, 3, starters)
}

func TestFollowUps(t *testing.T) {
	sarah := int32(1)
	st := &mockDataStore{
		messages: []*store.Message{
			{ID: 1, Role: store.MessageRoleAssistant, PersonID: &sarah, CreatedTs: daysAgo(1), Content: "I suggest you follow up with Sarah about the promotion case."},
			{ID: 2, Role: store.MessageRoleAssistant, PersonID: &sarah, CreatedTs: daysAgo(1), Content: "You should follow up on that as well."},
			{ID: 3, Role: store.MessageRoleAssistant, CreatedTs: daysAgo(1), Content: "Sounds like a solid plan overall."},
			{ID: 4, Role: store.MessageRoleUser, CreatedTs: daysAgo(1), Content: "I will follow up myself."},
		},
	}
	g := NewGenerator(st, nil, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	var followUps []ProactiveInsight
	for _, in := range insights {
		if in.Kind == KindFollowUp {
			followUps = append(followUps, in)
		}
	}
	require.Len(t, followUps, 1, "commitments about the same person collapse to one follow-up")
	assert.Equal(t, sarah, *followUps[0].PersonID)
}

func TestPatternAlerts(t *testing.T) {
	patterns := &mockPatternInsights{
		insights: []learning.Insight{
			{PatternUID: "p1", Description: "Deadline pressure", Insight: "You absorb deadline pressure instead of renegotiating.", Suggestions: []string{"Renegotiate scope"}, Relevance: 0.9},
		},
	}
	g := NewGenerator(&mockDataStore{}, patterns, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, KindPatternAlert, insights[0].Kind)
	assert.Equal(t, PriorityHigh, insights[0].Priority)
	assert.Equal(t, []string{"Renegotiate scope"}, insights[0].Steps)
}

func TestSourcesDegradeIndependently(t *testing.T) {
	st := &mockDataStore{
		personsErr:  errors.New("roster down"),
		messagesErr: errors.New("messages down"),
	}
	patterns := &mockPatternInsights{
		insights: []learning.Insight{{PatternUID: "p1", Description: "d", Insight: "i", Relevance: 0.5}},
	}
	g := NewGenerator(st, patterns, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err, "source failures must not fail generation")
	require.Len(t, insights, 1)
	assert.Equal(t, KindPatternAlert, insights[0].Kind)
}

func TestTeamWideConcentration(t *testing.T) {
	sarah, alex := int32(1), int32(2)
	messages := []*store.Message{}
	for i := 0; i < 8; i++ {
		messages = append(messages, &store.Message{ID: int32(i), Role: store.MessageRoleUser, PersonID: &sarah, CreatedTs: daysAgo(1), Content: "about sarah"})
	}
	messages = append(messages, &store.Message{ID: 99, Role: store.MessageRoleUser, PersonID: &alex, CreatedTs: daysAgo(1), Content: "about alex"})

	st := &mockDataStore{
		persons: []*store.Person{
			{ID: sarah, Name: "Sarah", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
			{ID: alex, Name: "Alex", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
		},
		messages: messages,
	}
	g := NewGenerator(st, nil, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	found := false
	for _, in := range insights {
		if in.Kind == KindPreventiveAction {
			found = true
			assert.Equal(t, sarah, *in.PersonID)
			assert.Contains(t, in.Description, "Sarah")
		}
	}
	assert.True(t, found, "expected a concentration warning")
}

func TestTeamWideFiresOnOrdinaryRoster(t *testing.T) {
	st := &mockDataStore{
		persons: []*store.Person{
			{ID: 1, Name: "Sarah", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
			{ID: 2, Name: "Alex", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
		},
	}
	g := NewGenerator(st, nil, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	found := false
	for _, in := range insights {
		if in.Kind == KindTeamInsight {
			found = true
		}
	}
	assert.True(t, found, "a two-person roster gets a team-wide insight even without message history")
}

func TestTeamWideAIComposed(t *testing.T) {
	sarah := int32(1)
	st := &mockDataStore{
		persons: []*store.Person{
			{ID: sarah, Name: "Sarah", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
			{ID: 2, Name: "Alex", Relationship: store.RelationshipPeer, LastContactTs: daysAgo(1)},
		},
		messages: []*store.Message{
			{ID: 1, Role: store.MessageRoleUser, PersonID: &sarah, CreatedTs: daysAgo(1), Content: "about sarah"},
		},
	}
	completion := &ai.MockCompletionService{
		CompleteJSONFunc: func(_ context.Context, _ []ai.Message, out any) error {
			return json.Unmarshal([]byte(`[
				{"category": "communication_gap", "observation": "Alex rarely comes up.", "suggestion": "Schedule time with Alex", "priority": "medium", "relevance": 0.8},
				{"category": "made_up", "observation": "ignored"},
				{"category": "risk_area", "observation": "Workload skews toward Sarah.", "priority": "bogus", "relevance": 1.5}
			]`), out)
		},
	}
	g := NewGenerator(st, nil, completion, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	var teamInsights []ProactiveInsight
	for _, in := range insights {
		if in.Kind == KindTeamInsight {
			teamInsights = append(teamInsights, in)
		}
	}
	require.Len(t, teamInsights, 2, "unknown categories are dropped")
	assert.Equal(t, "Communication gap", teamInsights[0].Title)
	assert.Equal(t, []string{"Schedule time with Alex"}, teamInsights[0].Steps)
	assert.Equal(t, "Risk area", teamInsights[1].Title)
	assert.Equal(t, PriorityMedium, teamInsights[1].Priority, "invalid priority falls back to medium")
	assert.LessOrEqual(t, teamInsights[1].Relevance, 1.0)
}

func TestTeamWideAIFailureUsesTemplate(t *testing.T) {
	st := &mockDataStore{
		persons: []*store.Person{
			{ID: 1, Name: "Sarah", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
			{ID: 2, Name: "Alex", Relationship: store.RelationshipDirectReport, LastContactTs: daysAgo(1)},
		},
	}
	completion := &ai.MockCompletionService{
		CompleteJSONFunc: func(_ context.Context, _ []ai.Message, _ any) error {
			return errors.New("model unavailable")
		},
	}
	g := NewGenerator(st, nil, completion, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)

	found := false
	for _, in := range insights {
		if in.Kind == KindTeamInsight {
			found = true
		}
	}
	assert.True(t, found, "AI failure degrades to the template pass")
}

func TestGenerateRankedAndCapped(t *testing.T) {
	var manyInsights []learning.Insight
	for i := 0; i < 12; i++ {
		manyInsights = append(manyInsights, learning.Insight{
			PatternUID: "p", Description: "d", Insight: "i", Relevance: 0.5,
		})
	}
	patterns := &mockPatternInsights{insights: manyInsights}
	g := NewGenerator(&mockDataStore{}, patterns, nil, DefaultConfig())

	insights, err := g.Generate(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, insights, 10)

	for i := 1; i < len(insights); i++ {
		prev := priorityWeight(insights[i-1].Priority) * insights[i-1].Relevance
		cur := priorityWeight(insights[i].Priority) * insights[i].Relevance
		assert.GreaterOrEqual(t, prev, cur)
	}
}
