package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamlens/teamlens/plugin/ai/semantic"
	"github.com/teamlens/teamlens/plugin/ai/teamctx"
	"github.com/teamlens/teamlens/store"
)

func sampleContext() *teamctx.ManagementContext {
	return &teamctx.ManagementContext{
		People: []teamctx.PersonSummary{
			{ID: 1, Name: "Sarah", Role: "Engineer", Relationship: store.RelationshipDirectReport, RecentThemes: []string{"performance"}},
			{ID: 2, Name: "Alex", Role: "PM", Relationship: store.RelationshipPeer},
		},
		TeamSize: teamctx.TeamSize{
			Total: 2,
			ByRelationship: map[store.Relationship]int{
				store.RelationshipDirectReport: 1,
				store.RelationshipPeer:         1,
			},
		},
		RecentThemes: []teamctx.ConversationTheme{
			{Theme: "performance", Frequency: 4},
			{Theme: "deadline", Frequency: 2},
		},
		CurrentChallenges: []string{"Team Communication"},
		Patterns: teamctx.ConversationPatterns{
			MostDiscussed: []teamctx.PersonMentions{{PersonID: 1, Name: "Sarah", Count: 5}},
		},
	}
}

func TestAssembleGeneral(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{Context: sampleContext()})

	assert.Contains(t, out, "coaching assistant")
	assert.Contains(t, out, "2 people recorded")
	assert.Contains(t, out, "1 direct report")
	assert.Contains(t, out, "- Sarah, Engineer (direct report) recently: performance")
	assert.Contains(t, out, "performance (4x)")
	assert.Contains(t, out, "Team Communication")
	assert.Contains(t, out, "Sarah discussed 5 times recently")
	assert.NotContains(t, out, "Person in focus")
}

func TestAssemblePersonFocused(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{
		Context: sampleContext(),
		Focus:   &store.Person{ID: 1, Name: "Sarah", Role: "Engineer", Relationship: store.RelationshipDirectReport},
	})

	assert.Contains(t, out, "about one specific person")
	assert.Contains(t, out, "## Person in focus")
	assert.Contains(t, out, "Sarah, Engineer (direct report)")
}

func TestAssembleSelfReflection(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{
		Context: sampleContext(),
		Focus:   &store.Person{ID: 9, Name: "Me", Relationship: store.RelationshipSelf},
	})

	assert.Contains(t, out, "self-reflection")
	assert.NotContains(t, out, "## Person in focus", "self chats do not pin a person section")
}

func TestAssembleEmptyTeam(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{Context: &teamctx.ManagementContext{}})

	assert.Contains(t, out, "no team members recorded yet")
	assert.Contains(t, out, "Do not invent people")
	assert.NotContains(t, out, "people recorded")
}

func TestAssembleNilContext(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{})
	assert.Contains(t, out, "no team members recorded yet")
}

func TestAssembleDeterministic(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	in := Input{
		Context: sampleContext(),
		Transcript: []*store.Message{
			{Role: store.MessageRoleUser, Content: "how should I prep Sarah's review?"},
			{Role: store.MessageRoleAssistant, Content: "start from her goals."},
		},
	}

	first := a.Assemble(in)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, a.Assemble(in))
	}
}

func TestAssembleTranscriptWindow(t *testing.T) {
	var transcript []*store.Message
	for i := 0; i < 15; i++ {
		transcript = append(transcript, &store.Message{
			Role:    store.MessageRoleUser,
			Content: strings.Repeat("x", 3) + string(rune('a'+i)),
		})
	}
	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{Context: sampleContext(), Transcript: transcript})

	assert.NotContains(t, out, "xxxa", "oldest turns fall out of the window")
	assert.Contains(t, out, "xxxo", "newest turn is kept")
	assert.Equal(t, 10, strings.Count(out, "user: xxx"))
}

func TestAssembleSemanticExcerpts(t *testing.T) {
	ctx := sampleContext()
	ctx.Semantic = &semantic.Result{
		Similar: []semantic.SearchHit{
			{MessageID: 1, Content: "Sarah wants the staff promo", CreatedTs: 1700000000, WhyRelevant: "same promotion thread"},
			{MessageID: 2, Content: "second"},
			{MessageID: 3, Content: "third"},
			{MessageID: 4, Content: "fourth excerpt beyond the cap"},
		},
	}

	a := NewAssembler(DefaultConfig())
	out := a.Assemble(Input{Context: ctx})

	assert.Contains(t, out, "Sarah wants the staff promo")
	assert.Contains(t, out, "same promotion thread")
	assert.NotContains(t, out, "fourth excerpt beyond the cap")
}
