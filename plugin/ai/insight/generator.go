package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/learning"
	"github.com/teamlens/teamlens/store"
)

// DataStore is the slice of the store the generator reads.
type DataStore interface {
	ListPersons(ctx context.Context, find *store.FindPerson) ([]*store.Person, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
}

// PatternInsights feeds recurring-pattern insights into the generator.
type PatternInsights interface {
	GetInsights(ctx context.Context, userID int32) ([]learning.Insight, error)
}

// commitmentPhrases in assistant replies indicate a promised follow-up.
var commitmentPhrases = []string{
	"follow up", "check in", "circle back", "get back to", "will do",
	"remind you", "touch base",
}

// Generator produces proactive insights. Every source degrades independently,
// so a failing store read drops one source rather than the whole batch.
type Generator struct {
	store      DataStore
	patterns   PatternInsights
	completion ai.CompletionService
	cfg        Config
}

func NewGenerator(dataStore DataStore, patterns PatternInsights, completion ai.CompletionService, cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.StaleContact <= 0 {
		cfg.StaleContact = def.StaleContact
	}
	if cfg.FollowUpWindow <= 0 {
		cfg.FollowUpWindow = def.FollowUpWindow
	}
	if cfg.MaxStarters <= 0 {
		cfg.MaxStarters = def.MaxStarters
	}
	if cfg.MaxInsights <= 0 {
		cfg.MaxInsights = def.MaxInsights
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = def.Lifetime
	}
	return &Generator{store: dataStore, patterns: patterns, completion: completion, cfg: cfg}
}

// Generate returns the ranked proactive insights for a user.
func (g *Generator) Generate(ctx context.Context, userID int32) ([]ProactiveInsight, error) {
	now := time.Now()
	var out []ProactiveInsight

	persons, err := g.store.ListPersons(ctx, &store.FindPerson{CreatorID: &userID})
	if err != nil {
		slog.Warn("insight roster load failed", "err", err)
		persons = nil
	}

	out = append(out, g.conversationStarters(ctx, persons, now)...)
	out = append(out, g.followUps(ctx, userID, now)...)
	out = append(out, g.patternAlerts(ctx, userID, now)...)
	out = append(out, g.teamWide(ctx, userID, persons, now)...)

	sort.SliceStable(out, func(i, j int) bool {
		return priorityWeight(out[i].Priority)*out[i].Relevance > priorityWeight(out[j].Priority)*out[j].Relevance
	})
	if len(out) > g.cfg.MaxInsights {
		out = out[:g.cfg.MaxInsights]
	}
	return out, nil
}

// conversationStarters suggests reconnecting with the most neglected
// contacts.
func (g *Generator) conversationStarters(ctx context.Context, persons []*store.Person, now time.Time) []ProactiveInsight {
	type stale struct {
		person *store.Person
		age    time.Duration
	}
	var candidates []stale
	for _, p := range persons {
		if p.Relationship == store.RelationshipSelf {
			continue
		}
		age := now.Sub(time.Unix(p.LastContactTs, 0))
		if p.LastContactTs == 0 {
			age = g.cfg.StaleContact * 2
		}
		if age >= g.cfg.StaleContact {
			candidates = append(candidates, stale{person: p, age: age})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].age > candidates[j].age })
	if len(candidates) > g.cfg.MaxStarters {
		candidates = candidates[:g.cfg.MaxStarters]
	}

	out := make([]ProactiveInsight, 0, len(candidates))
	for _, c := range candidates {
		days := int(c.age.Hours() / 24)
		priority := PriorityMedium
		if c.age >= 2*g.cfg.StaleContact {
			priority = PriorityHigh
		}
		personID := c.person.ID
		out = append(out, g.newInsight(now, ProactiveInsight{
			Kind:        KindConversationStarter,
			Title:       fmt.Sprintf("Reconnect with %s", c.person.Name),
			Description: g.starterText(ctx, c.person, days),
			Priority:    priority,
			PersonID:    &personID,
			Steps: []string{
				fmt.Sprintf("Put a short 1:1 with %s on the calendar", c.person.Name),
				"Open with what has changed on their side since you last talked",
			},
			Relevance: clampRelevance(float64(days) / 14.0),
		}))
	}
	return out
}

func (g *Generator) starterText(ctx context.Context, person *store.Person, days int) string {
	fallback := fmt.Sprintf("No recorded contact with %s in %d days.", person.Name, days)
	if g.completion == nil {
		return fallback
	}
	prompt := fmt.Sprintf(
		"Write one sentence nudging a manager to reconnect with %s (%s, %s) after %d days without contact. Plain text, no quotes.",
		person.Name, person.Role, person.Relationship, days)
	text, err := g.completion.Complete(ctx, []ai.Message{ai.UserMessage(prompt)})
	if err != nil || strings.TrimSpace(text) == "" {
		return fallback
	}
	return strings.TrimSpace(text)
}

// followUps surfaces commitments the assistant made in recent replies.
func (g *Generator) followUps(ctx context.Context, userID int32, now time.Time) []ProactiveInsight {
	role := store.MessageRoleAssistant
	after := now.Add(-g.cfg.FollowUpWindow).Unix()
	messages, err := g.store.ListMessages(ctx, &store.FindMessage{
		CreatorID:    &userID,
		Role:         &role,
		CreatedAfter: &after,
	})
	if err != nil {
		slog.Warn("insight follow-up scan failed", "err", err)
		return nil
	}

	var out []ProactiveInsight
	seen := make(map[int32]struct{})
	for _, m := range messages {
		lowered := strings.ToLower(m.Content)
		matched := ""
		for _, phrase := range commitmentPhrases {
			if strings.Contains(lowered, phrase) {
				matched = phrase
				break
			}
		}
		if matched == "" {
			continue
		}
		if m.PersonID != nil {
			if _, dup := seen[*m.PersonID]; dup {
				continue
			}
			seen[*m.PersonID] = struct{}{}
		}
		out = append(out, g.newInsight(now, ProactiveInsight{
			Kind:        KindFollowUp,
			Title:       "Open follow-up",
			Description: fmt.Sprintf("A recent reply promised to %s: %q", matched, snippet(m.Content, 120)),
			Priority:    PriorityMedium,
			PersonID:    m.PersonID,
			Steps:       []string{"Decide whether the follow-up already happened", "If not, do it before it goes cold"},
			Relevance:   0.7,
		}))
	}
	return out
}

func (g *Generator) patternAlerts(ctx context.Context, userID int32, now time.Time) []ProactiveInsight {
	if g.patterns == nil {
		return nil
	}
	insights, err := g.patterns.GetInsights(ctx, userID)
	if err != nil {
		slog.Warn("insight pattern source failed", "err", err)
		return nil
	}

	out := make([]ProactiveInsight, 0, len(insights))
	for _, in := range insights {
		priority := PriorityMedium
		if in.Relevance >= 0.8 {
			priority = PriorityHigh
		}
		out = append(out, g.newInsight(now, ProactiveInsight{
			Kind:        KindPatternAlert,
			Title:       snippet(in.Description, 60),
			Description: in.Insight,
			Priority:    priority,
			Steps:       in.Suggestions,
			Relevance:   clampRelevance(in.Relevance),
		}))
	}
	return out
}

const teamInsightSystemPrompt = `You review a manager's team at a glance.
Given the roster and how often each person has come up in recent conversations, produce 1 to 3 team-wide observations covering cohesion, communication gaps, growth opportunities, or risk areas.
Respond with a JSON array only: [{"category": "communication_gap", "observation": "...", "suggestion": "...", "priority": "medium", "relevance": 0.7}]
Valid categories: cohesion, communication_gap, growth_opportunity, risk_area. Valid priorities: high, medium, low.`

type teamObservation struct {
	Category    string  `json:"category"`
	Observation string  `json:"observation"`
	Suggestion  string  `json:"suggestion"`
	Priority    string  `json:"priority"`
	Relevance   float64 `json:"relevance"`
}

var teamCategories = map[string]string{
	"cohesion":           "Team cohesion",
	"communication_gap":  "Communication gap",
	"growth_opportunity": "Growth opportunity",
	"risk_area":          "Risk area",
}

// teamWide looks across the whole roster once per call: cohesion,
// communication gaps, growth opportunities, and risk areas. AI-composed when
// a completion service is available, template-composed otherwise.
func (g *Generator) teamWide(ctx context.Context, userID int32, persons []*store.Person, now time.Time) []ProactiveInsight {
	var team []*store.Person
	for _, p := range persons {
		if p.Relationship == store.RelationshipSelf {
			continue
		}
		team = append(team, p)
	}
	if len(team) < 2 {
		return nil
	}

	role := store.MessageRoleUser
	limit := 200
	messages, err := g.store.ListMessages(ctx, &store.FindMessage{
		CreatorID: &userID,
		Role:      &role,
		Limit:     &limit,
	})
	if err != nil {
		slog.Warn("insight team scan failed", "err", err)
		messages = nil
	}

	counts := make(map[int32]int)
	total := 0
	for _, m := range messages {
		if m.PersonID == nil {
			continue
		}
		counts[*m.PersonID]++
		total++
	}

	out := g.teamInsightsAI(ctx, team, counts, now)
	if out == nil {
		out = g.teamInsightsTemplate(team, counts, total, now)
	}
	return out
}

func (g *Generator) teamInsightsAI(ctx context.Context, team []*store.Person, counts map[int32]int, now time.Time) []ProactiveInsight {
	if g.completion == nil {
		return nil
	}

	var sb strings.Builder
	for _, p := range team {
		fmt.Fprintf(&sb, "- %s (%s, %s): %d recent mentions\n", p.Name, p.Role, p.Relationship, counts[p.ID])
	}

	var observations []teamObservation
	err := g.completion.CompleteJSON(ctx, []ai.Message{
		ai.SystemPrompt(teamInsightSystemPrompt),
		ai.UserMessage(sb.String()),
	}, &observations)
	if err != nil {
		slog.Warn("team insight completion failed, using template", "err", err)
		return nil
	}

	var out []ProactiveInsight
	for _, obs := range observations {
		title, ok := teamCategories[obs.Category]
		if !ok || strings.TrimSpace(obs.Observation) == "" {
			continue
		}
		priority := obs.Priority
		switch priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			priority = PriorityMedium
		}
		var steps []string
		if suggestion := strings.TrimSpace(obs.Suggestion); suggestion != "" {
			steps = []string{suggestion}
		}
		out = append(out, g.newInsight(now, ProactiveInsight{
			Kind:        KindTeamInsight,
			Title:       title,
			Description: strings.TrimSpace(obs.Observation),
			Priority:    priority,
			Steps:       steps,
			Relevance:   clampRelevance(obs.Relevance),
		}))
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// teamInsightsTemplate is the no-AI fallback. It always emits at least one
// observation so the team-wide source fires on any roster of two or more.
func (g *Generator) teamInsightsTemplate(team []*store.Person, counts map[int32]int, total int, now time.Time) []ProactiveInsight {
	var out []ProactiveInsight

	if total >= 4 {
		for _, p := range team {
			if float64(counts[p.ID])/float64(total) <= 0.5 {
				continue
			}
			personID := p.ID
			out = append(out, g.newInsight(now, ProactiveInsight{
				Kind:        KindPreventiveAction,
				Title:       "Attention is concentrated on one person",
				Description: fmt.Sprintf("More than half of your recent conversations are about %s. The rest of the team may be flying under the radar.", p.Name),
				Priority:    PriorityLow,
				PersonID:    &personID,
				Steps:       []string{"Skim your roster for people you have not discussed lately", "Rotate 1:1 prep across the whole team"},
				Relevance:   0.6,
			}))
			break
		}
	}

	var quiet []string
	for _, p := range team {
		if counts[p.ID] == 0 {
			quiet = append(quiet, p.Name)
		}
	}
	if len(quiet) > 0 && len(quiet) < len(team) {
		out = append(out, g.newInsight(now, ProactiveInsight{
			Kind:        KindTeamInsight,
			Title:       "Communication gap",
			Description: fmt.Sprintf("No recent conversations touch on %s.", strings.Join(quiet, ", ")),
			Priority:    PriorityLow,
			Steps:       []string{"Add them to your next 1:1 rotation"},
			Relevance:   0.5,
		}))
	}

	if len(out) == 0 {
		out = append(out, g.newInsight(now, ProactiveInsight{
			Kind:        KindTeamInsight,
			Title:       "Team cohesion",
			Description: fmt.Sprintf("You track %d people. Rotating 1:1 prep across all of them keeps the quieter ones visible.", len(team)),
			Priority:    PriorityLow,
			Steps:       []string{"Rotate 1:1 prep across the whole team"},
			Relevance:   0.4,
		}))
	}
	return out
}

func (g *Generator) newInsight(now time.Time, in ProactiveInsight) ProactiveInsight {
	in.ID = uuid.NewString()
	in.CreatedTs = now.Unix()
	in.ExpiresTs = now.Add(g.cfg.Lifetime).Unix()
	return in
}

func clampRelevance(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1 {
		return 1
	}
	return v
}

// snippet shortens s to at most limit bytes without splitting a rune.
func snippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
