// Package prompt renders the system prompt for a coaching turn. Assembly is
// deterministic: the same context and transcript always produce the same
// prompt, so prompts are diffable and cacheable upstream.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teamlens/teamlens/plugin/ai/teamctx"
	"github.com/teamlens/teamlens/store"
)

const (
	preambleGeneral = `You are a coaching assistant for engineering managers. You know the manager's team from their past conversations with you. Ground your advice in that history, be concrete, and keep answers short unless asked to elaborate.`

	preamblePerson = `You are a coaching assistant for engineering managers. This conversation is about one specific person on the manager's team. Use what you know about that person and the wider team, and keep the focus on them.`

	preambleSelf = `You are a coaching assistant for engineering managers. This is a self-reflection conversation: the manager is examining their own behavior, not discussing a team member. Be direct, ask the questions a good coach would, and resist turning the conversation back to the team.`

	// emptyTeamNote replaces the team overview before any people are recorded.
	emptyTeamNote = `The manager has no team members recorded yet. Do not invent people or refer to past conversations that do not exist. Encourage them to mention the people they work with so you can build context over time.`
)

// Config bounds the rendered sections.
type Config struct {
	MaxTranscript int // trailing conversation turns included
	MaxExcerpts   int // semantic excerpts included
	MaxThemes     int
	MaxInsights   int
}

func DefaultConfig() Config {
	return Config{
		MaxTranscript: 10,
		MaxExcerpts:   3,
		MaxThemes:     5,
		MaxInsights:   5,
	}
}

// Input carries everything a single render needs.
type Input struct {
	Context    *teamctx.ManagementContext
	Focus      *store.Person    // person the conversation is about, nil for general chat
	Transcript []*store.Message // prior turns, oldest first
}

type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.MaxTranscript <= 0 {
		cfg.MaxTranscript = def.MaxTranscript
	}
	if cfg.MaxExcerpts <= 0 {
		cfg.MaxExcerpts = def.MaxExcerpts
	}
	if cfg.MaxThemes <= 0 {
		cfg.MaxThemes = def.MaxThemes
	}
	if cfg.MaxInsights <= 0 {
		cfg.MaxInsights = def.MaxInsights
	}
	return &Assembler{cfg: cfg}
}

// Assemble renders the system prompt for one turn.
func (a *Assembler) Assemble(in Input) string {
	var b strings.Builder

	b.WriteString(a.preamble(in))
	b.WriteString("\n")

	if in.Focus != nil && in.Focus.Relationship != store.RelationshipSelf {
		a.writeFocus(&b, in.Focus)
	}

	ctx := in.Context
	if ctx == nil {
		ctx = &teamctx.ManagementContext{}
	}
	a.writeTeam(&b, ctx)
	a.writeThemes(&b, ctx.RecentThemes)
	a.writeChallenges(&b, ctx.CurrentChallenges)
	a.writePatterns(&b, &ctx.Patterns)
	a.writeSemantic(&b, ctx)
	a.writeTranscript(&b, in.Transcript)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (a *Assembler) preamble(in Input) string {
	switch {
	case in.Focus != nil && in.Focus.Relationship == store.RelationshipSelf:
		return preambleSelf
	case in.Focus != nil:
		return preamblePerson
	default:
		return preambleGeneral
	}
}

func (a *Assembler) writeFocus(b *strings.Builder, person *store.Person) {
	b.WriteString("\n## Person in focus\n")
	fmt.Fprintf(b, "%s", person.Name)
	if person.Role != "" {
		fmt.Fprintf(b, ", %s", person.Role)
	}
	if person.Relationship != "" {
		fmt.Fprintf(b, " (%s)", relationshipLabel(person.Relationship))
	}
	b.WriteString("\n")
}

func (a *Assembler) writeTeam(b *strings.Builder, ctx *teamctx.ManagementContext) {
	b.WriteString("\n## Team\n")
	if ctx.TeamSize.Total == 0 {
		b.WriteString(emptyTeamNote + "\n")
		return
	}

	fmt.Fprintf(b, "%d people recorded", ctx.TeamSize.Total)
	if len(ctx.TeamSize.ByRelationship) > 0 {
		rels := make([]string, 0, len(ctx.TeamSize.ByRelationship))
		for rel := range ctx.TeamSize.ByRelationship {
			rels = append(rels, string(rel))
		}
		sort.Strings(rels)
		parts := make([]string, 0, len(rels))
		for _, rel := range rels {
			parts = append(parts, fmt.Sprintf("%d %s", ctx.TeamSize.ByRelationship[store.Relationship(rel)], relationshipLabel(store.Relationship(rel))))
		}
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")

	for _, p := range ctx.People {
		fmt.Fprintf(b, "- %s", p.Name)
		if p.Role != "" {
			fmt.Fprintf(b, ", %s", p.Role)
		}
		fmt.Fprintf(b, " (%s)", relationshipLabel(p.Relationship))
		if len(p.RecentThemes) > 0 {
			fmt.Fprintf(b, " recently: %s", strings.Join(p.RecentThemes, ", "))
		}
		b.WriteString("\n")
	}
}

func (a *Assembler) writeThemes(b *strings.Builder, themes []teamctx.ConversationTheme) {
	if len(themes) == 0 {
		return
	}
	if len(themes) > a.cfg.MaxThemes {
		themes = themes[:a.cfg.MaxThemes]
	}
	b.WriteString("\n## Recent themes\n")
	for _, t := range themes {
		fmt.Fprintf(b, "- %s (%dx)\n", t.Theme, t.Frequency)
	}
}

func (a *Assembler) writeChallenges(b *strings.Builder, challenges []string) {
	if len(challenges) == 0 {
		return
	}
	b.WriteString("\n## Current challenges\n")
	for _, c := range challenges {
		fmt.Fprintf(b, "- %s\n", c)
	}
}

func (a *Assembler) writePatterns(b *strings.Builder, patterns *teamctx.ConversationPatterns) {
	if len(patterns.MostDiscussed) == 0 {
		return
	}
	b.WriteString("\n## Discussion patterns\n")
	for _, m := range patterns.MostDiscussed {
		fmt.Fprintf(b, "- %s discussed %d times recently\n", m.Name, m.Count)
	}
}

func (a *Assembler) writeSemantic(b *strings.Builder, ctx *teamctx.ManagementContext) {
	if ctx.Semantic == nil || len(ctx.Semantic.Similar) == 0 {
		return
	}
	hits := ctx.Semantic.Similar
	if len(hits) > a.cfg.MaxExcerpts {
		hits = hits[:a.cfg.MaxExcerpts]
	}
	b.WriteString("\n## Relevant past conversations\n")
	for _, h := range hits {
		fmt.Fprintf(b, "- [%s] %s\n", time.Unix(h.CreatedTs, 0).UTC().Format("2006-01-02"), h.Content)
		if h.WhyRelevant != "" {
			fmt.Fprintf(b, "  (%s)\n", h.WhyRelevant)
		}
	}
}

func (a *Assembler) writeTranscript(b *strings.Builder, transcript []*store.Message) {
	if len(transcript) == 0 {
		return
	}
	if len(transcript) > a.cfg.MaxTranscript {
		transcript = transcript[len(transcript)-a.cfg.MaxTranscript:]
	}
	b.WriteString("\n## Conversation so far\n")
	for _, m := range transcript {
		fmt.Fprintf(b, "%s: %s\n", m.Role, m.Content)
	}
}

func relationshipLabel(rel store.Relationship) string {
	switch rel {
	case store.RelationshipDirectReport:
		return "direct report"
	case store.RelationshipManager:
		return "manager"
	case store.RelationshipPeer:
		return "peer"
	case store.RelationshipStakeholder:
		return "stakeholder"
	case store.RelationshipSelf:
		return "self"
	default:
		return string(rel)
	}
}
