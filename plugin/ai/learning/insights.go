package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/store"
)

const insightSystemPrompt = `You coach engineering managers. Given a recurring pattern observed across a manager's conversations, write one short insight (what this pattern means and why it matters) and 2-3 concrete suggested actions.
Respond with JSON only: {"insight": "...", "suggestions": ["..."], "relevance": 0.8}
relevance is 0-1: how much this pattern deserves the manager's attention right now.`

type insightResponse struct {
	Insight     string   `json:"insight"`
	Suggestions []string `json:"suggestions"`
	Relevance   float64  `json:"relevance"`
}

// GetInsights returns coaching insights for every pattern that has recurred
// enough to be trustworthy, most relevant first.
func (e *Engine) GetInsights(ctx context.Context, userID int32) ([]Insight, error) {
	patterns, err := e.store.ListPatterns(ctx, &store.FindPattern{CreatorID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "list patterns")
	}

	var out []Insight
	for _, p := range patterns {
		if p.Frequency < e.cfg.InsightMinFrequency {
			continue
		}
		out = append(out, e.composeInsight(ctx, p))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Frequency > out[j].Frequency
	})
	return out, nil
}

func (e *Engine) composeInsight(ctx context.Context, p *store.Pattern) Insight {
	insight := Insight{
		PatternUID:   p.UID,
		Kind:         p.Kind,
		Description:  p.Description,
		Frequency:    p.Frequency,
		Confidence:   p.Confidence,
		LastOccurred: p.LastOccurred,
	}

	if e.completion != nil {
		prompt := fmt.Sprintf("Pattern (%s, seen %d times): %s", p.Kind, p.Frequency, p.Description)
		var resp insightResponse
		err := e.completion.CompleteJSON(ctx, []ai.Message{
			ai.SystemPrompt(insightSystemPrompt),
			ai.UserMessage(prompt),
		}, &resp)
		if err == nil && resp.Insight != "" {
			insight.Insight = resp.Insight
			insight.Suggestions = capSuggestions(resp.Suggestions, e.cfg.MaxSuggestions)
			insight.Relevance = clamp01(resp.Relevance)
			return insight
		}
		if err != nil {
			slog.Warn("AI insight composition failed, using template", "uid", p.UID, "err", err)
		}
	}

	insight.Insight = fmt.Sprintf("%s has come up %d times in your conversations.", p.Description, p.Frequency)
	insight.Suggestions = capSuggestions(defaultSuggestions(p.Kind), e.cfg.MaxSuggestions)
	insight.Relevance = p.Confidence
	return insight
}

func defaultSuggestions(kind store.PatternKind) []string {
	switch kind {
	case store.PatternKindChallenge:
		return []string{
			"Set aside time this week to address it directly",
			"Ask the people involved what would unblock them",
		}
	case store.PatternKindRelationship:
		return []string{
			"Schedule a dedicated 1:1 to talk it through",
			"Write down what outcome you want from the relationship",
		}
	case store.PatternKindCommunication:
		return []string{
			"Try stating the decision before the reasoning next time",
			"Ask for a readback to confirm the message landed",
		}
	default:
		return []string{
			"Keep an eye on whether this keeps recurring",
			"Bring it up proactively in your next team sync",
		}
	}
}

func capSuggestions(suggestions []string, limit int) []string {
	if len(suggestions) > limit {
		return suggestions[:limit]
	}
	return suggestions
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
