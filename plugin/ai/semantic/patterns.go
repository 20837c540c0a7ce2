package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teamlens/teamlens/plugin/ai"
)

const patternPrompt = `You detect patterns across conversation snippets from a manager's
coaching history. Given the question and snippets below, identify up to 3
patterns. Valid kinds: recurring_theme, escalating_issue,
collaboration_opportunity, communication_gap. Valid trends: improving,
worsening, stable, emerging.

Question: %s

Snippets:
%s

Respond with JSON only:
{"patterns": [{"kind": "<kind>", "description": "<one sentence>", "trend": "<trend>"}]}`

type patternResponse struct {
	Patterns []struct {
		Kind        string `json:"kind"`
		Description string `json:"description"`
		Trend       string `json:"trend"`
	} `json:"patterns"`
}

var validPatternKinds = map[PatternKind]bool{
	PatternRecurringTheme:           true,
	PatternEscalatingIssue:          true,
	PatternCollaborationOpportunity: true,
	PatternCommunicationGap:         true,
}

var validTrends = map[Trend]bool{
	TrendImproving: true,
	TrendWorsening: true,
	TrendStable:    true,
	TrendEmerging:  true,
}

// detectPatterns runs the cross-snippet AI pattern pass. On failure the
// search result simply carries no patterns.
func (s *Searcher) detectPatterns(ctx context.Context, query string, hits []SearchHit) []Pattern {
	if s.completion == nil {
		return nil
	}

	var sb strings.Builder
	ids := make([]int32, 0, len(hits))
	for i, hit := range hits {
		if i >= 8 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, snippet(hit.Content, 200))
		ids = append(ids, hit.MessageID)
	}

	prompt := fmt.Sprintf(patternPrompt, query, sb.String())
	var resp patternResponse
	if err := s.completion.CompleteJSON(ctx, []ai.Message{ai.UserMessage(prompt)}, &resp); err != nil {
		slog.Debug("semantic pattern detection failed", "error", err)
		return nil
	}

	patterns := []Pattern{}
	for _, p := range resp.Patterns {
		kind := PatternKind(p.Kind)
		trend := Trend(p.Trend)
		if !validPatternKinds[kind] || p.Description == "" {
			continue
		}
		if !validTrends[trend] {
			trend = TrendEmerging
		}
		patterns = append(patterns, Pattern{
			Kind:        kind,
			Description: p.Description,
			Trend:       trend,
			MessageIDs:  ids,
		})
		if len(patterns) >= 3 {
			break
		}
	}
	return patterns
}
