package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teamlens/teamlens/plugin/ai"
)

const rerankPrompt = `You score how relevant a past conversation snippet is to a manager's
current question.

Question: %s

Snippet: %s

Respond with JSON only:
{"relevance": <0-1 float>, "why": "<one short sentence>", "insights": ["<actionable insight>", ...]}`

// rerankResponse is the expected JSON structure from the model.
type rerankResponse struct {
	Relevance float64  `json:"relevance"`
	Why       string   `json:"why"`
	Insights  []string `json:"insights"`
}

// rerank scores each hit with an AI relevance pass. A failure on any item
// keeps that item with its raw similarity as the relevance score.
func (s *Searcher) rerank(ctx context.Context, query string, hits []SearchHit) {
	if s.completion == nil {
		return
	}

	for i := range hits {
		hit := &hits[i]
		prompt := fmt.Sprintf(rerankPrompt, query, snippet(hit.Content, 400))

		var resp rerankResponse
		if err := s.completion.CompleteJSON(ctx, []ai.Message{ai.UserMessage(prompt)}, &resp); err != nil {
			slog.Debug("rerank failed for hit, keeping raw similarity", "message_id", hit.MessageID, "error", err)
			continue
		}
		if resp.Relevance < 0 || resp.Relevance > 1 {
			continue
		}

		hit.Relevance = resp.Relevance
		hit.WhyRelevant = strings.TrimSpace(resp.Why)
		hit.Insights = resp.Insights
	}
}
