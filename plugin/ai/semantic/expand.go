package semantic

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teamlens/teamlens/plugin/ai"
)

const expandPrompt = `You rewrite search queries for a management coaching assistant.
Expand the query below with closely related workplace keywords (team dynamics,
performance, feedback, one-on-ones) so it retrieves more relevant past
conversations. Return only the rewritten query text, nothing else.

Query: %QUERY%`

// expandQuery asks the model to enrich the query with domain keywords.
// On any failure the raw query is used unchanged.
func (s *Searcher) expandQuery(ctx context.Context, query string) string {
	if s.completion == nil {
		return query
	}

	prompt := strings.Replace(expandPrompt, "%QUERY%", query, 1)
	expanded, err := s.completion.Complete(ctx, []ai.Message{ai.UserMessage(prompt)})
	if err != nil {
		slog.Debug("query expansion failed, using raw query", "error", err)
		return query
	}

	expanded = strings.TrimSpace(expanded)
	if expanded == "" || len(expanded) > 4*len(query)+256 {
		return query
	}
	return expanded
}
