package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/teamctx"
	"github.com/teamlens/teamlens/store"
)

const extractSystemPrompt = `You analyze a manager's conversation with their coaching assistant and extract recurring patterns worth tracking over time.
Pattern kinds: "challenge" (a difficulty the manager keeps facing), "topic" (a recurring subject), "relationship" (a dynamic with a specific person), "communication" (how the manager communicates).
Extract at most 3 patterns. For each, give a one-sentence description, 3-6 lowercase keywords, and up to 3 suggested actions.
Respond with a JSON array only: [{"kind": "challenge", "description": "...", "keywords": ["..."], "suggestions": ["..."]}]`

type candidate struct {
	Kind        store.PatternKind `json:"kind"`
	Description string            `json:"description"`
	Keywords    []string          `json:"keywords"`
	Suggestions []string          `json:"suggestions"`
	PersonIDs   []int32           `json:"-"`
}

var validKinds = map[store.PatternKind]struct{}{
	store.PatternKindChallenge:     {},
	store.PatternKindTopic:         {},
	store.PatternKindRelationship:  {},
	store.PatternKindCommunication: {},
}

// extract runs the AI extraction when a completion service is wired and falls
// back to the keyword tables otherwise.
func (e *Engine) extract(ctx context.Context, messages []*store.Message) []candidate {
	personIDs := conversationPersonIDs(messages)

	if e.completion != nil {
		candidates, err := e.extractWithAI(ctx, messages)
		if err != nil {
			slog.Warn("AI pattern extraction failed, using keyword fallback", "err", err)
		} else {
			return attachPersons(candidates, personIDs)
		}
	}
	return attachPersons(e.extractHeuristic(messages), personIDs)
}

func (e *Engine) extractWithAI(ctx context.Context, messages []*store.Message) ([]candidate, error) {
	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	var raw []candidate
	err := e.completion.CompleteJSON(ctx, []ai.Message{
		ai.SystemPrompt(extractSystemPrompt),
		ai.UserMessage(transcript.String()),
	}, &raw)
	if err != nil {
		return nil, err
	}

	out := raw[:0]
	for _, c := range raw {
		if _, ok := validKinds[c.Kind]; !ok {
			continue
		}
		if len(strings.TrimSpace(c.Description)) <= 5 || len(c.Keywords) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// extractHeuristic reuses the theme and challenge keyword tables. Every theme
// hit becomes a topic pattern, every challenge hit a challenge pattern.
func (e *Engine) extractHeuristic(messages []*store.Message) []candidate {
	corpus := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == store.MessageRoleUser {
			corpus = append(corpus, strings.ToLower(m.Content))
		}
	}
	joined := strings.Join(corpus, "\n")

	var out []candidate
	for theme, keywords := range teamctx.ThemeKeywords {
		if hits := matchedKeywords(joined, keywords); len(hits) > 0 {
			out = append(out, candidate{
				Kind:        store.PatternKindTopic,
				Description: fmt.Sprintf("Conversations keep returning to %s", theme),
				Keywords:    hits,
			})
		}
	}
	for challenge, keywords := range teamctx.ChallengeKeywords {
		if hits := matchedKeywords(joined, keywords); len(hits) > 0 {
			out = append(out, candidate{
				Kind:        store.PatternKindChallenge,
				Description: fmt.Sprintf("Ongoing challenge: %s", challenge),
				Keywords:    hits,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out
}

func matchedKeywords(corpus string, keywords []string) []string {
	var hits []string
	for _, k := range keywords {
		if strings.Contains(corpus, k) {
			hits = append(hits, k)
		}
	}
	return hits
}

func conversationPersonIDs(messages []*store.Message) []int32 {
	var ids []int32
	seen := make(map[int32]struct{})
	for _, m := range messages {
		if m.PersonID == nil {
			continue
		}
		if _, ok := seen[*m.PersonID]; ok {
			continue
		}
		seen[*m.PersonID] = struct{}{}
		ids = append(ids, *m.PersonID)
	}
	return ids
}

func attachPersons(candidates []candidate, personIDs []int32) []candidate {
	for i := range candidates {
		candidates[i].PersonIDs = personIDs
	}
	return candidates
}
