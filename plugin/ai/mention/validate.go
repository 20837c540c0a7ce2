package mention

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/cache"
)

const validationSystemPrompt = `You validate whether capitalized words extracted from a workplace chat message are real person names.
For each candidate, score 1-10 how likely it names an actual person the author works with (10 = certainly a person).
If the message reveals the person's role or their relationship to the author (direct_report, manager, peer, stakeholder), include it.
Respond with a JSON array only: [{"name": "...", "score": 7, "role": "", "relationship": ""}]`

type aiValidation struct {
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Role         string `json:"role"`
	Relationship string `json:"relationship"`
}

// validateWithAI re-scores heuristic candidates with the completion service.
// Validations are cached keyed on the message prefix and the candidate set,
// so re-sends of the same message skip the model call.
func (d *Detector) validateWithAI(ctx context.Context, userID int32, message string, candidates []DetectedPerson) ([]DetectedPerson, error) {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	sort.Strings(names)

	cacheKey := ""
	if d.cache != nil {
		prefix := message
		if len(prefix) > 64 {
			prefix = prefix[:64]
		}
		cacheKey = cache.Key(userID, "mention", prefix, strings.Join(names, ","))
		if buf, ok := d.cache.Get(ctx, cacheKey); ok {
			var cached []aiValidation
			if err := json.Unmarshal(buf, &cached); err == nil {
				return d.applyValidations(candidates, cached), nil
			}
		}
	}

	prompt := fmt.Sprintf("Message: %q\nCandidates: %s", message, strings.Join(names, ", "))
	var validations []aiValidation
	err := d.completion.CompleteJSON(ctx, []ai.Message{
		ai.SystemPrompt(validationSystemPrompt),
		ai.UserMessage(prompt),
	}, &validations)
	if err != nil {
		return nil, errors.Wrap(err, "complete mention validation")
	}

	if d.cache != nil && cacheKey != "" {
		if buf, err := json.Marshal(validations); err == nil {
			_ = d.cache.Set(ctx, cacheKey, buf, d.cfg.ValidationTTL)
		}
	}
	return d.applyValidations(candidates, validations), nil
}

// applyValidations folds AI scores into the heuristic candidates. A candidate
// the model scored below the floor is dropped; one it never mentioned keeps
// its heuristic confidence unchanged.
func (d *Detector) applyValidations(candidates []DetectedPerson, validations []aiValidation) []DetectedPerson {
	byName := make(map[string]aiValidation, len(validations))
	for _, v := range validations {
		byName[strings.ToLower(v.Name)] = v
	}

	out := make([]DetectedPerson, 0, len(candidates))
	for _, c := range candidates {
		v, scored := byName[strings.ToLower(c.Name)]
		if !scored {
			out = append(out, c)
			continue
		}
		if v.Score < d.cfg.AIScoreFloor {
			continue
		}
		c.AIScore = v.Score
		c.Confidence = min(c.Confidence+float64(v.Score)/10*d.cfg.AIBoost, 1.0)
		if c.RoleGuess == "" {
			c.RoleGuess = strings.TrimSpace(v.Role)
		}
		if c.RelationshipHint == "" {
			c.RelationshipHint = strings.TrimSpace(v.Relationship)
		}
		out = append(out, c)
	}
	return out
}
