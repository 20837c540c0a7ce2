package learning

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/store"
)

// initialConfidence is assigned to a pattern on first detection.
const initialConfidence = 0.5

// Engine records detected patterns and serves insights over them. The
// completion service is optional.
type Engine struct {
	store      PatternStore
	completion ai.CompletionService
	cfg        Config
}

func NewEngine(patternStore PatternStore, completion ai.CompletionService, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinMessages <= 0 {
		cfg.MinMessages = def.MinMessages
	}
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = def.MergeThreshold
	}
	if cfg.ConfidenceStep <= 0 {
		cfg.ConfidenceStep = def.ConfidenceStep
	}
	if cfg.InsightMinFrequency <= 0 {
		cfg.InsightMinFrequency = def.InsightMinFrequency
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	return &Engine{store: patternStore, completion: completion, cfg: cfg}
}

// RecordFromConversation extracts patterns from a finished exchange and
// merges them into the persisted set. Short conversations are skipped.
func (e *Engine) RecordFromConversation(ctx context.Context, userID int32, messages []*store.Message) error {
	if len(messages) < e.cfg.MinMessages {
		return nil
	}

	candidates := e.extract(ctx, messages)
	if len(candidates) == 0 {
		return nil
	}

	existing, err := e.store.ListPatterns(ctx, &store.FindPattern{CreatorID: &userID})
	if err != nil {
		return errors.Wrap(err, "list patterns")
	}

	now := time.Now().Unix()
	for _, c := range candidates {
		if match := e.bestMatch(c, existing); match != nil {
			if err := e.recur(ctx, match, c, now); err != nil {
				return err
			}
			continue
		}
		created, err := e.store.CreatePattern(ctx, &store.Pattern{
			UID:           shortuuid.New(),
			CreatorID:     userID,
			CreatedTs:     now,
			Kind:          c.Kind,
			Description:   c.Description,
			Frequency:     1,
			Confidence:    initialConfidence,
			LastOccurred:  now,
			PersonIDs:     c.PersonIDs,
			Keywords:      c.Keywords,
			SuggestedActs: c.Suggestions,
		})
		if err != nil {
			return errors.Wrap(err, "create pattern")
		}
		// Visible to similarity checks for later candidates in this batch.
		existing = append(existing, created)
	}
	return nil
}

// recur bumps an existing pattern instead of writing a duplicate row.
func (e *Engine) recur(ctx context.Context, match *store.Pattern, c candidate, now int64) error {
	frequency := match.Frequency + 1
	confidence := match.Confidence + e.cfg.ConfidenceStep
	if confidence > 1.0 {
		confidence = 1.0
	}
	personIDs := mergePersonIDs(match.PersonIDs, c.PersonIDs)

	updated, err := e.store.UpdatePattern(ctx, &store.UpdatePattern{
		ID:           match.ID,
		Frequency:    &frequency,
		Confidence:   &confidence,
		LastOccurred: &now,
		PersonIDs:    &personIDs,
	})
	if err != nil {
		return errors.Wrap(err, "update pattern")
	}
	*match = *updated
	slog.Debug("pattern recurrence recorded", "uid", match.UID, "frequency", frequency)
	return nil
}

func (e *Engine) bestMatch(c candidate, existing []*store.Pattern) *store.Pattern {
	var best *store.Pattern
	bestScore := e.cfg.MergeThreshold
	for _, p := range existing {
		if p.Kind != c.Kind {
			continue
		}
		if score := keywordSimilarity(c.Keywords, p.Keywords); score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}

// keywordSimilarity is the size of the keyword-set intersection over the size
// of the larger set. Comparison is case-insensitive.
func keywordSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, k := range a {
		setA[strings.ToLower(k)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, k := range b {
		setB[strings.ToLower(k)] = struct{}{}
	}
	shared := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			shared++
		}
	}
	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	return float64(shared) / float64(larger)
}

func mergePersonIDs(a, b []int32) []int32 {
	seen := make(map[int32]struct{}, len(a)+len(b))
	out := make([]int32, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
