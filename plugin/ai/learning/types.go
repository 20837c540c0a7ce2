// Package learning persists recurring patterns observed across conversations
// and turns the frequent ones into actionable insights.
//
// Extraction prefers the AI path and falls back to keyword heuristics when no
// completion service is wired or the model call fails. New detections merge
// into existing patterns by keyword similarity instead of piling up
// near-duplicate rows.
package learning

import (
	"context"

	"github.com/teamlens/teamlens/store"
)

// Config tunes extraction and merge behavior.
type Config struct {
	// MinMessages skips conversations too short to carry a pattern.
	MinMessages int
	// MergeThreshold is the keyword-set similarity above which a new
	// detection updates an existing pattern instead of creating a row.
	MergeThreshold float64
	// ConfidenceStep is added to a pattern's confidence on each recurrence,
	// capped at 1.0.
	ConfidenceStep float64
	// InsightMinFrequency is the recurrence count a pattern needs before it
	// surfaces as an insight.
	InsightMinFrequency int32
	// MaxSuggestions bounds the suggested actions per insight.
	MaxSuggestions int
}

func DefaultConfig() Config {
	return Config{
		MinMessages:         4,
		MergeThreshold:      0.6,
		ConfidenceStep:      0.1,
		InsightMinFrequency: 2,
		MaxSuggestions:      3,
	}
}

// Insight is a frequent pattern annotated with guidance for the manager.
type Insight struct {
	PatternUID   string            `json:"patternUid"`
	Kind         store.PatternKind `json:"kind"`
	Description  string            `json:"description"`
	Frequency    int32             `json:"frequency"`
	Confidence   float64           `json:"confidence"`
	Insight      string            `json:"insight"`
	Suggestions  []string          `json:"suggestions"`
	Relevance    float64           `json:"relevance"`
	LastOccurred int64             `json:"lastOccurred"`
}

// PatternStore is the slice of the store the engine needs.
type PatternStore interface {
	CreatePattern(ctx context.Context, create *store.Pattern) (*store.Pattern, error)
	ListPatterns(ctx context.Context, find *store.FindPattern) ([]*store.Pattern, error)
	UpdatePattern(ctx context.Context, update *store.UpdatePattern) (*store.Pattern, error)
}
