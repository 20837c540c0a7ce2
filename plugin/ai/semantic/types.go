// Package semantic implements similarity retrieval over embedded
// conversation snippets, with optional AI query expansion and re-ranking.
// Every AI-assisted step has a local fallback: the pipeline always returns
// at least the raw vector-search output.
package semantic

import (
	"time"

	"github.com/teamlens/teamlens/store"
)

// Config holds the tuning knobs for semantic search.
type Config struct {
	// MinQueryLen gates the pipeline: shorter queries are not worth the cost.
	MinQueryLen int
	// Threshold is the minimum similarity score for a hit, in [0,1].
	Threshold float64
	// Limit caps the number of raw vector hits.
	Limit int
	// AdjacentWindow bounds the connected-conversation lookup around a hit.
	AdjacentWindow time.Duration
	// CacheTTL is the per-query result cache TTL.
	CacheTTL time.Duration
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		MinQueryLen:    10,
		Threshold:      0.72,
		Limit:          20,
		AdjacentWindow: 3 * 24 * time.Hour,
		CacheTTL:       30 * time.Second,
	}
}

// SearchHit is one ranked snippet from past conversations.
type SearchHit struct {
	MessageID  int32             `json:"message_id"`
	Content    string            `json:"content"`
	PersonID   *int32            `json:"person_id,omitempty"`
	Role       store.MessageRole `json:"role"`
	CreatedTs  int64             `json:"created_ts"`
	Similarity float64           `json:"similarity"`

	// Relevance is the AI re-rank score; falls back to Similarity when the
	// re-rank pass is unavailable or fails for this hit.
	Relevance   float64  `json:"relevance"`
	WhyRelevant string   `json:"why_relevant,omitempty"`
	Insights    []string `json:"insights,omitempty"`

	Connected []ConnectedMessage `json:"connected,omitempty"`
}

// ConnectedMessage is a temporally adjacent message from the same person.
type ConnectedMessage struct {
	MessageID int32  `json:"message_id"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"created_ts"`
}

// CrossPersonInsight surfaces a similar discussion involving another person.
type CrossPersonInsight struct {
	PersonID   int32   `json:"person_id"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`
}

// PatternKind classifies a cross-snippet semantic pattern.
type PatternKind string

const (
	PatternRecurringTheme           PatternKind = "recurring_theme"
	PatternEscalatingIssue          PatternKind = "escalating_issue"
	PatternCollaborationOpportunity PatternKind = "collaboration_opportunity"
	PatternCommunicationGap         PatternKind = "communication_gap"
)

// Trend describes the direction of a detected pattern.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
	TrendEmerging  Trend = "emerging"
)

// Pattern is a cross-snippet semantic pattern detected over ranked hits.
type Pattern struct {
	Kind        PatternKind `json:"kind"`
	Description string      `json:"description"`
	Trend       Trend       `json:"trend"`
	MessageIDs  []int32     `json:"message_ids,omitempty"`
}

// Result is the full output of one search.
type Result struct {
	Similar             []SearchHit          `json:"similar"`
	CrossPersonInsights []CrossPersonInsight `json:"cross_person_insights,omitempty"`
	Patterns            []Pattern            `json:"patterns,omitempty"`
}
