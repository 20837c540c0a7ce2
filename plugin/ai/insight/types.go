// Package insight generates proactive suggestions the assistant can surface
// without being asked: conversation starters for neglected contacts,
// follow-ups on commitments, and alerts over recurring patterns.
package insight

import "time"

// Kind classifies a proactive insight.
type Kind string

const (
	KindConversationStarter Kind = "conversation_starter"
	KindFollowUp            Kind = "follow_up"
	KindPatternAlert        Kind = "pattern_alert"
	KindPreventiveAction    Kind = "preventive_action"
	KindTeamInsight         Kind = "team_insight"
)

// Priority buckets for ranking.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ProactiveInsight is a single suggestion surfaced to the manager.
type ProactiveInsight struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	PersonID    *int32   `json:"personId,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Relevance   float64  `json:"relevance"`
	CreatedTs   int64    `json:"createdTs"`
	ExpiresTs   int64    `json:"expiresTs"`
}

// Config tunes generation.
type Config struct {
	// StaleContact marks a person as neglected when the last recorded
	// contact is older than this.
	StaleContact time.Duration
	// FollowUpWindow bounds how far back assistant replies are scanned for
	// commitments.
	FollowUpWindow time.Duration
	// MaxStarters caps conversation starters per generation.
	MaxStarters int
	// MaxInsights caps the final ranked list.
	MaxInsights int
	// Lifetime sets how long a generated insight stays valid.
	Lifetime time.Duration
}

func DefaultConfig() Config {
	return Config{
		StaleContact:   7 * 24 * time.Hour,
		FollowUpWindow: 3 * 24 * time.Hour,
		MaxStarters:    3,
		MaxInsights:    10,
		Lifetime:       24 * time.Hour,
	}
}

func priorityWeight(priority string) float64 {
	switch priority {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}
