// Package teamctx builds the per-turn management context: roster overview,
// recent themes, detected challenges, and cross-person conversation patterns.
// The context is a transient view assembled fresh per turn from cached
// sub-results; it is never persisted as a whole.
package teamctx

import (
	"time"

	"github.com/teamlens/teamlens/plugin/ai/semantic"
	"github.com/teamlens/teamlens/store"
)

// Config holds the aggregation windows and cache TTLs.
type Config struct {
	ThemeWindow     time.Duration // trailing window for theme extraction
	ChallengeWindow time.Duration // trailing window for challenge detection
	PatternWindow   time.Duration // trailing window for discussion patterns
	TopThemes       int           // themes kept, by frequency
	ExampleCap      int           // example snippets kept per theme

	RosterTTL    time.Duration
	ThemesTTL    time.Duration
	ChallengeTTL time.Duration
	PatternTTL   time.Duration
}

// DefaultConfig returns the default aggregation configuration.
func DefaultConfig() Config {
	return Config{
		ThemeWindow:     30 * 24 * time.Hour,
		ChallengeWindow: 7 * 24 * time.Hour,
		PatternWindow:   14 * 24 * time.Hour,
		TopThemes:       5,
		ExampleCap:      3,

		RosterTTL:    5 * time.Minute,
		ThemesTTL:    3 * time.Minute,
		ChallengeTTL: 3 * time.Minute,
		PatternTTL:   4 * time.Minute,
	}
}

// PersonSummary is a read-only roster view of one team member.
type PersonSummary struct {
	ID           int32              `json:"id"`
	Name         string             `json:"name"`
	Role         string             `json:"role"`
	Relationship store.Relationship `json:"relationship"`
	LastContact  int64              `json:"last_contact"`
	RecentThemes []string           `json:"recent_themes,omitempty"`
}

// TeamSize counts roster members by relationship kind.
type TeamSize struct {
	Total          int                        `json:"total"`
	ByRelationship map[store.Relationship]int `json:"by_relationship"`
}

// ConversationTheme is a recurring discussion label detected via keyword
// matching over a time-windowed message corpus. Recomputed each window,
// never persisted.
type ConversationTheme struct {
	Theme         string   `json:"theme"`
	Frequency     int      `json:"frequency"`
	PersonIDs     []int32  `json:"person_ids,omitempty"`
	LastMentioned int64    `json:"last_mentioned"`
	Examples      []string `json:"examples,omitempty"`
}

// PersonMentions counts how often one person was discussed in the window.
type PersonMentions struct {
	PersonID int32  `json:"person_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// CrossMention records person B coming up in a conversation about person A.
type CrossMention struct {
	PersonID    int32 `json:"person_id"`
	MentionedID int32 `json:"mentioned_id"`
	Count       int   `json:"count"`
}

// ConversationPatterns summarizes who and what dominates recent conversations.
type ConversationPatterns struct {
	MostDiscussed  []PersonMentions    `json:"most_discussed,omitempty"`
	TrendingTopics []ConversationTheme `json:"trending_topics,omitempty"`
	CrossMentions  []CrossMention      `json:"cross_mentions,omitempty"`
}

// ManagementContext is the transient, per-turn aggregation used to render a
// prompt. Every field is always a valid (possibly empty) value; only
// Semantic is genuinely optional.
type ManagementContext struct {
	People            []PersonSummary      `json:"people"`
	TeamSize          TeamSize             `json:"team_size"`
	RecentThemes      []ConversationTheme  `json:"recent_themes"`
	CurrentChallenges []string             `json:"current_challenges"`
	Patterns          ConversationPatterns `json:"patterns"`
	Semantic          *semantic.Result     `json:"semantic,omitempty"`
}
