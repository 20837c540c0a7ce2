package teamctx

// ThemeKeywords maps a theme label to the keywords that count toward it.
// A message counts once per theme when it contains any of the theme's
// keywords (case-insensitive).
var ThemeKeywords = map[string][]string{
	"performance":   {"performance", "review", "goals", "promotion", "achievement"},
	"deadline":      {"deadline", "due date", "overdue", "timeline", "on time"},
	"communication": {"communication", "feedback", "conversation", "discussion"},
	"workload":      {"workload", "capacity", "bandwidth", "overloaded", "busy"},
	"conflict":      {"conflict", "disagreement", "tension", "friction"},
	"growth":        {"growth", "career", "development", "learning", "mentoring"},
	"collaboration": {"collaboration", "teamwork", "pairing", "cross-team"},
	"motivation":    {"motivation", "engagement", "morale", "energy"},
	"wellbeing":     {"wellbeing", "stress", "burnout", "work-life"},
	"hiring":        {"hiring", "interview", "candidate", "onboarding"},
}

// ChallengeKeywords maps a challenge label to its trigger keywords. A label
// is emitted once if any of its keywords appear anywhere in the windowed
// corpus.
var ChallengeKeywords = map[string][]string{
	"Team Communication":     {"miscommunication", "unclear", "confusion", "alignment"},
	"Performance Concerns":   {"underperforming", "missed deadline", "quality issues", "struggling"},
	"Workload & Burnout":     {"overwhelmed", "burnout", "too much work", "overloaded"},
	"Interpersonal Conflict": {"conflict", "tension", "disagreement", "friction"},
	"Retention Risk":         {"quit", "leaving", "resign", "disengaged"},
}
