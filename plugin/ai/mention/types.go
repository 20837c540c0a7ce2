// Package mention detects people referenced in chat messages.
//
// Detection runs in tiers. A heuristic pattern battery produces candidates
// with base confidences, local validation filters obvious non-names, and an
// optional AI pass re-scores the survivors. Every tier degrades to the one
// below it, so detection never fails outright.
package mention

import "time"

// DetectedPerson is a person reference extracted from a message.
type DetectedPerson struct {
	Name             string  `json:"name"`
	RoleGuess        string  `json:"roleGuess,omitempty"`
	RelationshipHint string  `json:"relationshipHint,omitempty"`
	Confidence       float64 `json:"confidence"`
	Context          string  `json:"context,omitempty"`
	AIScore          int     `json:"aiScore,omitempty"`
}

// Config tunes the detector thresholds.
type Config struct {
	// ConfidenceFloor drops candidates below this before returning.
	ConfidenceFloor float64
	// AIScoreFloor rejects candidates the AI pass scores below this (1-10).
	AIScoreFloor int
	// AIBoost is the maximum confidence the AI pass can add on top of the
	// heuristic base.
	AIBoost float64
	// ContextBoost is added when the message carries work vocabulary.
	ContextBoost float64
	// ValidationTTL bounds how long AI validations are cache-served.
	ValidationTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConfidenceFloor: 0.6,
		AIScoreFloor:    6,
		AIBoost:         0.3,
		ContextBoost:    0.1,
		ValidationTTL:   10 * time.Minute,
	}
}
