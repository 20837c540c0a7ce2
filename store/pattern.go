package store

import "context"

// PatternKind classifies a recurring pattern.
type PatternKind string

const (
	PatternKindChallenge     PatternKind = "challenge"
	PatternKindTopic         PatternKind = "topic"
	PatternKindRelationship  PatternKind = "relationship"
	PatternKindCommunication PatternKind = "communication"
)

// Pattern is a persisted, frequency-tracked recurring behavior detected
// across conversations. Rows are created on first detection and updated in
// place when a similar detection recurs.
type Pattern struct {
	ID  int32
	UID string

	// Standard fields
	CreatorID int32
	CreatedTs int64

	// Domain specific fields
	Kind          PatternKind
	Description   string
	Frequency     int32
	Confidence    float64
	LastOccurred  int64
	PersonIDs     []int32
	Keywords      []string
	SuggestedActs []string
}

type FindPattern struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	Kind      *PatternKind
}

type UpdatePattern struct {
	ID           int32
	Frequency    *int32
	Confidence   *float64
	LastOccurred *int64
	PersonIDs    *[]int32
}

func (s *Store) CreatePattern(ctx context.Context, create *Pattern) (*Pattern, error) {
	return s.driver.CreatePattern(ctx, create)
}

func (s *Store) ListPatterns(ctx context.Context, find *FindPattern) ([]*Pattern, error) {
	return s.driver.ListPatterns(ctx, find)
}

func (s *Store) UpdatePattern(ctx context.Context, update *UpdatePattern) (*Pattern, error) {
	return s.driver.UpdatePattern(ctx, update)
}
