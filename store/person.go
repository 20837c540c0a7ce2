package store

import "context"

// Relationship describes how a roster member relates to the manager.
type Relationship string

const (
	RelationshipDirectReport Relationship = "direct_report"
	RelationshipManager      Relationship = "manager"
	RelationshipPeer         Relationship = "peer"
	RelationshipStakeholder  Relationship = "stakeholder"
	// RelationshipSelf marks the pseudo-person used for self-reflection chats.
	RelationshipSelf Relationship = "self"
)

// Person is a roster member the manager talks about.
type Person struct {
	ID int32

	// Standard fields
	CreatorID int32
	CreatedTs int64
	UpdatedTs int64

	// Domain specific fields
	Name          string
	Role          string
	Relationship  Relationship
	LastContactTs int64
}

type FindPerson struct {
	ID        *int32
	CreatorID *int32
	Name      *string
}

type UpdatePerson struct {
	ID            int32
	UpdatedTs     *int64
	Role          *string
	Relationship  *Relationship
	LastContactTs *int64
}

type DeletePerson struct {
	ID int32
}

func (s *Store) CreatePerson(ctx context.Context, create *Person) (*Person, error) {
	return s.driver.CreatePerson(ctx, create)
}

func (s *Store) ListPersons(ctx context.Context, find *FindPerson) ([]*Person, error) {
	return s.driver.ListPersons(ctx, find)
}

func (s *Store) GetPerson(ctx context.Context, find *FindPerson) (*Person, error) {
	list, err := s.driver.ListPersons(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdatePerson(ctx context.Context, update *UpdatePerson) (*Person, error) {
	return s.driver.UpdatePerson(ctx, update)
}

func (s *Store) DeletePerson(ctx context.Context, delete *DeletePerson) error {
	return s.driver.DeletePerson(ctx, delete)
}
