package store

import "context"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one turn of a coaching conversation. PersonID is nil for
// free-form topic chats.
type Message struct {
	ID int32

	// Standard fields
	CreatorID int32
	CreatedTs int64

	// Domain specific fields
	PersonID *int32
	Topic    string
	Role     MessageRole
	Content  string
}

type FindMessage struct {
	ID            *int32
	CreatorID     *int32
	PersonID      *int32
	Role          *MessageRole
	CreatedAfter  *int64
	CreatedBefore *int64
	Limit         *int
}

type DeleteMessage struct {
	ID int32
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) DeleteMessage(ctx context.Context, delete *DeleteMessage) error {
	return s.driver.DeleteMessage(ctx, delete)
}
