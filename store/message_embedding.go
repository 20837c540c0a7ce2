package store

import "context"

// MessageEmbedding is the stored embedding vector for one message.
type MessageEmbedding struct {
	ID        int32
	MessageID int32
	Embedding []float32
	Model     string
	CreatedTs int64
	UpdatedTs int64
}

type FindMessagesWithoutEmbedding struct {
	CreatorID *int32
	Limit     int
}

// VectorSearchOptions controls a similarity search over message embeddings.
type VectorSearchOptions struct {
	CreatorID int32
	// PersonID scopes the search to one roster member when set.
	PersonID  *int32
	Vector    []float32
	Threshold float64
	Limit     int
}

// MessageWithScore is a message paired with its similarity score in [0,1].
type MessageWithScore struct {
	Message *Message
	Score   float64
}

func (s *Store) UpsertMessageEmbedding(ctx context.Context, upsert *MessageEmbedding) (*MessageEmbedding, error) {
	return s.driver.UpsertMessageEmbedding(ctx, upsert)
}

func (s *Store) FindMessagesWithoutEmbedding(ctx context.Context, find *FindMessagesWithoutEmbedding) ([]*Message, error) {
	return s.driver.FindMessagesWithoutEmbedding(ctx, find)
}

func (s *Store) SearchMessagesByVector(ctx context.Context, opts *VectorSearchOptions) ([]*MessageWithScore, error) {
	return s.driver.SearchMessagesByVector(ctx, opts)
}
