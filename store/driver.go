package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Person model related methods.
	CreatePerson(ctx context.Context, create *Person) (*Person, error)
	ListPersons(ctx context.Context, find *FindPerson) ([]*Person, error)
	UpdatePerson(ctx context.Context, update *UpdatePerson) (*Person, error)
	DeletePerson(ctx context.Context, delete *DeletePerson) error

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	DeleteMessage(ctx context.Context, delete *DeleteMessage) error

	// Pattern model related methods.
	CreatePattern(ctx context.Context, create *Pattern) (*Pattern, error)
	ListPatterns(ctx context.Context, find *FindPattern) ([]*Pattern, error)
	UpdatePattern(ctx context.Context, update *UpdatePattern) (*Pattern, error)

	// Message embedding related methods.
	UpsertMessageEmbedding(ctx context.Context, upsert *MessageEmbedding) (*MessageEmbedding, error)
	FindMessagesWithoutEmbedding(ctx context.Context, find *FindMessagesWithoutEmbedding) ([]*Message, error)

	// SearchMessagesByVector performs vector similarity search over persisted
	// message embeddings. Drivers without vector support return an error; the
	// caller is expected to degrade to an empty result.
	SearchMessagesByVector(ctx context.Context, opts *VectorSearchOptions) ([]*MessageWithScore, error)
}
