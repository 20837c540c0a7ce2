package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/store"
)

// SQLite is intended for development/testing only and does not support
// vector storage or similarity search. Use PostgreSQL with pgvector for
// semantic memory features.

// ErrSQLiteVectorNotSupported is returned when vector features are requested on SQLite.
var ErrSQLiteVectorNotSupported = errors.New("vector search requires PostgreSQL with pgvector extension")

func (d *DB) UpsertMessageEmbedding(ctx context.Context, upsert *store.MessageEmbedding) (*store.MessageEmbedding, error) {
	return nil, ErrSQLiteVectorNotSupported
}

func (d *DB) FindMessagesWithoutEmbedding(ctx context.Context, find *store.FindMessagesWithoutEmbedding) ([]*store.Message, error) {
	return nil, ErrSQLiteVectorNotSupported
}

func (d *DB) SearchMessagesByVector(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.MessageWithScore, error) {
	return nil, ErrSQLiteVectorNotSupported
}
