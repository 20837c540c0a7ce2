package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/store"
)

// UpsertMessageEmbedding inserts or updates the embedding for a message.
func (d *DB) UpsertMessageEmbedding(ctx context.Context, upsert *store.MessageEmbedding) (*store.MessageEmbedding, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `
		INSERT INTO message_embedding (message_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (message_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	vector := pgvector.NewVector(upsert.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.MessageID,
		vector,
		upsert.Model,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert message embedding")
	}

	return upsert, nil
}

// FindMessagesWithoutEmbedding returns messages that have no stored embedding yet.
func (d *DB) FindMessagesWithoutEmbedding(ctx context.Context, find *store.FindMessagesWithoutEmbedding) ([]*store.Message, error) {
	where, args := []string{"e.id IS NULL"}, []any{}

	if v := find.CreatorID; v != nil {
		where, args = append(where, "m.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	limit := find.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := `
		SELECT m.id, m.creator_id, m.created_ts, m.person_id, m.topic, m.role, m.content
		FROM message m
		LEFT JOIN message_embedding e ON m.id = e.message_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY m.created_ts ASC
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find messages without embedding")
	}
	defer rows.Close()

	list := []*store.Message{}
	for rows.Next() {
		var message store.Message
		var personID sql.NullInt32
		if err := rows.Scan(
			&message.ID,
			&message.CreatorID,
			&message.CreatedTs,
			&personID,
			&message.Topic,
			&message.Role,
			&message.Content,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		if personID.Valid {
			message.PersonID = &personID.Int32
		}
		list = append(list, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// SearchMessagesByVector performs cosine similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// results are ordered by distance ascending to get most similar first.
func (d *DB) SearchMessagesByVector(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.MessageWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where := []string{"m.creator_id = $2"}
	vector := pgvector.NewVector(opts.Vector)
	args := []any{vector, opts.CreatorID}

	if v := opts.PersonID; v != nil {
		args = append(args, *v)
		where = append(where, "m.person_id = "+placeholder(len(args)))
	}
	args = append(args, limit)

	query := `
		SELECT
			m.id, m.creator_id, m.created_ts, m.person_id, m.topic, m.role, m.content,
			1 - (e.embedding <=> $1) AS score
		FROM message m
		INNER JOIN message_embedding e ON m.id = e.message_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.embedding <=> $1
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.MessageWithScore{}
	for rows.Next() {
		var result store.MessageWithScore
		var message store.Message
		var personID sql.NullInt32
		if err := rows.Scan(
			&message.ID,
			&message.CreatorID,
			&message.CreatedTs,
			&personID,
			&message.Topic,
			&message.Role,
			&message.Content,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		if personID.Valid {
			message.PersonID = &personID.Int32
		}
		result.Message = &message

		// Threshold filter applies post-query; pgvector orders by distance.
		if result.Score >= opts.Threshold {
			results = append(results, &result)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
