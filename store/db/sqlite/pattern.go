package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/store"
)

func (d *DB) CreatePattern(ctx context.Context, create *store.Pattern) (*store.Pattern, error) {
	personIDs, err := json.Marshal(valueOrEmpty(create.PersonIDs))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal person ids")
	}
	keywords, err := json.Marshal(valueOrEmptyStr(create.Keywords))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal keywords")
	}
	actions, err := json.Marshal(valueOrEmptyStr(create.SuggestedActs))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal suggested actions")
	}

	fields := []string{"uid", "creator_id", "kind", "description", "frequency", "confidence", "last_occurred_ts", "person_ids", "keywords", "suggested_actions"}
	args := []any{create.UID, create.CreatorID, create.Kind, create.Description, create.Frequency, create.Confidence, create.LastOccurred, string(personIDs), string(keywords), string(actions)}

	stmt := "INSERT INTO pattern (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id, created_ts"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create pattern")
	}

	return create, nil
}

func (d *DB) ListPatterns(ctx context.Context, find *store.FindPattern) ([]*store.Pattern, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Kind; v != nil {
		where, args = append(where, "kind = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, creator_id, created_ts, kind, description, frequency, confidence, last_occurred_ts, person_ids, keywords, suggested_actions
		FROM pattern
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY frequency DESC, last_occurred_ts DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patterns")
	}
	defer rows.Close()

	list := []*store.Pattern{}
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdatePattern(ctx context.Context, update *store.UpdatePattern) (*store.Pattern, error) {
	set, args := []string{}, []any{}

	if v := update.Frequency; v != nil {
		set, args = append(set, "frequency = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Confidence; v != nil {
		set, args = append(set, "confidence = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastOccurred; v != nil {
		set, args = append(set, "last_occurred_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.PersonIDs; v != nil {
		buf, err := json.Marshal(*v)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal person ids")
		}
		set, args = append(set, "person_ids = "+placeholder(len(args)+1)), append(args, string(buf))
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `
		UPDATE pattern
		SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, creator_id, created_ts, kind, description, frequency, confidence, last_occurred_ts, person_ids, keywords, suggested_actions
	`
	row := d.db.QueryRowContext(ctx, stmt, args...)
	pattern, err := scanPattern(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update pattern")
	}
	return pattern, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*store.Pattern, error) {
	var pattern store.Pattern
	var personIDs, keywords, actions string
	if err := row.Scan(
		&pattern.ID,
		&pattern.UID,
		&pattern.CreatorID,
		&pattern.CreatedTs,
		&pattern.Kind,
		&pattern.Description,
		&pattern.Frequency,
		&pattern.Confidence,
		&pattern.LastOccurred,
		&personIDs,
		&keywords,
		&actions,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan pattern")
	}
	if err := json.Unmarshal([]byte(personIDs), &pattern.PersonIDs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal person ids")
	}
	if err := json.Unmarshal([]byte(keywords), &pattern.Keywords); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal keywords")
	}
	if err := json.Unmarshal([]byte(actions), &pattern.SuggestedActs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal suggested actions")
	}
	return &pattern, nil
}

func valueOrEmpty(v []int32) []int32 {
	if v == nil {
		return []int32{}
	}
	return v
}

func valueOrEmptyStr(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
