package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/store"
)

func (d *DB) CreatePerson(ctx context.Context, create *store.Person) (*store.Person, error) {
	fields := []string{"creator_id", "name", "role", "relationship", "last_contact_ts"}
	args := []any{create.CreatorID, create.Name, create.Role, create.Relationship, create.LastContactTs}

	stmt := "INSERT INTO person (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id, created_ts, updated_ts"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create person")
	}

	return create, nil
}

func (d *DB) ListPersons(ctx context.Context, find *store.FindPerson) ([]*store.Person, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Name; v != nil {
		where, args = append(where, "LOWER(name) = LOWER("+placeholder(len(args)+1)+")"), append(args, *v)
	}

	query := `
		SELECT id, creator_id, created_ts, updated_ts, name, role, relationship, last_contact_ts
		FROM person
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list persons")
	}
	defer rows.Close()

	list := []*store.Person{}
	for rows.Next() {
		var person store.Person
		if err := rows.Scan(
			&person.ID,
			&person.CreatorID,
			&person.CreatedTs,
			&person.UpdatedTs,
			&person.Name,
			&person.Role,
			&person.Relationship,
			&person.LastContactTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan person")
		}
		list = append(list, &person)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdatePerson(ctx context.Context, update *store.UpdatePerson) (*store.Person, error) {
	set, args := []string{}, []any{}

	if v := update.Role; v != nil {
		set, args = append(set, "role = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Relationship; v != nil {
		set, args = append(set, "relationship = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastContactTs; v != nil {
		set, args = append(set, "last_contact_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	updatedTs := time.Now().Unix()
	if v := update.UpdatedTs; v != nil {
		updatedTs = *v
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, updatedTs)
	args = append(args, update.ID)

	stmt := `
		UPDATE person
		SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, creator_id, created_ts, updated_ts, name, role, relationship, last_contact_ts
	`
	var person store.Person
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&person.ID,
		&person.CreatorID,
		&person.CreatedTs,
		&person.UpdatedTs,
		&person.Name,
		&person.Role,
		&person.Relationship,
		&person.LastContactTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update person")
	}

	return &person, nil
}

func (d *DB) DeletePerson(ctx context.Context, delete *store.DeletePerson) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM person WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete person")
	}
	return nil
}
