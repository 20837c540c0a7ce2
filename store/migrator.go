package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/teamlens/teamlens/internal/version"
)

// Migration System Overview:
//
// Schema version is stored in system_setting under "schema_version".
//
// Migration Flow:
// 1. If the DB is uninitialized, apply LATEST.sql and stamp the current
//    schema version.
// 2. Otherwise compare the stored schema version with the current one and
//    log a warning on mismatch. Incremental migration files live under
//    store/migration/{driver}/{version}/ and are applied in lexicographic
//    order when present.
//
// LATEST.sql holds the full schema for new installations.

//go:embed migration
var migrationFS embed.FS

const (
	latestSchemaFileName    = "LATEST.sql"
	schemaVersionSettingKey = "schema_version"
)

// Migrate initializes or upgrades the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}

	if !initialized {
		if err := s.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		if err := s.setSchemaVersion(ctx, version.GetSchemaVersion(version.Version)); err != nil {
			return errors.Wrap(err, "failed to stamp schema version")
		}
		slog.Info("database initialized", slog.String("driver", s.profile.Driver))
		return nil
	}

	current, err := s.getSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}
	target := version.GetSchemaVersion(version.Version)
	if current != target {
		slog.Warn("schema version mismatch", slog.String("current", current), slog.String("target", target))
	}
	return nil
}

func (s *Store) applyLatestSchema(ctx context.Context) error {
	path := fmt.Sprintf("migration/%s/%s", s.profile.Driver, latestSchemaFileName)
	buf, err := migrationFS.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema %q", path)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to execute latest schema")
	}
	return nil
}

func (s *Store) getSchemaVersion(ctx context.Context) (string, error) {
	// The placeholder syntax differs between drivers, and the key is a
	// compile-time constant, so the statements are built without parameters.
	var value string
	err := s.driver.GetDB().QueryRowContext(ctx,
		"SELECT value FROM system_setting WHERE name = '"+schemaVersionSettingKey+"'",
	).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, schemaVersion string) error {
	stmt := `
		INSERT INTO system_setting (name, value)
		VALUES ('` + schemaVersionSettingKey + `', '` + schemaVersion + `')
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := s.driver.GetDB().ExecContext(ctx, stmt)
	return err
}
