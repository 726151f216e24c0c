package archive

import (
	"database/sql"

	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS power_events (
	       id        INTEGER PRIMARY KEY AUTOINCREMENT,
	       at        INTEGER NOT NULL,
	       type      TEXT NOT NULL CHECK (type IN ('on', 'off')),
	       duration  INTEGER NOT NULL CHECK (duration >= 0)
	   );
	   CREATE INDEX IF NOT EXISTS idx_power_events_at ON power_events(at);`

	insertEventSQL = `
    INSERT INTO power_events (at, type, duration)
    VALUES (?, ?, ?)`
)

// InitSchema creates the archive schema with the current version.
func InitSchema(db *sql.DB) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}
	if version == SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	logger.Info().
		Int("version", SchemaVersion).
		Msg("Archive schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 when the
// database is fresh.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name='schema_versions'
        )
    `).Scan(&exists)
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	return version, nil
}
