package archive

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/powerlog"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	// WAL keeps the archive readable during writes and survives abrupt
	// power loss with at most the last transaction rolled back
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	logger.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Event archive initialized")

	return &repository{db: db}, nil
}

func (r *repository) Record(event powerlog.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	if _, err := r.db.Exec(insertEventSQL, event.At, string(event.Kind), event.Duration); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	return nil
}
