// Package sqlitestore implements storage.Provider on a local SQLite
// database, following the schema-on-open idiom used by the pack's queue
// store (Roasbeef-substrate's internal/queue/store.go), but applying its
// migrations through golang-migrate instead of an inline CREATE TABLE IF
// NOT EXISTS string so schema evolution is tracked like the teacher's main
// store does via internal/db.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/silocore/vactor/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a SQLite-backed storage.Provider.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dsn and applies pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateSchema(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlitestore: migration driver: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlitestore: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("sqlitestore: migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlitestore: migrate up: %w", err)
	}

	return nil
}

// Close implements storage.Provider.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveWithVersion implements storage.Provider: inside one transaction it
// reads the stored version, rejects a mismatch with ErrVersionConflict, and
// then UPSERTs the new data and version.
func (s *Store) SaveWithVersion(ctx context.Context, stateType, key string, data []byte, expectedVersion int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM actor_state WHERE state_type = ? AND state_key = ?`,
		stateType, key,
	).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expectedVersion != 0 {
			return 0, storage.ErrVersionConflict
		}
	case err != nil:
		return 0, fmt.Errorf("sqlitestore: read version: %w", err)
	default:
		if current != expectedVersion {
			return 0, storage.ErrVersionConflict
		}
	}

	newVersion := expectedVersion + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actor_state (state_type, state_key, data, version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(state_type, state_key)
		DO UPDATE SET data = excluded.data, version = excluded.version`,
		stateType, key, data, newVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlitestore: commit: %w", err)
	}

	return newVersion, nil
}

// LoadWithVersion implements storage.Provider.
func (s *Store) LoadWithVersion(ctx context.Context, stateType, key string) (storage.Record, error) {
	var rec storage.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM actor_state WHERE state_type = ? AND state_key = ?`,
		stateType, key,
	).Scan(&rec.Data, &rec.Version)

	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("sqlitestore: load: %w", err)
	}

	return rec, nil
}

// Delete implements storage.Provider.
func (s *Store) Delete(ctx context.Context, stateType, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM actor_state WHERE state_type = ? AND state_key = ?`,
		stateType, key,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete: %w", err)
	}
	return nil
}

var _ storage.Provider = (*Store)(nil)
