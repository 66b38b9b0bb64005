// Package mysqlstore implements storage.Provider on MySQL, for silos that
// centralize actor checkpoints in a shared relational store rather than
// per-silo embedded files. Schema management mirrors sqlitestore's
// migration-driven approach, swapping golang-migrate's sqlite3 driver for
// its mysql one.
package mysqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/silocore/vactor/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a MySQL-backed storage.Provider.
type Store struct {
	db *sql.DB
}

// Open opens the MySQL database at dsn (in go-sql-driver/mysql DSN form)
// and applies pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqlstore: open: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateSchema(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("mysqlstore: migration driver: %w", err)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("mysqlstore: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		return fmt.Errorf("mysqlstore: migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("mysqlstore: migrate up: %w", err)
	}

	return nil
}

// Close implements storage.Provider.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveWithVersion implements storage.Provider.
func (s *Store) SaveWithVersion(ctx context.Context, stateType, key string, data []byte, expectedVersion int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysqlstore: begin: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM actor_state WHERE state_type = ? AND state_key = ? FOR UPDATE`,
		stateType, key,
	).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expectedVersion != 0 {
			return 0, storage.ErrVersionConflict
		}
	case err != nil:
		return 0, fmt.Errorf("mysqlstore: read version: %w", err)
	default:
		if current != expectedVersion {
			return 0, storage.ErrVersionConflict
		}
	}

	newVersion := expectedVersion + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actor_state (state_type, state_key, data, version)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE data = VALUES(data), version = VALUES(version)`,
		stateType, key, data, newVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("mysqlstore: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysqlstore: commit: %w", err)
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
		return storage.Record{}, fmt.Errorf("mysqlstore: load: %w", err)
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
		return fmt.Errorf("mysqlstore: delete: %w", err)
	}
	return nil
}

var _ storage.Provider = (*Store)(nil)
