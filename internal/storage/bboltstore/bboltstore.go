// Package bboltstore implements storage.Provider on an embedded bbolt
// database, one bucket per stateType, following the bucket-per-entity-kind
// layout used by the pack's bbolt store (grixate-squidbot's
// internal/storage/bbolt). Writes run in bbolt's own serialized Update
// transactions.
package bboltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/silocore/vactor/internal/storage"
)

var versionSuffix = []byte("\x00__version")

// Store is a bbolt-backed storage.Provider.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) a bbolt database at path, one bucket
// created lazily per stateType on first use.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bboltstore: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bboltstore: %w", err)
	}

	return &Store{db: db}, nil
}

// Close implements storage.Provider.
func (s *Store) Close() error {
	return s.db.Close()
}

func versionKey(key string) []byte {
	return append([]byte(key), versionSuffix...)
}

// SaveWithVersion implements storage.Provider.
func (s *Store) SaveWithVersion(_ context.Context, stateType, key string, data []byte, expectedVersion int64) (int64, error) {
	var newVersion int64

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(stateType))
		if err != nil {
			return err
		}

		var cur int64
		if raw := bucket.Get(versionKey(key)); raw != nil {
			cur = int64(binary.BigEndian.Uint64(raw))
		}

		if cur != expectedVersion {
			return storage.ErrVersionConflict
		}

		newVersion = cur + 1

		verBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(verBuf, uint64(newVersion))

		if err := bucket.Put([]byte(key), data); err != nil {
			return err
		}
		return bucket.Put(versionKey(key), verBuf)
	})
	if err != nil {
		return 0, err
	}

	return newVersion, nil
}

// LoadWithVersion implements storage.Provider.
func (s *Store) LoadWithVersion(_ context.Context, stateType, key string) (storage.Record, error) {
	var rec storage.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateType))
		if bucket == nil {
			return storage.ErrNotFound
		}

		data := bucket.Get([]byte(key))
		verRaw := bucket.Get(versionKey(key))
		if data == nil && verRaw == nil {
			return storage.ErrNotFound
		}

		rec.Data = append([]byte(nil), data...)
		if verRaw != nil {
			rec.Version = int64(binary.BigEndian.Uint64(verRaw))
		}
		return nil
	})
	if err != nil {
		return storage.Record{}, err
	}

	return rec, nil
}

// Delete implements storage.Provider.
func (s *Store) Delete(_ context.Context, stateType, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(stateType))
		if bucket == nil {
			return nil
		}
		if err := bucket.Delete([]byte(key)); err != nil {
			return err
		}
		return bucket.Delete(versionKey(key))
	})
}

var _ storage.Provider = (*Store)(nil)

// IsConflict reports whether err is (or wraps) a version conflict.
func IsConflict(err error) bool {
	return errors.Is(err, storage.ErrVersionConflict)
}
