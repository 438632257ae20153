// Package boltdb implements RecordStore on an embedded bbolt file. Records
// are msgpack encoded under a composite key in a single bucket.
package boltdb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

var bucketUserData = []byte("user_data")

// keySep is the composite key separator. Using a null byte prevents collisions
// when userID, subject, or key contain ":" characters.
const keySep = "\x00"

func compositeKey(userID, subject, key string) []byte {
	return []byte(userID + keySep + subject + keySep + key)
}

// Store implements interfaces.RecordStore using bbolt
type Store struct {
	db     *bolt.DB
	logger *common.Logger
}

// NewStore opens the bbolt file at path, creating it and the bucket if needed
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create bbolt directory for %s: %w", path, err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt at %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUserData)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	logger.Info().Str("path", path).Msg("bbolt record store opened")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Get(_ context.Context, userID, subject, key string) (*models.UserRecord, error) {
	var rec *models.UserRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketUserData).Get(compositeKey(userID, subject, key))
		if raw == nil {
			return fmt.Errorf("%s '%s' for user '%s': %w", subject, key, userID, models.ErrNotFound)
		}
		// raw is only valid inside the transaction; decode copies it out.
		decoded, err := decode(raw)
		if err != nil {
			return err
		}
		rec = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Create(_ context.Context, rec *models.UserRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		ck := compositeKey(rec.UserID, rec.Subject, rec.Key)
		if b.Get(ck) != nil {
			return fmt.Errorf("%s '%s' for user '%s' already exists: %w", rec.Subject, rec.Key, rec.UserID, models.ErrVersionConflict)
		}
		data, err := encode(rec)
		if err != nil {
			return err
		}
		return b.Put(ck, data)
	})
}

// CompareAndSwap runs inside a single read-write transaction; bbolt
// serialises writers so the version check and put are atomic.
func (s *Store) CompareAndSwap(_ context.Context, rec *models.UserRecord, expectedVersion int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		ck := compositeKey(rec.UserID, rec.Subject, rec.Key)
		raw := b.Get(ck)
		if raw == nil {
			return fmt.Errorf("%s '%s' for user '%s' missing: %w", rec.Subject, rec.Key, rec.UserID, models.ErrVersionConflict)
		}
		current, err := decode(raw)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return fmt.Errorf("%s '%s' for user '%s' at version %d (stored %d): %w",
				rec.Subject, rec.Key, rec.UserID, expectedVersion, current.Version, models.ErrVersionConflict)
		}
		data, err := encode(rec)
		if err != nil {
			return err
		}
		return b.Put(ck, data)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encode(rec *models.UserRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (*models.UserRecord, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	var rec models.UserRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}

// Compile-time check
var _ interfaces.RecordStore = (*Store)(nil)
