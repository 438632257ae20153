// Package memory implements an in-process RecordStore for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

const keySep = "\x00"

func compositeKey(userID, subject, key string) string {
	return userID + keySep + subject + keySep + key
}

// Store is a mutex-guarded map of records
type Store struct {
	mu      sync.Mutex
	records map[string]models.UserRecord
}

// NewStore creates an empty in-memory record store
func NewStore() *Store {
	return &Store{records: make(map[string]models.UserRecord)}
}

func (s *Store) Get(_ context.Context, userID, subject, key string) (*models.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[compositeKey(userID, subject, key)]
	if !ok {
		return nil, fmt.Errorf("%s '%s' for user '%s': %w", subject, key, userID, models.ErrNotFound)
	}
	return &rec, nil
}

func (s *Store) Create(_ context.Context, rec *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck := compositeKey(rec.UserID, rec.Subject, rec.Key)
	if _, exists := s.records[ck]; exists {
		return fmt.Errorf("%s '%s' for user '%s' already exists: %w", rec.Subject, rec.Key, rec.UserID, models.ErrVersionConflict)
	}
	s.records[ck] = *rec
	return nil
}

func (s *Store) CompareAndSwap(_ context.Context, rec *models.UserRecord, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck := compositeKey(rec.UserID, rec.Subject, rec.Key)
	current, exists := s.records[ck]
	if !exists || current.Version != expectedVersion {
		return fmt.Errorf("%s '%s' for user '%s' at version %d: %w", rec.Subject, rec.Key, rec.UserID, expectedVersion, models.ErrVersionConflict)
	}
	s.records[ck] = *rec
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.RecordStore = (*Store)(nil)
