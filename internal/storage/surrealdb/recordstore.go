// Package surrealdb implements RecordStore on SurrealDB documents.
package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

const recordTable = "user_data"

// RecordStore implements interfaces.RecordStore with one document per
// (user_id, subject, key) in the user_data table.
type RecordStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	owned  bool
}

// NewRecordStore wraps an existing connection. The caller keeps ownership.
func NewRecordStore(db *surrealdb.DB, logger *common.Logger) *RecordStore {
	return &RecordStore{db: db, logger: logger}
}

// Open connects with config and returns a store that closes the connection on Close.
func Open(ctx context.Context, logger *common.Logger, config common.StorageConfig) (*RecordStore, error) {
	db, err := Connect(ctx, logger, config)
	if err != nil {
		return nil, err
	}
	return &RecordStore{db: db, logger: logger, owned: true}, nil
}

func recordID(userID, subject, key string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(recordTable, userID+"_"+subject+"_"+key)
}

func (s *RecordStore) Get(ctx context.Context, userID, subject, key string) (*models.UserRecord, error) {
	record, err := surrealdb.Select[models.UserRecord](ctx, s.db, recordID(userID, subject, key))
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%s '%s' for user '%s': %w", subject, key, userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select user record: %w", err)
	}
	if record == nil || record.UserID == "" {
		return nil, fmt.Errorf("%s '%s' for user '%s': %w", subject, key, userID, models.ErrNotFound)
	}
	return record, nil
}

// Create inserts the record only if its id is unused. SurrealDB rejects
// CREATE on an existing id; that rejection is reported as a version conflict.
func (s *RecordStore) Create(ctx context.Context, rec *models.UserRecord) error {
	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{
		"rid":    recordID(rec.UserID, rec.Subject, rec.Key),
		"record": rec,
	}

	results, err := surrealdb.Query[[]models.UserRecord](ctx, s.db, sql, vars)
	if err == nil && results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return nil
	}

	// Either the statement failed or returned nothing. Distinguish "already
	// there" from a real failure by reading the id back.
	if _, getErr := s.Get(ctx, rec.UserID, rec.Subject, rec.Key); getErr == nil {
		return fmt.Errorf("%s '%s' for user '%s' already exists: %w", rec.Subject, rec.Key, rec.UserID, models.ErrVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user record: %w", err)
	}
	return fmt.Errorf("failed to create user record: empty result")
}

// CompareAndSwap replaces the document only while its stored version equals
// expectedVersion. An empty result means the WHERE clause did not match.
func (s *RecordStore) CompareAndSwap(ctx context.Context, rec *models.UserRecord, expectedVersion int) error {
	sql := "UPDATE $rid CONTENT $record WHERE version = $expected RETURN AFTER"
	vars := map[string]any{
		"rid":      recordID(rec.UserID, rec.Subject, rec.Key),
		"record":   rec,
		"expected": expectedVersion,
	}

	results, err := surrealdb.Query[[]models.UserRecord](ctx, s.db, sql, vars)
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%s '%s' for user '%s': %v: %w", rec.Subject, rec.Key, rec.UserID, err, models.ErrVersionConflict)
		}
		return fmt.Errorf("failed to update user record: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("%s '%s' for user '%s' at version %d: %w", rec.Subject, rec.Key, rec.UserID, expectedVersion, models.ErrVersionConflict)
	}
	return nil
}

func (s *RecordStore) Close() error {
	if s.owned {
		s.db.Close(context.Background())
	}
	return nil
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

// isConflictError matches SurrealDB's optimistic transaction failure when two
// writers touch the same document concurrently.
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrVersionConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "conflict") || strings.Contains(msg, "can be retried")
}

// Compile-time check
var _ interfaces.RecordStore = (*RecordStore)(nil)
