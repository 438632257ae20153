// Package sqlite implements RecordStore on an embedded SQLite database using
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_data (
	user_id  TEXT    NOT NULL,
	subject  TEXT    NOT NULL,
	key      TEXT    NOT NULL,
	value    TEXT    NOT NULL,
	version  INTEGER NOT NULL,
	datetime TEXT    NOT NULL,
	PRIMARY KEY (user_id, subject, key)
)`

// Store implements interfaces.RecordStore using SQLite
type Store struct {
	db     *sql.DB
	logger *common.Logger
}

// NewStore opens (or creates) the database at path and applies the schema
func NewStore(logger *common.Logger, path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", buildConnectionString(absPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", absPath, err)
	}

	// SQLite allows a single writer. One connection serialises commits
	// instead of surfacing SQLITE_BUSY to the retry loop.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(24 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", absPath, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	logger.Info().Str("path", absPath).Msg("SQLite record store opened")
	return &Store{db: db, logger: logger}, nil
}

// buildConnectionString enables WAL with full fsync: portfolio records are
// the system of record.
func buildConnectionString(path string) string {
	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(FULL)"
	connStr += "&_pragma=busy_timeout(5000)"
	connStr += "&_pragma=foreign_keys(1)"
	return connStr
}

func (s *Store) Get(ctx context.Context, userID, subject, key string) (*models.UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, version, datetime FROM user_data WHERE user_id = ? AND subject = ? AND key = ?`,
		userID, subject, key)

	rec := models.UserRecord{UserID: userID, Subject: subject, Key: key}
	var stamp string
	if err := row.Scan(&rec.Value, &rec.Version, &stamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s '%s' for user '%s': %w", subject, key, userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s '%s': %w", subject, key, err)
	}
	if stamp != "" {
		t, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse datetime for %s '%s': %w", subject, key, err)
		}
		rec.DateTime = t
	}
	return &rec, nil
}

func (s *Store) Create(ctx context.Context, rec *models.UserRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_data (user_id, subject, key, value, version, datetime)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, subject, key) DO NOTHING`,
		rec.UserID, rec.Subject, rec.Key, rec.Value, rec.Version, formatTime(rec.DateTime))
	if err != nil {
		return fmt.Errorf("failed to create %s '%s': %w", rec.Subject, rec.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s '%s' for user '%s' already exists: %w", rec.Subject, rec.Key, rec.UserID, models.ErrVersionConflict)
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, rec *models.UserRecord, expectedVersion int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_data SET value = ?, version = ?, datetime = ?
		 WHERE user_id = ? AND subject = ? AND key = ? AND version = ?`,
		rec.Value, rec.Version, formatTime(rec.DateTime),
		rec.UserID, rec.Subject, rec.Key, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update %s '%s': %w", rec.Subject, rec.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s '%s' for user '%s' at version %d: %w", rec.Subject, rec.Key, rec.UserID, expectedVersion, models.ErrVersionConflict)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Compile-time check
var _ interfaces.RecordStore = (*Store)(nil)
