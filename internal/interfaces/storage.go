// Package interfaces defines service contracts for Playground
package interfaces

import (
	"context"

	"github.com/bobmcallan/playground/internal/models"
)

// StorageManager owns the configured record backend and the portfolio store
// built on top of it.
type StorageManager interface {
	PortfolioStore() PortfolioStore

	// Backend names the active backend (memory, sqlite, bbolt, surrealdb).
	Backend() string

	// Lifecycle
	Close() error
}

// RecordStore is a versioned document store keyed by (user_id, subject, key).
//
// Get returns models.ErrNotFound when the record is absent.
// Create fails with models.ErrVersionConflict when the record already exists.
// CompareAndSwap writes rec only if the stored version equals expectedVersion,
// otherwise it returns models.ErrVersionConflict. The caller sets rec.Version.
type RecordStore interface {
	Get(ctx context.Context, userID, subject, key string) (*models.UserRecord, error)
	Create(ctx context.Context, rec *models.UserRecord) error
	CompareAndSwap(ctx context.Context, rec *models.UserRecord, expectedVersion int) error
	Close() error
}

// MutationFunc edits a working copy of a portfolio inside Commit. Returning
// an error aborts the commit with nothing written.
type MutationFunc func(p *models.Portfolio) error

// PortfolioStore is the authoritative per-user cash and holdings state.
type PortfolioStore interface {
	// Load returns the user's portfolio, creating it with the default
	// endowment on first access.
	Load(ctx context.Context, userID string) (*models.Portfolio, error)

	// Commit applies mutate atomically with respect to concurrent commits for
	// the same user, retrying on version conflicts.
	Commit(ctx context.Context, userID string, mutate MutationFunc) (*models.Portfolio, error)
}
