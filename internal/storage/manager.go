// Package storage provides the top-level StorageManager that selects the
// record backend and builds the portfolio store on top of it.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/storage/boltdb"
	"github.com/bobmcallan/playground/internal/storage/memory"
	"github.com/bobmcallan/playground/internal/storage/sqlite"
	"github.com/bobmcallan/playground/internal/storage/surrealdb"
)

// Manager implements interfaces.StorageManager
type Manager struct {
	backend   string
	records   interfaces.RecordStore
	portfolio *PortfolioStore
	logger    *common.Logger
}

// NewManager opens the configured backend. Supported: memory, sqlite, bbolt, surrealdb.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	records, err := openRecordStore(logger, config.Storage)
	if err != nil {
		return nil, err
	}

	portfolio := NewPortfolioStore(records, logger,
		WithInitialCash(decimal.NewFromFloat(config.Playground.InitialCash).Round(2)),
		WithMaxCommitAttempts(config.Playground.MaxCommitAttempts),
		WithCommitBackoff(config.Playground.GetCommitBackoff()),
	)

	logger.Info().
		Str("backend", config.Storage.Backend).
		Int("max_commit_attempts", config.Playground.MaxCommitAttempts).
		Msg("Storage manager initialized")

	return &Manager{
		backend:   config.Storage.Backend,
		records:   records,
		portfolio: portfolio,
		logger:    logger,
	}, nil
}

// NewManagerWithStore wraps an already-open record store
func NewManagerWithStore(logger *common.Logger, backend string, records interfaces.RecordStore, opts ...PortfolioStoreOption) *Manager {
	return &Manager{
		backend:   backend,
		records:   records,
		portfolio: NewPortfolioStore(records, logger, opts...),
		logger:    logger,
	}
}

func openRecordStore(logger *common.Logger, cfg common.StorageConfig) (interfaces.RecordStore, error) {
	switch cfg.Backend {
	case common.BackendMemory:
		return memory.NewStore(), nil

	case common.BackendSQLite:
		store, err := sqlite.NewStore(logger, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil

	case common.BackendBolt:
		store, err := boltdb.NewStore(logger, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bbolt store: %w", err)
		}
		return store, nil

	case common.BackendSurrealDB:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store, err := surrealdb.Open(ctx, logger, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open surrealdb store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, bbolt, surrealdb)", cfg.Backend)
	}
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolio
}

func (m *Manager) Backend() string {
	return m.backend
}

func (m *Manager) Close() error {
	if err := m.records.Close(); err != nil {
		return fmt.Errorf("failed to close %s store: %w", m.backend, err)
	}
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
