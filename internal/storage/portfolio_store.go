package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// DefaultMaxCommitAttempts bounds the optimistic retry loop in Commit.
const DefaultMaxCommitAttempts = 5

// PortfolioStore implements interfaces.PortfolioStore on top of any
// versioned RecordStore. Atomicity comes from compare-and-swap on the record
// version; there is no in-process locking.
type PortfolioStore struct {
	records     interfaces.RecordStore
	logger      *common.Logger
	initialCash decimal.Decimal
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// PortfolioStoreOption configures a PortfolioStore
type PortfolioStoreOption func(*PortfolioStore)

// WithInitialCash sets the endowment of newly created portfolios
func WithInitialCash(cash decimal.Decimal) PortfolioStoreOption {
	return func(s *PortfolioStore) {
		s.initialCash = cash
	}
}

// WithMaxCommitAttempts sets how many read-mutate-swap cycles Commit tries
func WithMaxCommitAttempts(n int) PortfolioStoreOption {
	return func(s *PortfolioStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithCommitBackoff sets the base delay between conflicting attempts
func WithCommitBackoff(d time.Duration) PortfolioStoreOption {
	return func(s *PortfolioStore) {
		s.backoff = d
	}
}

// WithClock overrides time.Now for created_at/updated_at stamps
func WithClock(now func() time.Time) PortfolioStoreOption {
	return func(s *PortfolioStore) {
		s.now = now
	}
}

// NewPortfolioStore creates a PortfolioStore over the given record backend
func NewPortfolioStore(records interfaces.RecordStore, logger *common.Logger, opts ...PortfolioStoreOption) *PortfolioStore {
	s := &PortfolioStore{
		records:     records,
		logger:      logger,
		initialCash: models.DefaultInitialCash,
		maxAttempts: DefaultMaxCommitAttempts,
		backoff:     10 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the user's portfolio, creating it on first access. When two
// first loads race, the loser re-reads and returns the winner's record.
func (s *PortfolioStore) Load(ctx context.Context, userID string) (*models.Portfolio, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	p, err := s.read(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	p = models.NewPortfolio(userID, s.initialCash, s.now().UTC())
	p.Version = 1
	rec, err := encodePortfolio(p)
	if err != nil {
		return nil, err
	}

	err = s.records.Create(ctx, rec)
	switch {
	case err == nil:
		s.logger.Info().
			Str("user_id", userID).
			Str("cash", p.Cash.StringFixed(2)).
			Msg("Created playground portfolio")
		return p, nil
	case errors.Is(err, models.ErrVersionConflict):
		s.logger.Debug().Str("user_id", userID).Msg("Lost portfolio create race, re-reading")
		return s.read(ctx, userID)
	default:
		return nil, fmt.Errorf("failed to create portfolio for %s: %w", userID, err)
	}
}

// Commit reads the current portfolio, applies mutate to a copy and swaps it
// in if nobody else committed meanwhile. On conflict the whole cycle restarts
// from a fresh read. A mutate error aborts with nothing written.
func (s *PortfolioStore) Commit(ctx context.Context, userID string, mutate interfaces.MutationFunc) (*models.Portfolio, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.Load(ctx, userID)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, fmt.Errorf("refusing to commit invalid portfolio for %s: %w", userID, err)
		}
		next.UserID = current.UserID
		next.Version = current.Version + 1
		next.UpdatedAt = s.now().UTC()

		rec, err := encodePortfolio(next)
		if err != nil {
			return nil, err
		}

		err = s.records.CompareAndSwap(ctx, rec, current.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to commit portfolio for %s: %w", userID, err)
		}

		s.logger.Debug().
			Str("user_id", userID).
			Int("attempt", attempt).
			Int("expected_version", current.Version).
			Msg("Portfolio commit conflict, retrying")

		if attempt < s.maxAttempts {
			if err := s.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Warn().
		Str("user_id", userID).
		Int("attempts", s.maxAttempts).
		Msg("Portfolio commit retries exhausted")
	return nil, fmt.Errorf("%w (after %d attempts)", models.ErrTransientStoreConflict, s.maxAttempts)
}

// sleep waits attempt*backoff plus up to one backoff of jitter.
func (s *PortfolioStore) sleep(ctx context.Context, attempt int) error {
	if s.backoff <= 0 {
		return ctx.Err()
	}
	delay := time.Duration(attempt)*s.backoff + rand.N(s.backoff)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *PortfolioStore) read(ctx context.Context, userID string) (*models.Portfolio, error) {
	rec, err := s.records.Get(ctx, userID, models.SubjectPlayground, models.KeyPortfolio)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read portfolio for %s: %w", userID, err)
	}
	return decodePortfolio(rec)
}

func encodePortfolio(p *models.Portfolio) (*models.UserRecord, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode portfolio: %w", err)
	}
	return &models.UserRecord{
		UserID:   p.UserID,
		Subject:  models.SubjectPlayground,
		Key:      models.KeyPortfolio,
		Value:    string(data),
		Version:  p.Version,
		DateTime: p.UpdatedAt,
	}, nil
}

func decodePortfolio(rec *models.UserRecord) (*models.Portfolio, error) {
	var p models.Portfolio
	if err := json.Unmarshal([]byte(rec.Value), &p); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio for %s: %w", rec.UserID, err)
	}
	// The record envelope is authoritative for identity and version.
	p.UserID = rec.UserID
	p.Version = rec.Version
	if p.Holdings == nil {
		p.Holdings = []models.Holding{}
	}
	return &p, nil
}

// Compile-time check
var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)
