// Package storagetest holds the behaviour every RecordStore backend must
// share, plus container helpers for backend tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
	"github.com/bobmcallan/playground/internal/storage"
)

// Factory returns a fresh, empty RecordStore for one test.
type Factory func(t *testing.T) interfaces.RecordStore

// RunRecordStoreTests exercises the Get/Create/CompareAndSwap contract.
func RunRecordStoreTests(t *testing.T, newStore Factory) {
	t.Run("GetNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "nobody", models.SubjectPlayground, models.KeyPortfolio)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		rec := record("alice", 1, `{"cash":"100"}`)

		require.NoError(t, store.Create(ctx, rec))

		got, err := store.Get(ctx, "alice", models.SubjectPlayground, models.KeyPortfolio)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, models.SubjectPlayground, got.Subject)
		assert.Equal(t, models.KeyPortfolio, got.Key)
		assert.Equal(t, `{"cash":"100"}`, got.Value)
		assert.Equal(t, 1, got.Version)
		assert.True(t, rec.DateTime.Equal(got.DateTime), "datetime %v != %v", got.DateTime, rec.DateTime)
	})

	t.Run("CreateExistingConflicts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, record("bob", 1, `{"n":1}`)))

		err := store.Create(ctx, record("bob", 1, `{"n":2}`))
		assert.ErrorIs(t, err, models.ErrVersionConflict)

		got, err := store.Get(ctx, "bob", models.SubjectPlayground, models.KeyPortfolio)
		require.NoError(t, err)
		assert.Equal(t, `{"n":1}`, got.Value, "losing create must not overwrite")
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, record("carol", 1, `{"n":1}`)))

		require.NoError(t, store.CompareAndSwap(ctx, record("carol", 2, `{"n":2}`), 1))

		stale := store.CompareAndSwap(ctx, record("carol", 2, `{"n":"stale"}`), 1)
		assert.ErrorIs(t, stale, models.ErrVersionConflict)

		got, err := store.Get(ctx, "carol", models.SubjectPlayground, models.KeyPortfolio)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, `{"n":2}`, got.Value)
	})

	t.Run("CompareAndSwapMissing", func(t *testing.T) {
		store := newStore(t)
		err := store.CompareAndSwap(context.Background(), record("dave", 2, `{}`), 1)
		assert.ErrorIs(t, err, models.ErrVersionConflict)
	})

	t.Run("UsersIsolated", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, record("u1", 1, `{"who":"u1"}`)))
		require.NoError(t, store.Create(ctx, record("u2", 1, `{"who":"u2"}`)))

		got, err := store.Get(ctx, "u2", models.SubjectPlayground, models.KeyPortfolio)
		require.NoError(t, err)
		assert.Equal(t, `{"who":"u2"}`, got.Value)
	})
}

// RunPortfolioStoreTests exercises Load/Commit over a backend, including
// concurrent commits for one user.
func RunPortfolioStoreTests(t *testing.T, newStore Factory) {
	logger := common.NewSilentLogger()

	t.Run("LoadIsIdempotent", func(t *testing.T) {
		ps := storage.NewPortfolioStore(newStore(t), logger)
		ctx := context.Background()

		first, err := ps.Load(ctx, "new-user")
		require.NoError(t, err)
		second, err := ps.Load(ctx, "new-user")
		require.NoError(t, err)

		assert.True(t, first.Cash.Equal(models.DefaultInitialCash))
		assert.True(t, second.Cash.Equal(first.Cash))
		assert.Empty(t, second.Holdings)
		assert.Equal(t, first.Version, second.Version)
	})

	t.Run("ConcurrentFirstLoadsAgree", func(t *testing.T) {
		ps := storage.NewPortfolioStore(newStore(t), logger)
		ctx := context.Background()

		const n = 8
		var wg sync.WaitGroup
		results := make([]*models.Portfolio, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = ps.Load(ctx, "racer")
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0].CreatedAt.UnixNano(), results[i].CreatedAt.UnixNano(), "loads diverged")
		}
	})

	t.Run("MutateErrorWritesNothing", func(t *testing.T) {
		ps := storage.NewPortfolioStore(newStore(t), logger)
		ctx := context.Background()

		before, err := ps.Load(ctx, "u")
		require.NoError(t, err)

		boom := fmt.Errorf("rejected")
		_, err = ps.Commit(ctx, "u", func(p *models.Portfolio) error {
			p.Cash = decimal.Zero
			return boom
		})
		assert.ErrorIs(t, err, boom)

		after, err := ps.Load(ctx, "u")
		require.NoError(t, err)
		assert.True(t, after.Cash.Equal(before.Cash))
		assert.Equal(t, before.Version, after.Version)
	})

	t.Run("CommitBumpsVersion", func(t *testing.T) {
		ps := storage.NewPortfolioStore(newStore(t), logger)
		ctx := context.Background()

		before, err := ps.Load(ctx, "u")
		require.NoError(t, err)

		after, err := ps.Commit(ctx, "u", func(p *models.Portfolio) error {
			p.Cash = p.Cash.Sub(decimal.NewFromInt(500))
			p.SetHolding(models.Holding{Ticker: "ACME", Shares: decimal.NewFromInt(10), AvgCost: decimal.NewFromInt(50)})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, before.Version+1, after.Version)

		reloaded, err := ps.Load(ctx, "u")
		require.NoError(t, err)
		assert.True(t, reloaded.Cash.Equal(decimal.NewFromInt(99500)), "cash = %s", reloaded.Cash)
		h, ok := reloaded.Holding("ACME")
		require.True(t, ok)
		assert.True(t, h.Shares.Equal(decimal.NewFromInt(10)))
		assert.True(t, h.AvgCost.Equal(decimal.NewFromInt(50)))
	})

	t.Run("InvalidResultRejected", func(t *testing.T) {
		ps := storage.NewPortfolioStore(newStore(t), logger)
		ctx := context.Background()

		_, err := ps.Commit(ctx, "u", func(p *models.Portfolio) error {
			p.Cash = decimal.NewFromInt(-1)
			return nil
		})
		require.Error(t, err)

		p, err := ps.Load(ctx, "u")
		require.NoError(t, err)
		assert.True(t, p.Cash.Equal(models.DefaultInitialCash))
	})

	t.Run("ConcurrentCommitsApplyOnce", func(t *testing.T) {
		const n = 16
		ps := storage.NewPortfolioStore(newStore(t), logger,
			storage.WithMaxCommitAttempts(n*4),
			storage.WithCommitBackoff(time.Millisecond),
		)
		ctx := context.Background()
		cost := decimal.RequireFromString("12.34")

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = ps.Commit(ctx, "busy", func(p *models.Portfolio) error {
					p.Cash = p.Cash.Sub(cost)
					lot, _ := p.Holding("ACME")
					if lot.Ticker == "" {
						lot = models.Holding{Ticker: "ACME", AvgCost: cost}
					}
					lot.Shares = lot.Shares.Add(decimal.NewFromInt(1))
					p.SetHolding(lot)
					return nil
				})
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			require.NoError(t, err, "commit %d", i)
		}

		p, err := ps.Load(ctx, "busy")
		require.NoError(t, err)
		want := models.DefaultInitialCash.Sub(cost.Mul(decimal.NewFromInt(n)))
		assert.True(t, p.Cash.Equal(want), "cash = %s, want %s", p.Cash, want)
		h, ok := p.Holding("ACME")
		require.True(t, ok)
		assert.True(t, h.Shares.Equal(decimal.NewFromInt(n)), "shares = %s", h.Shares)
		assert.Equal(t, n+1, p.Version)
	})
}

func record(userID string, version int, value string) *models.UserRecord {
	return &models.UserRecord{
		UserID:   userID,
		Subject:  models.SubjectPlayground,
		Key:      models.KeyPortfolio,
		Value:    value,
		Version:  version,
		DateTime: time.Now().UTC().Truncate(time.Millisecond),
	}
}
