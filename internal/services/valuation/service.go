// Package valuation values portfolios at live prices
package valuation

import (
	"context"
	"time"

	"github.com/bobmcallan/playground/internal/cache"
	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// Service implements ValuationService with a per-ticker price cache.
type Service struct {
	prices interfaces.PriceProvider
	cache  *cache.Cache[string, float64]
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates a valuation service. prices may be nil, in which case
// every holding is valued at its average cost.
func NewService(prices interfaces.PriceProvider, priceTTL time.Duration, logger *common.Logger) *Service {
	return &Service{
		prices: prices,
		cache:  cache.New[string, float64](priceTTL),
		logger: logger,
		now:    time.Now,
	}
}

// Value fetches current prices for p's holdings and computes the valuation.
// Provider failures are absorbed: affected holdings fall back to avg_cost.
func (s *Service) Value(ctx context.Context, p *models.Portfolio) (*models.Valuation, error) {
	return Compute(p, s.CurrentPrices(ctx, p.Tickers()), s.now().UTC()), nil
}

// CurrentPrices returns cached prices where fresh and asks the provider for
// the rest in one batch. The result may be missing entries.
func (s *Service) CurrentPrices(ctx context.Context, tickers []string) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	var missing []string
	for _, t := range tickers {
		if price, ok := s.cache.Get(t); ok {
			out[t] = price
			continue
		}
		missing = append(missing, t)
	}

	if len(missing) == 0 || s.prices == nil {
		return out
	}

	fetched, err := s.prices.GetCurrentPrices(ctx, missing)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Strs("tickers", missing).
			Msg("Live price lookup failed, valuing at average cost")
	}
	for t, price := range fetched {
		if price <= 0 {
			continue
		}
		s.cache.Set(t, price)
		out[t] = price
	}
	return out
}

// PurgeExpired drops stale cached prices
func (s *Service) PurgeExpired() int {
	return s.cache.PurgeExpired()
}

// Compile-time check
var _ interfaces.ValuationService = (*Service)(nil)
