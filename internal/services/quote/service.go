// Package quote provides a live price provider with automatic fallback
package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// Service implements PriceProvider with a primary source and an optional
// fallback that fills tickers the primary could not price.
type Service struct {
	primary  interfaces.PriceProvider
	fallback interfaces.PriceProvider
	logger   *common.Logger
}

// NewService creates a new quote service.
// fallback may be nil, in which case primary failures propagate.
func NewService(primary, fallback interfaces.PriceProvider, logger *common.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// GetCurrentPrice asks the primary first and the fallback when the primary
// errors or has no price. If both fail, the first error is returned.
func (s *Service) GetCurrentPrice(ctx context.Context, ticker string) (float64, bool, error) {
	price, found, primaryErr := s.primary.GetCurrentPrice(ctx, ticker)
	if primaryErr == nil && found && price > 0 {
		return price, true, nil
	}

	if s.fallback == nil {
		return 0, false, unavailable(primaryErr)
	}

	s.logger.Info().
		Str("ticker", ticker).
		Bool("primary_failed", primaryErr != nil).
		Msg("Attempting fallback quote")

	price, found, fallbackErr := s.fallback.GetCurrentPrice(ctx, ticker)
	if fallbackErr != nil {
		s.logger.Warn().Err(fallbackErr).Str("ticker", ticker).Msg("Fallback quote failed")
		if primaryErr != nil {
			return 0, false, unavailable(primaryErr)
		}
		// Primary answered "not found"; the fallback error says nothing more.
		return 0, false, nil
	}
	if !found || price <= 0 {
		return 0, false, nil
	}
	return price, true, nil
}

// GetCurrentPrices batches the primary, then batches the fallback over
// whatever is left unpriced. An error is returned only when nothing was
// priced and a source failed.
func (s *Service) GetCurrentPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	prices, primaryErr := s.primary.GetCurrentPrices(ctx, tickers)
	if primaryErr != nil {
		s.logger.Warn().Err(primaryErr).Int("tickers", len(tickers)).Msg("Primary quote batch failed")
	}
	for t, p := range prices {
		if p > 0 {
			out[t] = p
		}
	}

	missing := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := out[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 || s.fallback == nil {
		if len(out) == 0 && primaryErr != nil {
			return nil, unavailable(primaryErr)
		}
		return out, nil
	}

	fallbackPrices, fallbackErr := s.fallback.GetCurrentPrices(ctx, missing)
	if fallbackErr != nil {
		s.logger.Warn().Err(fallbackErr).Strs("tickers", missing).Msg("Fallback quote batch failed")
	}
	filled := 0
	for _, t := range missing {
		if p, ok := fallbackPrices[t]; ok && p > 0 {
			out[t] = p
			filled++
		}
	}
	if filled > 0 {
		s.logger.Info().Int("filled", filled).Int("missing", len(missing)).Msg("Fallback quotes used")
	}

	if len(out) == 0 {
		if err := errors.Join(primaryErr, fallbackErr); err != nil {
			return nil, unavailable(fmt.Errorf("no prices available: %w", err))
		}
	}
	return out, nil
}

// unavailable marks a source failure as models.ErrCollaboratorUnavailable
// unless a client already did.
func unavailable(err error) error {
	if err == nil || errors.Is(err, models.ErrCollaboratorUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrCollaboratorUnavailable, err)
}

// Ensure Service implements PriceProvider
var _ interfaces.PriceProvider = (*Service)(nil)
