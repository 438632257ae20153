// Package trade applies buy and sell orders to virtual portfolios
package trade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// Service implements TradeService. It holds no locks: concurrent trades for
// one user are serialised by the store's compare-and-swap retry.
type Service struct {
	store  interfaces.PortfolioStore
	prices interfaces.PriceProvider
	logger *common.Logger
}

// NewService creates a new trade service.
// prices may be nil, in which case every order must carry its own price.
func NewService(store interfaces.PortfolioStore, prices interfaces.PriceProvider, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		prices: prices,
		logger: logger,
	}
}

// GetPortfolio loads (and lazily creates) the user's portfolio
func (s *Service) GetPortfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidOrder)
	}
	return s.store.Load(ctx, userID)
}

// ExecuteTrade validates order and commits it. An order with a zero price is
// filled at the current market price when a price provider is configured.
func (s *Service) ExecuteTrade(ctx context.Context, userID string, order models.Order) (*models.TradeResult, error) {
	userID, order, err := s.prepare(ctx, userID, order)
	if err != nil {
		return nil, err
	}

	p, err := s.store.Commit(ctx, userID, func(p *models.Portfolio) error {
		return applyOrder(p, order)
	})
	if err != nil {
		s.logRejection(userID, order, err)
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("action", string(order.Action)).
		Str("ticker", order.Ticker).
		Str("quantity", order.Quantity.String()).
		Str("price", order.Price.String()).
		Str("cash", p.Cash.StringFixed(2)).
		Int("version", p.Version).
		Msg("Trade executed")

	return &models.TradeResult{
		Portfolio: p,
		Message:   confirmation(order),
		Order:     order,
		Amount:    order.Amount(),
	}, nil
}

// EstimateOrder runs the order against a copy of the current portfolio and
// reports the cash impact without committing anything.
func (s *Service) EstimateOrder(ctx context.Context, userID string, order models.Order) (*models.OrderEstimate, error) {
	userID, order, err := s.prepare(ctx, userID, order)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	est := &models.OrderEstimate{
		Order:      order,
		Amount:     order.Amount(),
		CashBefore: current.Cash,
		CashAfter:  current.Cash,
	}

	working := current.Clone()
	if err := applyOrder(working, order); err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) || errors.Is(err, models.ErrInsufficientShares) {
			est.Reason = err.Error()
			return est, nil
		}
		return nil, err
	}
	est.Feasible = true
	est.CashAfter = working.Cash
	return est, nil
}

// prepare normalises and validates the order, resolving a market price if needed.
func (s *Service) prepare(ctx context.Context, userID string, order models.Order) (string, models.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", order, fmt.Errorf("%w: user id is required", models.ErrInvalidOrder)
	}

	order = order.Normalize()
	if order.Price.IsZero() && s.prices != nil {
		// Reject a malformed order before spending a quote lookup on it.
		priced := order
		priced.Price = decimal.NewFromInt(1)
		if err := priced.Validate(); err != nil {
			return "", order, err
		}
		price, err := s.marketPrice(ctx, order.Ticker)
		if err != nil {
			return "", order, err
		}
		order.Price = price
	}

	if err := order.Validate(); err != nil {
		return "", order, err
	}
	return userID, order, nil
}

func (s *Service) marketPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	price, found, err := s.prices.GetCurrentPrice(ctx, ticker)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price lookup for %s: %v", models.ErrCollaboratorUnavailable, ticker, err)
	}
	if !found || price <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no current price for %s", models.ErrInvalidOrder, ticker)
	}
	return decimal.NewFromFloat(price), nil
}

func (s *Service) logRejection(userID string, order models.Order, err error) {
	event := s.logger.Warn()
	if errors.Is(err, models.ErrInsufficientFunds) || errors.Is(err, models.ErrInsufficientShares) {
		event = s.logger.Info()
	}
	event.
		Err(err).
		Str("user_id", userID).
		Str("action", string(order.Action)).
		Str("ticker", order.Ticker).
		Str("quantity", order.Quantity.String()).
		Msg("Trade rejected")
}

func confirmation(o models.Order) string {
	verb := "purchased"
	if o.Action == models.ActionSell {
		verb = "sold"
	}
	return fmt.Sprintf("Successfully %s %s shares of %s.", verb, o.Quantity.String(), o.Ticker)
}

// Compile-time check
var _ interfaces.TradeService = (*Service)(nil)
