// Package interfaces defines service contracts for Playground
package interfaces

import (
	"context"

	"github.com/bobmcallan/playground/internal/models"
)

// TradeService validates and applies orders against the portfolio store
type TradeService interface {
	// ExecuteTrade applies one buy or sell order
	ExecuteTrade(ctx context.Context, userID string, order models.Order) (*models.TradeResult, error)

	// GetPortfolio loads (and lazily creates) the user's portfolio
	GetPortfolio(ctx context.Context, userID string) (*models.Portfolio, error)

	// EstimateOrder previews an order without committing it
	EstimateOrder(ctx context.Context, userID string, order models.Order) (*models.OrderEstimate, error)
}

// ValuationService values a portfolio at current prices
type ValuationService interface {
	Value(ctx context.Context, p *models.Portfolio) (*models.Valuation, error)
}

// HealthService produces the cached portfolio health report
type HealthService interface {
	GetHealthReport(ctx context.Context, userID string, opts HealthOptions) (*models.HealthReport, error)

	// PurgeExpired drops stale cached reports and returns how many were removed
	PurgeExpired() int
}

// HealthOptions configures health report generation
type HealthOptions struct {
	ForceRefresh bool
}
