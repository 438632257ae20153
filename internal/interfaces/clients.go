// Package interfaces defines service contracts for Playground
package interfaces

import (
	"context"

	"github.com/bobmcallan/playground/internal/models"
)

// PriceProvider returns current market prices
type PriceProvider interface {
	// GetCurrentPrice returns the price and whether the ticker was found
	GetCurrentPrice(ctx context.Context, ticker string) (float64, bool, error)

	// GetCurrentPrices returns prices for the tickers it could resolve.
	// Missing entries are allowed.
	GetCurrentPrices(ctx context.Context, tickers []string) (map[string]float64, error)
}

// SectorProvider returns company sector metadata
type SectorProvider interface {
	// GetSector returns the sector name, or models.SectorOther when unknown
	GetSector(ctx context.Context, ticker string) (string, error)
}

// NewsProvider returns recent news for a ticker
type NewsProvider interface {
	GetRecentNews(ctx context.Context, ticker string) ([]models.NewsItem, error)
}

// SentimentScorer scores text sentiment in [-1, 1]
type SentimentScorer interface {
	ScoreSentiment(ctx context.Context, text string) (float64, error)
}

// NarrativeGenerator turns a portfolio summary into a written analysis
type NarrativeGenerator interface {
	GenerateNarrative(ctx context.Context, summary string) (string, error)
}
