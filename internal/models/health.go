package models

import "time"

// SectorOther is used for tickers whose sector is unknown or failed to load.
const SectorOther = "Other"

// NothingToAnalyze is the narrative of a report over an empty portfolio.
const NothingToAnalyze = "Your portfolio is empty. There is nothing to analyze yet."

// NarrativeUnavailable replaces the narrative when the generator fails.
const NarrativeUnavailable = "The AI portfolio analysis is unavailable right now. The figures above were computed without it."

// NewsItem is one recent article about a ticker.
type NewsItem struct {
	Ticker      string    `json:"ticker"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Concentration identifies the largest single position.
type Concentration struct {
	Ticker string  `json:"ticker"`
	Weight float64 `json:"weight"`
}

// HealthReport is the derived, cached diversification and sentiment analysis.
type HealthReport struct {
	UserID               string             `json:"user_id"`
	DiversificationScore float64            `json:"diversification_score"`
	SectorAllocation     map[string]float64 `json:"sector_allocation"`
	SectorWeights        map[string]float64 `json:"sector_weights"`
	PortfolioSentiment   float64            `json:"portfolio_sentiment"`
	SentimentSamples     int                `json:"sentiment_samples"`
	HighestConcentration *Concentration     `json:"highest_concentration,omitempty"`
	TotalValue           float64            `json:"total_value"`
	CashRatio            float64            `json:"cash_ratio"`
	Summary              string             `json:"summary"`
	Narrative            string             `json:"narrative"`
	NarrativeError       bool               `json:"narrative_error"`
	Empty                bool               `json:"empty"`
	GeneratedAt          time.Time          `json:"generated_at"`
	Fingerprint          string             `json:"fingerprint"`
}
