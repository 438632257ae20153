package models

import "time"

// Price sources on a valuation row.
const (
	PriceSourceLive    = "live"
	PriceSourceAvgCost = "avg_cost"
)

// ValuationRow is the derived value of one holding.
type ValuationRow struct {
	Ticker       string  `json:"ticker"`
	Shares       float64 `json:"shares"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
	CostBasis    float64 `json:"cost_basis"`
	GainLoss     float64 `json:"gain_loss"`
	GainLossPct  float64 `json:"gain_loss_pct"`
	PriceSource  string  `json:"price_source"`
}

// CompositionSlice is one segment of the cash vs stocks split.
type CompositionSlice struct {
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Valuation aggregates a portfolio at current prices.
type Valuation struct {
	UserID           string             `json:"user_id"`
	Rows             []ValuationRow     `json:"rows"`
	Cash             float64            `json:"cash"`
	TotalMarketValue float64            `json:"total_market_value"`
	TotalCostBasis   float64            `json:"total_cost_basis"`
	TotalGainLoss    float64            `json:"total_gain_loss"`
	TotalGainLossPct float64            `json:"total_gain_loss_pct"`
	TotalValue       float64            `json:"total_value"`
	CashRatio        float64            `json:"cash_ratio"`
	Composition      []CompositionSlice `json:"composition"`
	AsOf             time.Time          `json:"as_of"`
}
