package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Compute values p at the given prices. A missing or non-positive price falls
// back to the holding's average cost, so that row shows no gain or loss.
// Sums are taken in exact decimal and converted for presentation.
func Compute(p *models.Portfolio, prices map[string]float64, asOf time.Time) *models.Valuation {
	v := &models.Valuation{
		UserID: p.UserID,
		Rows:   make([]models.ValuationRow, 0, len(p.Holdings)),
		AsOf:   asOf,
	}

	totalMarket := decimal.Zero
	totalCost := decimal.Zero

	for _, h := range p.Holdings {
		price := h.AvgCost
		source := models.PriceSourceAvgCost
		if live, ok := prices[h.Ticker]; ok && live > 0 {
			price = decimal.NewFromFloat(live)
			source = models.PriceSourceLive
		}

		market := h.Shares.Mul(price)
		cost := h.CostBasis()
		gain := market.Sub(cost)

		v.Rows = append(v.Rows, models.ValuationRow{
			Ticker:       h.Ticker,
			Shares:       h.Shares.InexactFloat64(),
			AvgCost:      h.AvgCost.InexactFloat64(),
			CurrentPrice: price.InexactFloat64(),
			MarketValue:  market.InexactFloat64(),
			CostBasis:    cost.InexactFloat64(),
			GainLoss:     gain.InexactFloat64(),
			GainLossPct:  percent(gain, cost),
			PriceSource:  source,
		})

		totalMarket = totalMarket.Add(market)
		totalCost = totalCost.Add(cost)
	}

	total := p.Cash.Add(totalMarket)
	gain := totalMarket.Sub(totalCost)

	v.Cash = p.Cash.InexactFloat64()
	v.TotalMarketValue = totalMarket.InexactFloat64()
	v.TotalCostBasis = totalCost.InexactFloat64()
	v.TotalGainLoss = gain.InexactFloat64()
	v.TotalGainLossPct = percent(gain, totalCost)
	v.TotalValue = total.InexactFloat64()
	v.CashRatio = ratio(p.Cash, total)
	v.Composition = []models.CompositionSlice{
		{Label: "Cash", Value: v.Cash, Weight: v.CashRatio},
		{Label: "Stocks", Value: v.TotalMarketValue, Weight: ratio(totalMarket, total)},
	}
	return v
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(4).InexactFloat64()
}

func ratio(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).InexactFloat64()
}
