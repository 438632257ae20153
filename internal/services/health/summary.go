package health

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/bobmcallan/playground/internal/models"
)

// formatUSD renders a float amount as currency, e.g. $1,234.50.
func formatUSD(v float64) string {
	return money.New(int64(math.Round(v*100)), money.USD).Display()
}

func formatPct(w float64) string {
	return fmt.Sprintf("%.1f%%", w*100)
}

func sentimentLabel(s float64) string {
	switch {
	case s >= 0.05:
		return "positive"
	case s <= -0.05:
		return "negative"
	default:
		return "neutral"
	}
}

// BuildSummary renders the compact key-value text handed to the narrative
// generator.
func BuildSummary(v *models.Valuation, r *models.HealthReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Portfolio Value: %s\n", formatUSD(v.TotalValue))
	fmt.Fprintf(&b, "Cash: %s (%s)\n", formatUSD(v.Cash), formatPct(v.CashRatio))
	stockRatio := 0.0
	if v.TotalValue > 0 {
		stockRatio = v.TotalMarketValue / v.TotalValue
	}
	fmt.Fprintf(&b, "Stocks: %s (%s)\n", formatUSD(v.TotalMarketValue), formatPct(stockRatio))
	fmt.Fprintf(&b, "Holdings: %d\n", len(v.Rows))
	fmt.Fprintf(&b, "Diversification Score: %.2f/100\n", r.DiversificationScore)

	sectors := sortedSectors(r.SectorWeights)
	parts := make([]string, 0, len(sectors))
	for _, name := range sectors {
		parts = append(parts, fmt.Sprintf("%s %s", name, formatPct(r.SectorWeights[name])))
	}
	if len(parts) == 0 {
		parts = append(parts, "none")
	}
	fmt.Fprintf(&b, "Sector Weights: %s\n", strings.Join(parts, ", "))

	if c := r.HighestConcentration; c != nil {
		fmt.Fprintf(&b, "Highest Concentration: %s is %s of the total portfolio value\n", c.Ticker, formatPct(c.Weight))
	}

	fmt.Fprintf(&b, "News Sentiment: %.2f (%s) from %d articles\n",
		r.PortfolioSentiment, sentimentLabel(r.PortfolioSentiment), r.SentimentSamples)

	return b.String()
}
