package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/bobmcallan/playground/internal/models"
)

func formatUSD(v float64) string {
	return money.New(int64(math.Round(v*100)), money.USD).Display()
}

func portfolioMarkdown(p *models.Portfolio, v *models.Valuation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Portfolio of %s\n\n", p.UserID)

	if len(v.Rows) == 0 {
		b.WriteString("No holdings yet.\n\n")
	} else {
		b.WriteString("| Ticker | Shares | Avg Cost | Price | Value | Gain/Loss |\n")
		b.WriteString("|:---|---:|---:|---:|---:|---:|\n")
		for _, r := range v.Rows {
			price := formatUSD(r.CurrentPrice)
			if r.PriceSource == models.PriceSourceAvgCost {
				price += "*"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s (%.2f%%) |\n",
				r.Ticker,
				trimFloat(r.Shares),
				formatUSD(r.AvgCost),
				price,
				formatUSD(r.MarketValue),
				formatUSD(r.GainLoss),
				r.GainLossPct,
			)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "- **Cash:** %s\n", formatUSD(v.Cash))
	fmt.Fprintf(&b, "- **Holdings:** %s\n", formatUSD(v.TotalMarketValue))
	fmt.Fprintf(&b, "- **Total:** %s\n", formatUSD(v.TotalValue))
	fmt.Fprintf(&b, "- **Gain/Loss:** %s (%.2f%%)\n", formatUSD(v.TotalGainLoss), v.TotalGainLossPct)

	for _, r := range v.Rows {
		if r.PriceSource == models.PriceSourceAvgCost {
			b.WriteString("\n\\* no live price, valued at average cost\n")
			break
		}
	}
	return b.String()
}

func tradeMarkdown(r *models.TradeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", r.Message)
	fmt.Fprintf(&b, "- **Price:** %s\n", r.Order.Price.StringFixed(2))
	fmt.Fprintf(&b, "- **Amount:** %s\n", r.Amount.StringFixed(2))
	fmt.Fprintf(&b, "- **Cash remaining:** %s\n", r.Portfolio.Cash.StringFixed(2))
	return b.String()
}

func estimateMarkdown(e *models.OrderEstimate) string {
	var b strings.Builder
	verb := "Cost"
	if e.Order.Action == models.ActionSell {
		verb = "Proceeds"
	}
	fmt.Fprintf(&b, "# Estimate: %s %s %s\n\n", e.Order.Action, e.Order.Quantity.String(), e.Order.Ticker)
	fmt.Fprintf(&b, "- **Price:** %s\n", e.Order.Price.StringFixed(2))
	fmt.Fprintf(&b, "- **%s:** %s\n", verb, e.Amount.StringFixed(2))
	fmt.Fprintf(&b, "- **Cash before:** %s\n", e.CashBefore.StringFixed(2))
	fmt.Fprintf(&b, "- **Cash after:** %s\n", e.CashAfter.StringFixed(2))
	if e.Feasible {
		b.WriteString("\nThe order would be accepted.\n")
	} else {
		fmt.Fprintf(&b, "\nThe order would be rejected: %s\n", e.Reason)
	}
	return b.String()
}

func healthMarkdown(r *models.HealthReport) string {
	var b strings.Builder
	b.WriteString("# Portfolio Health\n\n")

	if r.Empty {
		fmt.Fprintf(&b, "%s\n", r.Narrative)
		return b.String()
	}

	fmt.Fprintf(&b, "- **Total value:** %s\n", formatUSD(r.TotalValue))
	fmt.Fprintf(&b, "- **Cash ratio:** %.1f%%\n", r.CashRatio*100)
	fmt.Fprintf(&b, "- **Diversification score:** %.1f / 100\n", r.DiversificationScore)
	if r.HighestConcentration != nil {
		fmt.Fprintf(&b, "- **Largest position:** %s (%.1f%%)\n", r.HighestConcentration.Ticker, r.HighestConcentration.Weight*100)
	}
	fmt.Fprintf(&b, "- **News sentiment:** %.2f from %d articles\n\n", r.PortfolioSentiment, r.SentimentSamples)

	if len(r.SectorWeights) > 0 {
		sectors := make([]string, 0, len(r.SectorWeights))
		for s := range r.SectorWeights {
			sectors = append(sectors, s)
		}
		sort.Slice(sectors, func(i, j int) bool {
			wi, wj := r.SectorWeights[sectors[i]], r.SectorWeights[sectors[j]]
			if wi != wj {
				return wi > wj
			}
			return sectors[i] < sectors[j]
		})

		b.WriteString("| Sector | Weight | Value |\n")
		b.WriteString("|:---|---:|---:|\n")
		for _, s := range sectors {
			fmt.Fprintf(&b, "| %s | %.1f%% | %s |\n", s, r.SectorWeights[s]*100, formatUSD(r.SectorAllocation[s]))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Analysis\n\n")
	fmt.Fprintf(&b, "%s\n", r.Narrative)
	return b.String()
}

// trimFloat prints share counts without trailing zeros.
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.6f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
