package main

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/models"
	"github.com/bobmcallan/playground/internal/services/valuation"
)

func TestPortfolioMarkdown(t *testing.T) {
	p := models.NewPortfolio("alice", decimal.NewFromInt(1000), time.Now())
	p.Holdings = []models.Holding{
		{Ticker: "ACME", Shares: decimal.NewFromInt(10), AvgCost: decimal.NewFromInt(50)},
		{Ticker: "ZED", Shares: decimal.RequireFromString("2.5"), AvgCost: decimal.NewFromInt(4)},
	}
	v := valuation.Compute(p, map[string]float64{"ACME": 60}, time.Now())

	md := portfolioMarkdown(p, v)

	for _, want := range []string{
		"# Portfolio of alice",
		"| ACME | 10 | $50.00 | $60.00 | $600.00 | $100.00 (20.00%) |",
		"| ZED | 2.5 | $4.00 | $4.00* |",
		"- **Cash:** $1,000.00",
		"- **Total:** $1,610.00",
		"valued at average cost",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("portfolio markdown missing %q:\n%s", want, md)
		}
	}
}

func TestPortfolioMarkdown_Empty(t *testing.T) {
	p := models.NewPortfolio("bob", decimal.NewFromInt(100000), time.Now())
	md := portfolioMarkdown(p, valuation.Compute(p, nil, time.Now()))
	if !strings.Contains(md, "No holdings yet.") {
		t.Errorf("expected empty notice:\n%s", md)
	}
	if strings.Contains(md, "average cost") {
		t.Errorf("unexpected avg cost footnote:\n%s", md)
	}
}

func TestEstimateMarkdown(t *testing.T) {
	est := &models.OrderEstimate{
		Order:      models.Order{Ticker: "ACME", Quantity: decimal.NewFromInt(3), Price: decimal.NewFromInt(10), Action: models.ActionSell},
		Amount:     decimal.NewFromInt(30),
		CashBefore: decimal.NewFromInt(100),
		CashAfter:  decimal.NewFromInt(100),
		Reason:     "not enough shares to sell: no holding in ACME",
	}
	md := estimateMarkdown(est)
	if !strings.Contains(md, "- **Proceeds:** 30.00") {
		t.Errorf("expected proceeds line:\n%s", md)
	}
	if !strings.Contains(md, "rejected: not enough shares to sell") {
		t.Errorf("expected rejection reason:\n%s", md)
	}
}

func TestHealthMarkdown(t *testing.T) {
	empty := healthMarkdown(&models.HealthReport{Empty: true, Narrative: models.NothingToAnalyze})
	if !strings.Contains(empty, models.NothingToAnalyze) || strings.Contains(empty, "Sector") {
		t.Errorf("unexpected empty report markdown:\n%s", empty)
	}

	md := healthMarkdown(&models.HealthReport{
		TotalValue:           10000,
		CashRatio:            0.2,
		DiversificationScore: 48,
		SectorWeights:        map[string]float64{"Technology": 0.6, "Energy": 0.4},
		SectorAllocation:     map[string]float64{"Technology": 4800, "Energy": 3200},
		HighestConcentration: &models.Concentration{Ticker: "AAPL", Weight: 0.48},
		PortfolioSentiment:   0.25,
		SentimentSamples:     3,
		Narrative:            "**Overall Summary:** Balanced.",
	})
	tech := strings.Index(md, "| Technology | 60.0% | $4,800.00 |")
	energy := strings.Index(md, "| Energy | 40.0% | $3,200.00 |")
	if tech < 0 || energy < 0 || tech > energy {
		t.Errorf("expected sectors ordered by weight:\n%s", md)
	}
	for _, want := range []string{
		"- **Largest position:** AAPL (48.0%)",
		"- **News sentiment:** 0.25 from 3 articles",
		"**Overall Summary:** Balanced.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("health markdown missing %q:\n%s", want, md)
		}
	}
}

func TestParseOrder(t *testing.T) {
	o, err := parseOrder("buy", "", []string{"acme", "1.5"})
	if err != nil {
		t.Fatalf("parseOrder failed: %v", err)
	}
	if o.Ticker != "acme" || o.Quantity.String() != "1.5" || !o.Price.IsZero() || o.Action != models.ActionBuy {
		t.Errorf("unexpected order: %+v", o)
	}

	o, err = parseOrder("sell", "12.25", []string{"ACME", "2"})
	if err != nil || o.Price.String() != "12.25" {
		t.Errorf("expected explicit price, got %+v err=%v", o, err)
	}

	if _, err := parseOrder("buy", "", []string{"ACME", "lots"}); err == nil {
		t.Error("expected error for non-numeric quantity")
	}
	if _, err := parseOrder("buy", "cheap", []string{"ACME", "1"}); err == nil {
		t.Error("expected error for non-numeric price")
	}
	if _, err := parseOrder("buy", "", []string{"ACME"}); err == nil {
		t.Error("expected error for missing quantity")
	}
}

func TestPriceFlagUsage(t *testing.T) {
	cmds := map[string]interface{ SetFlags(*flag.FlagSet) }{
		"buy":      &tradeCmd{action: "buy"},
		"estimate": &estimateCmd{},
	}
	for name, cmd := range cmds {
		f := flag.NewFlagSet(name, flag.ContinueOnError)
		cmd.SetFlags(f)
		p := f.Lookup("p")
		if p == nil {
			t.Fatalf("%s: missing -p flag", name)
		}
		if !strings.HasPrefix(p.Usage, "Execution price per share.") {
			t.Errorf("%s: -p usage = %q", name, p.Usage)
		}
	}
}
