package valuation

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/models"
)

type mockPriceProvider struct {
	prices     map[string]float64
	err        error
	batchCalls int
	requested  [][]string
}

func (m *mockPriceProvider) GetCurrentPrice(_ context.Context, ticker string) (float64, bool, error) {
	p, ok := m.prices[ticker]
	return p, ok, m.err
}

func (m *mockPriceProvider) GetCurrentPrices(_ context.Context, tickers []string) (map[string]float64, error) {
	m.batchCalls++
	m.requested = append(m.requested, tickers)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]float64)
	for _, t := range tickers {
		if p, ok := m.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func portfolio(cash string, lots ...models.Holding) *models.Portfolio {
	p := models.NewPortfolio("u", d(cash), time.Now())
	for _, h := range lots {
		p.SetHolding(h)
	}
	return p
}

func lot(ticker, shares, avg string) models.Holding {
	return models.Holding{Ticker: ticker, Shares: d(shares), AvgCost: d(avg)}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute_LiveAndFallbackRows(t *testing.T) {
	p := portfolio("1000", lot("ACME", "10", "50"), lot("BETA", "4", "25"), lot("ZERO", "1", "7"))
	v := Compute(p, map[string]float64{"ACME": 60, "ZERO": 0}, time.Time{})

	if len(v.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(v.Rows))
	}

	acme := v.Rows[0]
	if acme.PriceSource != models.PriceSourceLive || acme.MarketValue != 600 || acme.GainLoss != 100 || !approx(acme.GainLossPct, 20) {
		t.Errorf("ACME row = %+v", acme)
	}

	beta := v.Rows[1]
	if beta.PriceSource != models.PriceSourceAvgCost || beta.CurrentPrice != 25 || beta.GainLoss != 0 {
		t.Errorf("BETA row = %+v", beta)
	}

	zero := v.Rows[2]
	if zero.PriceSource != models.PriceSourceAvgCost || zero.CurrentPrice != 7 {
		t.Errorf("non-positive price must fall back: %+v", zero)
	}

	if v.TotalMarketValue != 707 || v.TotalCostBasis != 607 || v.TotalGainLoss != 100 {
		t.Errorf("totals = mv %v cb %v gl %v", v.TotalMarketValue, v.TotalCostBasis, v.TotalGainLoss)
	}
	if v.TotalValue != 1707 {
		t.Errorf("TotalValue = %v, want 1707", v.TotalValue)
	}
	if !approx(v.CashRatio, 1000.0/1707.0) {
		t.Errorf("CashRatio = %v", v.CashRatio)
	}
}

func TestCompute_EmptyPortfolio(t *testing.T) {
	v := Compute(portfolio("100000"), nil, time.Time{})
	if v.TotalMarketValue != 0 || v.TotalCostBasis != 0 || v.TotalGainLoss != 0 || v.TotalGainLossPct != 0 {
		t.Errorf("expected zero aggregates, got %+v", v)
	}
	if v.TotalValue != 100000 || v.CashRatio != 1 {
		t.Errorf("TotalValue = %v, CashRatio = %v", v.TotalValue, v.CashRatio)
	}
	if len(v.Composition) != 2 || v.Composition[1].Weight != 0 {
		t.Errorf("composition = %+v", v.Composition)
	}
}

func TestCompute_AllCashZero(t *testing.T) {
	v := Compute(portfolio("0"), nil, time.Time{})
	if v.TotalValue != 0 || v.CashRatio != 0 || math.IsNaN(v.CashRatio) {
		t.Errorf("zero-value portfolio = %+v", v)
	}
}

func TestValue_ProviderFailureFallsBack(t *testing.T) {
	prices := &mockPriceProvider{err: fmt.Errorf("%w: boom", models.ErrCollaboratorUnavailable)}
	svc := NewService(prices, time.Minute, common.NewSilentLogger())

	v, err := svc.Value(context.Background(), portfolio("10", lot("ACME", "2", "5")))
	if err != nil {
		t.Fatalf("Value() error = %v, failures should be absorbed", err)
	}
	if v.Rows[0].PriceSource != models.PriceSourceAvgCost || v.TotalValue != 20 {
		t.Errorf("valuation = %+v", v)
	}
}

func TestValue_CachesPricesWithinTTL(t *testing.T) {
	prices := &mockPriceProvider{prices: map[string]float64{"ACME": 10, "BETA": 20}}
	svc := NewService(prices, 5*time.Minute, common.NewSilentLogger())
	p := portfolio("0", lot("ACME", "1", "1"), lot("BETA", "1", "1"))

	if _, err := svc.Value(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	prices.prices["ACME"] = 999
	v, _ := svc.Value(context.Background(), p)

	if prices.batchCalls != 1 {
		t.Errorf("batchCalls = %d, want 1 (second call served from cache)", prices.batchCalls)
	}
	if v.Rows[0].CurrentPrice != 10 {
		t.Errorf("cached price = %v, want 10", v.Rows[0].CurrentPrice)
	}
}

func TestValue_OnlyMissingTickersFetched(t *testing.T) {
	prices := &mockPriceProvider{prices: map[string]float64{"ACME": 10, "BETA": 20}}
	svc := NewService(prices, 5*time.Minute, common.NewSilentLogger())

	svc.CurrentPrices(context.Background(), []string{"ACME"})
	svc.CurrentPrices(context.Background(), []string{"ACME", "BETA"})

	if len(prices.requested) != 2 || len(prices.requested[1]) != 1 || prices.requested[1][0] != "BETA" {
		t.Errorf("requested = %v, want second batch to be [BETA]", prices.requested)
	}
}

func TestValue_NilProvider(t *testing.T) {
	svc := NewService(nil, time.Minute, common.NewSilentLogger())
	v, err := svc.Value(context.Background(), portfolio("5", lot("ACME", "1", "3")))
	if err != nil || v.TotalValue != 8 {
		t.Errorf("Value() = %+v, %v", v, err)
	}
}
