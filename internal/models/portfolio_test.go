package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidTicker(t *testing.T) {
	tests := []struct {
		ticker string
		want   bool
	}{
		{"ACME", true},
		{"BHP.AU", true},
		{"BRK-B", true},
		{"7203", true},
		{"", false},
		{"acme", false},
		{".AU", false},
		{"AC ME", false},
		{"ACME$", false},
		{"ABCDEFGHIJKLMNOPQRSTU", false},
	}
	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTicker(tt.ticker))
		})
	}
}

func TestNewPortfolio_Defaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p := NewPortfolio("alice", DefaultInitialCash, now)

	assert.Equal(t, "alice", p.UserID)
	assert.True(t, p.Cash.Equal(d("100000")))
	assert.Empty(t, p.Holdings)
	assert.NotNil(t, p.Holdings, "holdings should encode as [] not null")
	assert.Equal(t, 0, p.Version)
	assert.Equal(t, now, p.CreatedAt)
}

func TestPortfolio_SetHoldingSortedAndRemovesZero(t *testing.T) {
	p := NewPortfolio("u", DefaultInitialCash, time.Now())
	p.SetHolding(Holding{Ticker: "MSFT", Shares: d("1"), AvgCost: d("300")})
	p.SetHolding(Holding{Ticker: "AAPL", Shares: d("2"), AvgCost: d("150")})

	assert.Equal(t, []string{"AAPL", "MSFT"}, p.Tickers())

	p.SetHolding(Holding{Ticker: "AAPL", Shares: d("5"), AvgCost: d("160")})
	h, ok := p.Holding("AAPL")
	require.True(t, ok)
	assert.True(t, h.Shares.Equal(d("5")))
	assert.Len(t, p.Holdings, 2)

	p.SetHolding(Holding{Ticker: "MSFT", Shares: decimal.Zero, AvgCost: d("300")})
	_, ok = p.Holding("MSFT")
	assert.False(t, ok, "zero-share lot must be removed")
	assert.Equal(t, []string{"AAPL"}, p.Tickers())
}

func TestPortfolio_CloneIsDeep(t *testing.T) {
	p := NewPortfolio("u", DefaultInitialCash, time.Now())
	p.SetHolding(Holding{Ticker: "ACME", Shares: d("10"), AvgCost: d("50")})

	c := p.Clone()
	c.Cash = d("1")
	c.SetHolding(Holding{Ticker: "ACME", Shares: d("99"), AvgCost: d("1")})

	h, _ := p.Holding("ACME")
	assert.True(t, h.Shares.Equal(d("10")), "clone mutation leaked into source portfolio")
	assert.True(t, p.Cash.Equal(d("100000")))
}

func TestPortfolio_Fingerprint(t *testing.T) {
	a := NewPortfolio("u", d("100.00"), time.Now())
	a.SetHolding(Holding{Ticker: "ACME", Shares: d("10"), AvgCost: d("50")})
	a.SetHolding(Holding{Ticker: "BETA", Shares: d("1"), AvgCost: d("2")})

	b := NewPortfolio("u", d("100"), time.Now().Add(time.Hour))
	b.SetHolding(Holding{Ticker: "BETA", Shares: d("1.0"), AvgCost: d("2")})
	b.SetHolding(Holding{Ticker: "ACME", Shares: d("10"), AvgCost: d("50.00")})
	b.Version = 7

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "equal state must fingerprint equally")

	b.Cash = d("99")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestPortfolio_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Portfolio)
		wantErr bool
	}{
		{"valid", func(p *Portfolio) {}, false},
		{"negative_cash", func(p *Portfolio) { p.Cash = d("-0.01") }, true},
		{"zero_shares", func(p *Portfolio) { p.Holdings[0].Shares = decimal.Zero }, true},
		{"zero_avg_cost", func(p *Portfolio) { p.Holdings[0].AvgCost = decimal.Zero }, true},
		{"duplicate", func(p *Portfolio) { p.Holdings = append(p.Holdings, p.Holdings[0]) }, true},
		{"bad_ticker", func(p *Portfolio) { p.Holdings[0].Ticker = "bad ticker" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPortfolio("u", DefaultInitialCash, time.Now())
			p.SetHolding(Holding{Ticker: "ACME", Shares: d("1"), AvgCost: d("1")})
			tt.mutate(p)
			if tt.wantErr {
				assert.Error(t, p.Validate())
			} else {
				assert.NoError(t, p.Validate())
			}
		})
	}
}
