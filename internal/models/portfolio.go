package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultInitialCash is the endowment of a newly created portfolio.
var DefaultInitialCash = decimal.RequireFromString("100000.00")

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,19}$`)

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// ValidTicker reports whether t is a normalised, well formed symbol such as
// ACME, BHP.AU or BRK-B.
func ValidTicker(t string) bool {
	return tickerPattern.MatchString(t)
}

// Holding is one lot per ticker with its weighted-average cost basis.
type Holding struct {
	Ticker  string          `json:"ticker"`
	Shares  decimal.Decimal `json:"shares"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// CostBasis returns shares * avg_cost.
func (h Holding) CostBasis() decimal.Decimal {
	return h.Shares.Mul(h.AvgCost)
}

// Portfolio is the authoritative cash and holdings state of one user.
// Holdings are kept sorted by ticker.
type Portfolio struct {
	UserID    string          `json:"user_id"`
	Cash      decimal.Decimal `json:"cash"`
	Holdings  []Holding       `json:"holdings"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewPortfolio returns a fresh portfolio with the given endowment and no holdings.
func NewPortfolio(userID string, cash decimal.Decimal, now time.Time) *Portfolio {
	return &Portfolio{
		UserID:    userID,
		Cash:      cash,
		Holdings:  []Holding{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so a mutation can be discarded without side effects.
func (p *Portfolio) Clone() *Portfolio {
	c := *p
	c.Holdings = make([]Holding, len(p.Holdings))
	copy(c.Holdings, p.Holdings)
	return &c
}

// Holding returns the lot for ticker, if any.
func (p *Portfolio) Holding(ticker string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.Ticker == ticker {
			return h, true
		}
	}
	return Holding{}, false
}

// SetHolding inserts or replaces the lot for h.Ticker. A lot with zero or
// negative shares is removed instead.
func (p *Portfolio) SetHolding(h Holding) {
	if !h.Shares.IsPositive() {
		p.RemoveHolding(h.Ticker)
		return
	}
	for i := range p.Holdings {
		if p.Holdings[i].Ticker == h.Ticker {
			p.Holdings[i] = h
			return
		}
	}
	p.Holdings = append(p.Holdings, h)
	sort.Slice(p.Holdings, func(i, j int) bool { return p.Holdings[i].Ticker < p.Holdings[j].Ticker })
}

// RemoveHolding drops the lot for ticker.
func (p *Portfolio) RemoveHolding(ticker string) {
	out := p.Holdings[:0]
	for _, h := range p.Holdings {
		if h.Ticker != ticker {
			out = append(out, h)
		}
	}
	p.Holdings = out
}

// Tickers lists held tickers in order.
func (p *Portfolio) Tickers() []string {
	out := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		out[i] = h.Ticker
	}
	return out
}

// Fingerprint hashes cash and holdings. Two portfolios with the same
// fingerprint produce the same health report inputs.
func (p *Portfolio) Fingerprint() string {
	holdings := make([]Holding, len(p.Holdings))
	copy(holdings, p.Holdings)
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Ticker < holdings[j].Ticker })

	h := sha256.New()
	fmt.Fprintf(h, "cash=%s\n", p.Cash.String())
	for _, lot := range holdings {
		fmt.Fprintf(h, "%s=%s@%s\n", lot.Ticker, lot.Shares.String(), lot.AvgCost.String())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Validate checks the invariants every persisted portfolio must satisfy.
func (p *Portfolio) Validate() error {
	if p.Cash.IsNegative() {
		return fmt.Errorf("portfolio cash is negative: %s", p.Cash)
	}
	seen := make(map[string]struct{}, len(p.Holdings))
	for _, h := range p.Holdings {
		if !ValidTicker(h.Ticker) {
			return fmt.Errorf("holding has malformed ticker %q", h.Ticker)
		}
		if _, dup := seen[h.Ticker]; dup {
			return fmt.Errorf("duplicate holding for %s", h.Ticker)
		}
		seen[h.Ticker] = struct{}{}
		if !h.Shares.IsPositive() {
			return fmt.Errorf("holding %s has non-positive shares %s", h.Ticker, h.Shares)
		}
		if !h.AvgCost.IsPositive() {
			return fmt.Errorf("holding %s has non-positive avg_cost %s", h.Ticker, h.AvgCost)
		}
	}
	return nil
}
