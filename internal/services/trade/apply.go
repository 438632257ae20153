package trade

import (
	"fmt"

	"github.com/bobmcallan/playground/internal/models"
)

// applyOrder mutates p in place. It is run inside PortfolioStore.Commit
// against a private copy, so a returned error leaves persisted state alone.
func applyOrder(p *models.Portfolio, o models.Order) error {
	switch o.Action {
	case models.ActionBuy:
		return applyBuy(p, o)
	case models.ActionSell:
		return applySell(p, o)
	default:
		return fmt.Errorf("%w: unknown action %q", models.ErrInvalidOrder, o.Action)
	}
}

// applyBuy debits cash and merges the lot at a weighted-average cost.
func applyBuy(p *models.Portfolio, o models.Order) error {
	cost := o.Amount()
	if cost.GreaterThan(p.Cash) {
		return fmt.Errorf("%w: %s costs %s, cash available %s",
			models.ErrInsufficientFunds, o.Ticker, cost.StringFixed(2), p.Cash.StringFixed(2))
	}
	p.Cash = p.Cash.Sub(cost)

	lot, held := p.Holding(o.Ticker)
	if !held {
		p.SetHolding(models.Holding{Ticker: o.Ticker, Shares: o.Quantity, AvgCost: o.Price})
		return nil
	}

	shares := lot.Shares.Add(o.Quantity)
	lot.AvgCost = lot.CostBasis().Add(cost).Div(shares)
	lot.Shares = shares
	p.SetHolding(lot)
	return nil
}

// applySell credits proceeds and reduces the lot. The average cost of the
// remaining shares is unchanged; a lot sold down to zero is removed.
func applySell(p *models.Portfolio, o models.Order) error {
	lot, held := p.Holding(o.Ticker)
	if !held {
		return fmt.Errorf("%w: no holding in %s", models.ErrInsufficientShares, o.Ticker)
	}
	if lot.Shares.LessThan(o.Quantity) {
		return fmt.Errorf("%w: hold %s shares of %s, tried to sell %s",
			models.ErrInsufficientShares, lot.Shares, o.Ticker, o.Quantity)
	}

	p.Cash = p.Cash.Add(o.Amount())
	lot.Shares = lot.Shares.Sub(o.Quantity)
	p.SetHolding(lot)
	return nil
}
