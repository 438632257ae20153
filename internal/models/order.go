package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeAction is buy or sell.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Order is a single buy or sell request at a caller-supplied price.
type Order struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Action   TradeAction     `json:"action"`
}

// Normalize trims and cases the ticker and action.
func (o Order) Normalize() Order {
	o.Ticker = NormalizeTicker(o.Ticker)
	o.Action = TradeAction(strings.ToLower(strings.TrimSpace(string(o.Action))))
	return o
}

// Validate rejects malformed orders with ErrInvalidOrder. Call on a
// normalised order.
func (o Order) Validate() error {
	switch {
	case o.Ticker == "":
		return fmt.Errorf("%w: ticker is required", ErrInvalidOrder)
	case !ValidTicker(o.Ticker):
		return fmt.Errorf("%w: malformed ticker %q", ErrInvalidOrder, o.Ticker)
	case !o.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidOrder)
	case !o.Price.IsPositive():
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidOrder)
	case o.Action != ActionBuy && o.Action != ActionSell:
		return fmt.Errorf("%w: action must be buy or sell, got %q", ErrInvalidOrder, o.Action)
	}
	return nil
}

// Amount is quantity * price: the cost of a buy or the proceeds of a sell.
func (o Order) Amount() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

// TradeResult is returned by a successful trade.
type TradeResult struct {
	Portfolio *Portfolio      `json:"portfolio"`
	Message   string          `json:"message"`
	Order     Order           `json:"order"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderEstimate previews an order against the current portfolio without
// committing it.
type OrderEstimate struct {
	Order      Order           `json:"order"`
	Amount     decimal.Decimal `json:"amount"`
	CashBefore decimal.Decimal `json:"cash_before"`
	CashAfter  decimal.Decimal `json:"cash_after"`
	Feasible   bool            `json:"feasible"`
	Reason     string          `json:"reason,omitempty"`
}
