// Package yahoo provides a Yahoo Finance quote fallback via finance-go
package yahoo

import (
	"context"
	"fmt"
	"strings"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// fetchFunc lists quotes for symbols. Replaced in tests.
type fetchFunc func(symbols []string) ([]*finance.Quote, error)

// Client implements PriceProvider over Yahoo Finance
type Client struct {
	fetch  fetchFunc
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		fetch:  listQuotes,
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func listQuotes(symbols []string) ([]*finance.Quote, error) {
	iter := quote.List(symbols)
	var out []*finance.Quote
	for iter.Next() {
		out = append(out, iter.Quote())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchContext runs the blocking finance-go call so that ctx cancellation
// returns promptly. The underlying request finishes in the background.
func (c *Client) fetchContext(ctx context.Context, symbols []string) ([]*finance.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		quotes []*finance.Quote
		err    error
	}
	done := make(chan result, 1)
	go func() {
		q, err := c.fetch(symbols)
		done <- result{q, err}
	}()

	select {
	case r := <-done:
		return r.quotes, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetCurrentPrice returns the regular market price for one ticker
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, bool, error) {
	prices, err := c.GetCurrentPrices(ctx, []string{ticker})
	if err != nil {
		return 0, false, err
	}
	price, ok := prices[strings.ToUpper(strings.TrimSpace(ticker))]
	return price, ok, nil
}

// GetCurrentPrices lists all tickers in one call
func (c *Client) GetCurrentPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(t)))
	}

	quotes, err := c.fetchContext(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo quote list: %w", models.ErrCollaboratorUnavailable, err)
	}

	for _, q := range quotes {
		if q == nil || q.RegularMarketPrice <= 0 {
			continue
		}
		out[strings.ToUpper(q.Symbol)] = q.RegularMarketPrice
	}

	c.logger.Debug().Int("requested", len(symbols)).Int("priced", len(out)).Msg("Yahoo quotes fetched")
	return out, nil
}

var _ interfaces.PriceProvider = (*Client)(nil)
