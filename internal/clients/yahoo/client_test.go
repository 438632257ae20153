package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"

	"github.com/bobmcallan/playground/internal/models"
)

func fakeFetch(quotes map[string]float64, err error) fetchFunc {
	return func(symbols []string) ([]*finance.Quote, error) {
		if err != nil {
			return nil, err
		}
		var out []*finance.Quote
		for _, s := range symbols {
			if p, ok := quotes[s]; ok {
				q := &finance.Quote{Symbol: s}
				q.RegularMarketPrice = p
				out = append(out, q)
			}
		}
		return out, nil
	}
}

func TestGetCurrentPrices(t *testing.T) {
	c := NewClient()
	c.fetch = fakeFetch(map[string]float64{"AAPL": 190, "ZERO": 0}, nil)

	prices, err := c.GetCurrentPrices(context.Background(), []string{"aapl", "MSFT", "ZERO"})
	if err != nil {
		t.Fatalf("GetCurrentPrices failed: %v", err)
	}
	if len(prices) != 1 || prices["AAPL"] != 190 {
		t.Errorf("unexpected prices: %v", prices)
	}
}

func TestGetCurrentPrice(t *testing.T) {
	c := NewClient()
	c.fetch = fakeFetch(map[string]float64{"AAPL": 190}, nil)

	price, found, err := c.GetCurrentPrice(context.Background(), "AAPL")
	if err != nil || !found || price != 190 {
		t.Errorf("got %v %v %v", price, found, err)
	}

	_, found, err = c.GetCurrentPrice(context.Background(), "NOPE")
	if err != nil || found {
		t.Errorf("expected not found without error, got found=%v err=%v", found, err)
	}
}

func TestGetCurrentPrices_Error(t *testing.T) {
	c := NewClient()
	c.fetch = fakeFetch(nil, errors.New("rate limited"))

	_, err := c.GetCurrentPrices(context.Background(), []string{"AAPL"})
	if !errors.Is(err, models.ErrCollaboratorUnavailable) {
		t.Errorf("expected ErrCollaboratorUnavailable, got %v", err)
	}
}

func TestGetCurrentPrices_ContextCancelled(t *testing.T) {
	c := NewClient()
	release := make(chan struct{})
	defer close(release)
	c.fetch = func(symbols []string) ([]*finance.Quote, error) {
		<-release
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.GetCurrentPrices(ctx, []string{"AAPL"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
