package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/playground/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestGetCurrentPrice_ParsesResponse(t *testing.T) {
	var capturedPath, capturedToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedToken = r.URL.Query().Get("api_token")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":      "AAPL.US",
			"timestamp": 1711670340,
			"close":     187.25,
		})
	})

	price, found, err := client.GetCurrentPrice(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetCurrentPrice failed: %v", err)
	}
	if !found || price != 187.25 {
		t.Errorf("price = %v found = %v, want 187.25 true", price, found)
	}
	if capturedPath != "/real-time/AAPL.US" {
		t.Errorf("expected path /real-time/AAPL.US, got %s", capturedPath)
	}
	if capturedToken != "test-key" {
		t.Errorf("expected api_token test-key, got %s", capturedToken)
	}
}

func TestGetCurrentPrice_ExchangeSuffixKept(t *testing.T) {
	var capturedPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"code": "BHP.AU", "close": 43.1})
	})

	if _, _, err := client.GetCurrentPrice(context.Background(), "BHP.AU"); err != nil {
		t.Fatal(err)
	}
	if capturedPath != "/real-time/BHP.AU" {
		t.Errorf("expected path /real-time/BHP.AU, got %s", capturedPath)
	}
}

func TestGetCurrentPrice_UnknownTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"code": "NOPE.US", "close": "NA"})
	})

	_, found, err := client.GetCurrentPrice(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("expected no error for NA close, got %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestGetCurrentPrice_NotFoundStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Ticker Not Found.", http.StatusNotFound)
	})

	_, found, err := client.GetCurrentPrice(context.Background(), "NOPE")
	if err != nil || found {
		t.Errorf("expected (not found, nil), got found=%v err=%v", found, err)
	}
}

func TestGetCurrentPrice_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
	})

	_, _, err := client.GetCurrentPrice(context.Background(), "AAPL")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Endpoint != "/real-time/AAPL.US" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
	if !errors.Is(err, models.ErrCollaboratorUnavailable) {
		t.Errorf("APIError should match ErrCollaboratorUnavailable: %v", err)
	}
}

func TestGetCurrentPrice_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	_, _, err := client.GetCurrentPrice(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrCollaboratorUnavailable) {
		t.Errorf("transport failure should match ErrCollaboratorUnavailable: %v", err)
	}
}

func TestGetSector_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})

	_, err := client.GetSector(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrCollaboratorUnavailable) {
		t.Errorf("decode failure should match ErrCollaboratorUnavailable: %v", err)
	}
}

func TestGetCurrentPrices_Batch(t *testing.T) {
	var capturedPath, capturedSymbols string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedSymbols = r.URL.Query().Get("s")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"code": "AAPL.US", "close": 190.5},
			{"code": "MSFT.US", "close": "410.25"},
			{"code": "GONE.US", "close": "NA"},
		})
	})

	prices, err := client.GetCurrentPrices(context.Background(), []string{"AAPL", "MSFT", "GONE", "AAPL"})
	if err != nil {
		t.Fatalf("GetCurrentPrices failed: %v", err)
	}
	if capturedPath != "/real-time/AAPL.US" {
		t.Errorf("expected first symbol in path, got %s", capturedPath)
	}
	if capturedSymbols != "MSFT.US,GONE.US" {
		t.Errorf("expected remaining symbols in s, got %q", capturedSymbols)
	}
	if len(prices) != 2 || prices["AAPL"] != 190.5 || prices["MSFT"] != 410.25 {
		t.Errorf("unexpected prices: %v", prices)
	}
}

func TestGetCurrentPrices_SingleObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") != "" {
			t.Error("expected no s parameter for one ticker")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"code": "AAPL.US", "close": 190.5})
	})

	prices, err := client.GetCurrentPrices(context.Background(), []string{"AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if prices["AAPL"] != 190.5 {
		t.Errorf("unexpected prices: %v", prices)
	}
}

func TestGetCurrentPrices_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("expected no request for empty ticker list")
	})

	prices, err := client.GetCurrentPrices(context.Background(), nil)
	if err != nil || len(prices) != 0 {
		t.Errorf("expected empty result, got %v %v", prices, err)
	}
}

func TestGetSector(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"sector present", `{"General":{"Code":"AAPL","Sector":"Technology"}}`, "Technology"},
		{"sector blank", `{"General":{"Code":"SPY","Sector":""}}`, models.SectorOther},
		{"no general", `{"Highlights":{}}`, models.SectorOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedPath string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				capturedPath = r.URL.Path
				w.Write([]byte(tt.body))
			})

			got, err := client.GetSector(context.Background(), "AAPL")
			if err != nil {
				t.Fatalf("GetSector failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("GetSector() = %q, want %q", got, tt.want)
			}
			if capturedPath != "/fundamentals/AAPL.US" {
				t.Errorf("unexpected path %s", capturedPath)
			}
		})
	}
}

func TestGetRecentNews(t *testing.T) {
	var capturedSymbol, capturedLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedSymbol = r.URL.Query().Get("s")
		capturedLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"date":    "2026-03-01T14:30:00+00:00",
				"title":   " Apple unveils new chip ",
				"content": "Shares rose after the announcement.",
				"link":    "https://example.com/a",
			},
		})
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithNewsLimit(5))
	items, err := client.GetRecentNews(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetRecentNews failed: %v", err)
	}
	if capturedSymbol != "AAPL.US" || capturedLimit != "5" {
		t.Errorf("unexpected query s=%q limit=%q", capturedSymbol, capturedLimit)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Ticker != "AAPL" || item.Title != "Apple unveils new chip" || item.Description != "Shares rose after the announcement." {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.PublishedAt.IsZero() {
		t.Error("expected published_at parsed")
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"close": 1})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := client.GetCurrentPrice(ctx, "AAPL"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestFlexFloat64(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`12.5`, 12.5},
		{`"12.5"`, 12.5},
		{`"NA"`, 0},
		{`"N/A"`, 0},
		{`""`, 0},
		{`"garbage"`, 0},
	}
	for _, tt := range tests {
		var f flexFloat64
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Errorf("%s: unexpected error %v", tt.in, err)
			continue
		}
		if float64(f) != tt.want {
			t.Errorf("%s: got %v, want %v", tt.in, f, tt.want)
		}
	}
}
