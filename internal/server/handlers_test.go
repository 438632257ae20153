package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/playground/internal/app"
	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/models"
)

// --- Mocks ---

type stubPrices struct {
	prices map[string]float64
	err    error
}

func (s *stubPrices) GetCurrentPrice(_ context.Context, t string) (float64, bool, error) {
	if s.err != nil {
		return 0, false, s.err
	}
	p, ok := s.prices[t]
	return p, ok, nil
}

func (s *stubPrices) GetCurrentPrices(_ context.Context, tickers []string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]float64{}
	for _, t := range tickers {
		if p, ok := s.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

type stubNarrative struct{ err error }

func (s stubNarrative) GenerateNarrative(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "**Overall Summary:** Fine.", nil
}

// --- Helpers ---

func newTestServer(t *testing.T, prices *stubPrices) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendMemory
	cfg.Clients.Yahoo.Enabled = false
	cfg.Clients.EODHD.APIKey = ""
	cfg.Clients.Gemini.APIKey = ""
	cfg.Auth.JWTSecret = testSecret

	c := app.Collaborators{Narrative: stubNarrative{}}
	if prices != nil {
		c.Prices = prices
	}
	a, err := app.NewAppWithConfig(cfg, common.NewSilentLogger(), c)
	if err != nil {
		t.Fatalf("NewAppWithConfig failed: %v", err)
	}
	t.Cleanup(a.Close)
	return NewServer(a)
}

func doRequest(t *testing.T, s *Server, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rr.Body.String(), err)
	}
}

// --- Tests ---

func TestHandleHealthAndVersion(t *testing.T) {
	s := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	var health map[string]string
	decodeBody(t, rr, &health)
	if health["status"] != "ok" || health["storage"] != common.BackendMemory {
		t.Errorf("unexpected health body: %v", health)
	}

	rr = doRequest(t, s, http.MethodGet, "/api/version", "", nil)
	var info common.VersionInfo
	decodeBody(t, rr, &info)
	if info.Version == "" {
		t.Error("expected version in body")
	}

	rr = doRequest(t, s, http.MethodPost, "/api/health", "", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestHandlePortfolio_NewUser(t *testing.T) {
	s := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodGet, "/api/playground/portfolio", "alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp portfolioResponse
	decodeBody(t, rr, &resp)
	if resp.Portfolio.UserID != "alice" {
		t.Errorf("user = %q", resp.Portfolio.UserID)
	}
	if resp.Portfolio.Cash.String() != "100000" {
		t.Errorf("cash = %s", resp.Portfolio.Cash)
	}
	if resp.Valuation.TotalValue != 100000 || resp.Valuation.CashRatio != 1 {
		t.Errorf("unexpected valuation: %+v", resp.Valuation)
	}
}

func TestHandleTrade_BuyThenSell(t *testing.T) {
	s := newTestServer(t, nil)

	rr := doRequest(t, s, http.MethodPost, "/api/playground/trades", "alice",
		map[string]interface{}{"ticker": "acme", "quantity": 10, "price": 50, "action": "buy"})
	if rr.Code != http.StatusOK {
		t.Fatalf("buy status = %d body=%s", rr.Code, rr.Body.String())
	}
	var result models.TradeResult
	decodeBody(t, rr, &result)
	if result.Message != "Successfully purchased 10 shares of ACME." {
		t.Errorf("message = %q", result.Message)
	}
	if result.Portfolio.Cash.String() != "99500" {
		t.Errorf("cash = %s", result.Portfolio.Cash)
	}

	rr = doRequest(t, s, http.MethodPost, "/api/playground/trades", "alice",
		map[string]interface{}{"ticker": "ACME", "quantity": "10", "price": "55", "action": "sell"})
	if rr.Code != http.StatusOK {
		t.Fatalf("sell status = %d body=%s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &result)
	if len(result.Portfolio.Holdings) != 0 {
		t.Errorf("expected holding removed, got %+v", result.Portfolio.Holdings)
	}
}

func TestHandleTrade_ErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"invalid quantity", map[string]interface{}{"ticker": "ACME", "quantity": 0, "price": 5, "action": "buy"}, http.StatusBadRequest, CodeInvalidOrder},
		{"bad action", map[string]interface{}{"ticker": "ACME", "quantity": 1, "price": 5, "action": "hold"}, http.StatusBadRequest, CodeInvalidOrder},
		{"insufficient funds", map[string]interface{}{"ticker": "ACME", "quantity": 1, "price": 1000000, "action": "buy"}, http.StatusUnprocessableEntity, CodeInsufficientFunds},
		{"insufficient shares", map[string]interface{}{"ticker": "NOPE", "quantity": 999999, "price": 1, "action": "sell"}, http.StatusUnprocessableEntity, CodeInsufficientShares},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, http.MethodPost, "/api/playground/trades", "bob", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body=%s)", rr.Code, tt.status, rr.Body.String())
			}
			var errResp ErrorResponse
			decodeBody(t, rr, &errResp)
			if errResp.Code != tt.code || errResp.Error == "" {
				t.Errorf("unexpected error body: %+v", errResp)
			}
		})
	}

	// State untouched by every rejection
	rr := doRequest(t, s, http.MethodGet, "/api/playground/portfolio", "bob", nil)
	var resp portfolioResponse
	decodeBody(t, rr, &resp)
	if resp.Portfolio.Cash.String() != "100000" || len(resp.Portfolio.Holdings) != 0 {
		t.Errorf("rejected orders changed state: %+v", resp.Portfolio)
	}
}

func TestHandleTrade_BadJSON(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/playground/trades", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestHandleTrade_MarketOrderProviderDown(t *testing.T) {
	s := newTestServer(t, &stubPrices{err: errors.New("eodhd down")})

	rr := doRequest(t, s, http.MethodPost, "/api/playground/trades", "carol",
		map[string]interface{}{"ticker": "ACME", "quantity": 1, "action": "buy"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandleTradeEstimate(t *testing.T) {
	s := newTestServer(t, &stubPrices{prices: map[string]float64{"ACME": 20}})

	rr := doRequest(t, s, http.MethodPost, "/api/playground/trades/estimate", "dave",
		map[string]interface{}{"ticker": "ACME", "quantity": 5, "action": "buy"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var est models.OrderEstimate
	decodeBody(t, rr, &est)
	if !est.Feasible || est.Amount.String() != "100" || est.CashAfter.String() != "99900" {
		t.Errorf("unexpected estimate: %+v", est)
	}

	// Estimates never commit
	rr = doRequest(t, s, http.MethodGet, "/api/playground/portfolio", "dave", nil)
	var resp portfolioResponse
	decodeBody(t, rr, &resp)
	if resp.Portfolio.Cash.String() != "100000" {
		t.Errorf("estimate changed cash: %s", resp.Portfolio.Cash)
	}
}

func TestHandleQuote(t *testing.T) {
	s := newTestServer(t, &stubPrices{prices: map[string]float64{"AAPL": 190.5}})

	rr := doRequest(t, s, http.MethodGet, "/api/playground/quote/aapl", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]interface{}
	decodeBody(t, rr, &body)
	if body["ticker"] != "AAPL" || body["price"] != 190.5 {
		t.Errorf("unexpected quote: %v", body)
	}

	rr = doRequest(t, s, http.MethodGet, "/api/playground/quote/MSFT", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown ticker, got %d", rr.Code)
	}

	rr = doRequest(t, s, http.MethodGet, "/api/playground/quote/", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing ticker, got %d", rr.Code)
	}
}

func TestHandleQuote_NoProvider(t *testing.T) {
	s := newTestServer(t, nil)
	rr := doRequest(t, s, http.MethodGet, "/api/playground/quote/AAPL", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}

func TestHandleQuote_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", fmt.Errorf("%w: eodhd down", models.ErrCollaboratorUnavailable), http.StatusServiceUnavailable, CodeUnavailable},
		{"unexpected", errors.New("nil pointer in provider"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &stubPrices{err: tt.err})
			rr := doRequest(t, s, http.MethodGet, "/api/playground/quote/AAPL", "", nil)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var errResp ErrorResponse
			decodeBody(t, rr, &errResp)
			if errResp.Code != tt.code {
				t.Errorf("code = %q, want %q", errResp.Code, tt.code)
			}
		})
	}
}

func TestHandleHealthReport(t *testing.T) {
	s := newTestServer(t, &stubPrices{prices: map[string]float64{"ACME": 60}})

	rr := doRequest(t, s, http.MethodGet, "/api/playground/health-report", "erin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var report models.HealthReport
	decodeBody(t, rr, &report)
	if !report.Empty || report.Narrative != models.NothingToAnalyze {
		t.Errorf("expected empty report, got %+v", report)
	}

	doRequest(t, s, http.MethodPost, "/api/playground/trades", "erin",
		map[string]interface{}{"ticker": "ACME", "quantity": 10, "price": 50, "action": "buy"})

	rr = doRequest(t, s, http.MethodGet, "/api/playground/health-report?refresh=true", "erin", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	decodeBody(t, rr, &report)
	if report.Empty || report.Narrative != "**Overall Summary:** Fine." {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.HighestConcentration == nil || report.HighestConcentration.Ticker != "ACME" {
		t.Errorf("unexpected concentration: %+v", report.HighestConcentration)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.ErrInvalidOrder, http.StatusBadRequest},
		{models.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{models.ErrInsufficientShares, http.StatusUnprocessableEntity},
		{models.ErrTransientStoreConflict, http.StatusConflict},
		{models.ErrCollaboratorUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _, msg := classifyError(tt.err)
		if status != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, status, tt.status)
		}
		if msg == "" {
			t.Errorf("%v: empty message", tt.err)
		}
	}
}
