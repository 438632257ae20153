package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// --- Playground handlers ---

// portfolioResponse pairs the stored portfolio with its live valuation
type portfolioResponse struct {
	Portfolio *models.Portfolio `json:"portfolio"`
	Valuation *models.Valuation `json:"valuation"`
}

// handlePortfolio handles GET /api/playground/portfolio
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	p, err := s.app.TradeService.GetPortfolio(ctx, common.ResolveUserID(ctx))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	v, err := s.app.ValuationService.Value(ctx, p)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, portfolioResponse{Portfolio: p, Valuation: v})
}

// handleTrade handles POST /api/playground/trades
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var order models.Order
	if !DecodeJSON(w, r, &order) {
		return
	}

	ctx := r.Context()
	result, err := s.app.TradeService.ExecuteTrade(ctx, common.ResolveUserID(ctx), order)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// handleTradeEstimate handles POST /api/playground/trades/estimate
func (s *Server) handleTradeEstimate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var order models.Order
	if !DecodeJSON(w, r, &order) {
		return
	}

	ctx := r.Context()
	estimate, err := s.app.TradeService.EstimateOrder(ctx, common.ResolveUserID(ctx), order)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, estimate)
}

// handleQuote handles GET /api/playground/quote/{ticker}
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := models.NormalizeTicker(PathParam(r, "/api/playground/quote/", ""))
	if !models.ValidTicker(ticker) {
		WriteErrorWithCode(w, http.StatusBadRequest, "A valid ticker is required", CodeInvalidOrder)
		return
	}

	if s.app.Prices == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "No quote source is configured.", CodeUnavailable)
		return
	}

	price, found, err := s.app.Prices.GetCurrentPrice(r.Context(), ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Quote lookup failed")
		WriteServiceError(w, err)
		return
	}
	if !found {
		WriteErrorWithCode(w, http.StatusNotFound, "No current price for "+ticker, "not_found")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"price":  price,
	})
}

// handleHealthReport handles GET /api/playground/health-report
func (s *Server) handleHealthReport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	refresh, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("refresh")))

	ctx := r.Context()
	report, err := s.app.HealthService.GetHealthReport(ctx, common.ResolveUserID(ctx), interfaces.HealthOptions{ForceRefresh: refresh})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
