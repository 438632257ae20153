package server

import (
	"net/http"

	"github.com/bobmcallan/playground/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Playground
	mux.HandleFunc("/api/playground/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/playground/trades", s.handleTrade)
	mux.HandleFunc("/api/playground/trades/estimate", s.handleTradeEstimate)
	mux.HandleFunc("/api/playground/quote/", s.handleQuote)
	mux.HandleFunc("/api/playground/health-report", s.handleHealthReport)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.app.Storage.Backend(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}
