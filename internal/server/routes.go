package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/rebal/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Gateway passthrough
	mux.HandleFunc("/api/auth/status", s.handleAuthStatus)
	mux.HandleFunc("/api/accounts", s.handleAccounts)

	// Analysis
	mux.HandleFunc("/api/portfolio/", s.routePortfolio)

	// Auto-invest
	mux.HandleFunc("/api/autoinvest/", s.routeAutoInvest)

	// Settings
	mux.HandleFunc("/api/allocations", s.handleAllocations)
	mux.HandleFunc("/api/settings/buffer", s.handleBuffer)
}

// routePortfolio dispatches /api/portfolio/{id}/* to the appropriate handler.
func (s *Server) routePortfolio(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolio/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		WriteError(w, http.StatusBadRequest, "account id is required in path")
		return
	}

	if len(parts) == 2 && parts[1] == "analysis" {
		s.handleAnalysis(w, r, parts[0])
		return
	}

	WriteError(w, http.StatusNotFound, "Not found")
}

// routeAutoInvest dispatches /api/autoinvest/{id}/{action} to the appropriate handler.
func (s *Server) routeAutoInvest(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/autoinvest/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" || len(parts) < 2 {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch parts[1] {
	case "plan":
		s.handlePlan(w, r, parts[0])
	case "execute":
		s.handleExecute(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   common.GetVersion(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleConfig handles GET /api/config. Returns the effective runtime
// configuration without storage paths.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment": cfg.Environment,
		"gateway": map[string]interface{}{
			"base_url":   cfg.Gateway.BaseURL,
			"timeout":    cfg.Gateway.Timeout,
			"rate_limit": cfg.Gateway.RateLimit,
		},
		"currency": map[string]interface{}{
			"quote":     cfg.Currency.Quote,
			"secondary": cfg.Currency.Secondary,
		},
		"invest": map[string]interface{}{
			"default_buffer_percent":  cfg.Invest.DefaultBufferPercent,
			"min_cash_threshold":      cfg.Invest.MinCashThreshold,
			"min_conversion_amount":   cfg.Invest.MinConversionAmount,
			"fill_poll_interval":      cfg.Invest.FillPollInterval,
			"conversion_fill_timeout": cfg.Invest.ConversionFillTimeout,
		},
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
