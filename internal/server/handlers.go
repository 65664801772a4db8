package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bobmcallan/rebal/internal/clients/gateway"
	"github.com/bobmcallan/rebal/internal/models"
)

// writeGatewayError maps a failed gateway call to an HTTP status. Upstream
// failures surface as 502 so callers can distinguish a broken gateway from
// a broken engine.
func writeGatewayError(w http.ResponseWriter, err error, context string) {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", context, err))
		return
	}
	WriteError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", context, err))
}

// --- Gateway passthrough handlers ---

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status, err := s.app.Gateway.AuthStatus(r.Context())
	if err != nil {
		writeGatewayError(w, err, "Error checking gateway auth status")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	accounts, err := s.app.Gateway.Accounts(r.Context())
	if err != nil {
		writeGatewayError(w, err, "Error listing accounts")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
	})
}

// --- Analysis and auto-invest handlers ---

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request, accountID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	analysis, err := s.app.Analyzer.Analyze(r.Context(), accountID)
	if err != nil {
		writeGatewayError(w, err, "Analysis error")
		return
	}

	WriteJSON(w, http.StatusOK, analysis)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request, accountID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	plan, err := s.app.Planner.BuildPlan(r.Context(), accountID)
	if err != nil {
		writeGatewayError(w, err, "Plan error")
		return
	}

	WriteJSON(w, http.StatusOK, plan)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, accountID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.app.Executor.Execute(r.Context(), accountID)
	if err != nil {
		writeGatewayError(w, err, "Execution error")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// --- Settings handlers ---

func (s *Server) handleAllocations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		allocations, err := s.app.ConfigStore.GetAllocations(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading allocations: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"allocations": allocations,
		})

	case http.MethodPut:
		var req struct {
			Allocations []*models.Allocation `json:"allocations"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		if err := s.app.ConfigStore.SaveAllocations(r.Context(), req.Allocations); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid allocations: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"allocations": req.Allocations,
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleBuffer(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		buffer, err := s.app.ConfigStore.GetBufferPercent(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error loading buffer percent: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"buffer_percent": buffer,
		})

	case http.MethodPut:
		var req struct {
			BufferPercent float64 `json:"buffer_percent"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		if err := s.app.ConfigStore.SetBufferPercent(r.Context(), req.BufferPercent); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid buffer percent: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"buffer_percent": req.BufferPercent,
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}
