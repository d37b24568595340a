package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"invest-tracker-go/internal/models"
	"invest-tracker-go/internal/portfolio"
	"invest-tracker-go/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	service *portfolio.Service
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, service *portfolio.Service) *APIHandler {
	return &APIHandler{log: log, service: service}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps engine errors onto HTTP statuses: rejected input is the
// caller's fault, a missing entity is 404, everything else is a 500.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrValidation), errors.Is(err, portfolio.ErrOversell):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error("Request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// StatusHandler reports liveness.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// ListPortfoliosHandler returns every live portfolio.
func (h *APIHandler) ListPortfoliosHandler(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.service.Portfolios()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, portfolios)
}

// CreatePortfolioHandler creates a portfolio; its currency is derived from
// the country and fixed from then on.
func (h *APIHandler) CreatePortfolioHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Country     string `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.service.CreatePortfolio(req.Name, req.Description, req.Country)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// GetPortfolioHandler returns one portfolio by id.
func (h *APIHandler) GetPortfolioHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Portfolio(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// DeletePortfolioHandler soft-deletes a portfolio; ?cascade=true also
// soft-deletes its transactions.
func (h *APIHandler) DeletePortfolioHandler(w http.ResponseWriter, r *http.Request) {
	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))
	if err := h.service.DeletePortfolio(chi.URLParam(r, "id"), cascade); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HoldingsHandler returns the current holdings for one portfolio.
// ?realtime=false prices positions at their average cost instead of
// querying the quote provider.
func (h *APIHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	realTime := true
	if v := r.URL.Query().Get("realtime"); v != "" {
		realTime, _ = strconv.ParseBool(v)
	}

	holdings, err := h.service.Holdings(r.Context(), chi.URLParam(r, "id"), realTime)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// ListTransactionsHandler returns one portfolio's live transactions.
func (h *APIHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.Transactions(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// AddTransactionHandler appends one trade to a portfolio's ledger.
func (h *APIHandler) AddTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	tx.PortfolioID = chi.URLParam(r, "id")

	created, err := h.service.AddTransaction(tx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// DeleteTransactionHandler soft-deletes one transaction.
func (h *APIHandler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTransaction(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCashHandler updates a portfolio's cash position in its native currency.
func (h *APIHandler) SetCashHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SetCash(chi.URLParam(r, "id"), req.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DashboardHandler returns the combined dashboard in the requested display
// currency (default USD).
func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Dashboard(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

// AnalyticsHandler returns performance analytics. An empty portfolio
// parameter aggregates every portfolio.
func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = "1Y"
	}

	analytics, err := h.service.Analytics(r.Context(), q.Get("portfolio"), timeframe, q.Get("currency"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analytics)
}

// RefreshHandler recomputes every portfolio's totals with fresh market data
// and clears cached aggregates.
func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshAll(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
