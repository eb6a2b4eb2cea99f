package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/songzhibin97/prospector/internal/models"
	"github.com/songzhibin97/prospector/internal/prospecting"
)

const (
	MaxBatchAddresses    = 50
	MaxDiscoverAddresses = 100

	DefaultMinValueUSD = 50_000
	DefaultMinScore    = 60

	addressLength = 42
	maxBodyBytes  = 1 << 20
)

type walletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type reportRequest struct {
	WalletAddress        string `json:"wallet_address"`
	IncludeOutreachDraft bool   `json:"include_outreach_draft"`
}

type batchRequest struct {
	WalletAddresses []string `json:"wallet_addresses"`
}

type batchResponse struct {
	TotalAnalyzed int                  `json:"total_analyzed"`
	Prospects     []models.BatchResult `json:"prospects"`
}

type discoverRequest struct {
	WalletAddresses []string `json:"wallet_addresses"`
	MinValueUSD     *float64 `json:"min_value_usd"`
	MinScore        *float64 `json:"min_score"`
}

type watchlistRequest struct {
	List        string   `json:"list"`
	Limit       int      `json:"limit"`
	MinValueUSD *float64 `json:"min_value_usd"`
	MinScore    *float64 `json:"min_score"`
}

type discoverFilters struct {
	MinValueUSD float64 `json:"min_value_usd"`
	MinScore    float64 `json:"min_score"`
}

type discoverResponse struct {
	TotalScanned   int                   `json:"total_scanned"`
	QualifiedCount int                   `json:"qualified_count"`
	Filters        discoverFilters       `json:"filters"`
	Prospects      []models.ProspectLead `json:"prospects"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type handlers struct {
	svc    Prospector
	logger *slog.Logger
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !h.decodeAddress(w, r, &req, &req.WalletAddress) {
		return
	}

	metrics, err := h.svc.AnalyzeWallet(r.Context(), req.WalletAddress)
	if err != nil {
		h.internalError(w, "analyze", err)
		return
	}
	h.sendJSON(w, http.StatusOK, metrics)
}

func (h *handlers) score(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !h.decodeAddress(w, r, &req, &req.WalletAddress) {
		return
	}

	score, err := h.svc.ScoreForMortgage(r.Context(), req.WalletAddress)
	if err != nil {
		h.internalError(w, "score", err)
		return
	}
	h.sendJSON(w, http.StatusOK, score)
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !h.decodeAddress(w, r, &req, &req.WalletAddress) {
		return
	}

	report, err := h.svc.GenerateProspectReport(r.Context(), req.WalletAddress, req.IncludeOutreachDraft)
	if err != nil {
		h.internalError(w, "report", err)
		return
	}
	h.sendJSON(w, http.StatusOK, report)
}

func (h *handlers) demo(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.DemoReport(r.Context())
	if err != nil {
		h.internalError(w, "demo", err)
		return
	}
	h.sendJSON(w, http.StatusOK, report)
}

func (h *handlers) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validateAddresses(w, req.WalletAddresses, MaxBatchAddresses, "batch") {
		return
	}

	results := h.svc.BatchAnalyze(r.Context(), req.WalletAddresses)
	h.sendJSON(w, http.StatusOK, batchResponse{
		TotalAnalyzed: len(results),
		Prospects:     results,
	})
}

func (h *handlers) discover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validateAddresses(w, req.WalletAddresses, MaxDiscoverAddresses, "discovery") {
		return
	}

	filters := newFilters(req.MinValueUSD, req.MinScore)
	leads := h.svc.DiscoverProspects(r.Context(), req.WalletAddresses, filters.MinValueUSD, filters.MinScore)

	h.sendJSON(w, http.StatusOK, discoverResponse{
		TotalScanned:   len(req.WalletAddresses),
		QualifiedCount: len(leads),
		Filters:        filters,
		Prospects:      leads,
	})
}

func (h *handlers) discoverWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.List) == "" {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "list is required")
		return
	}
	if req.Limit < 0 || req.Limit > MaxDiscoverAddresses {
		h.sendError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("limit must be between 1 and %d", MaxDiscoverAddresses))
		return
	}
	if req.Limit == 0 {
		req.Limit = MaxDiscoverAddresses
	}

	filters := newFilters(req.MinValueUSD, req.MinScore)
	scanned, leads, err := h.svc.DiscoverFromWatchlist(r.Context(), req.List, req.Limit, filters.MinValueUSD, filters.MinScore)
	if errors.Is(err, prospecting.ErrNoWatchlist) {
		h.sendError(w, http.StatusServiceUnavailable, "watchlist_unavailable", err.Error())
		return
	}
	if err != nil {
		h.internalError(w, "discover watchlist", err)
		return
	}

	h.sendJSON(w, http.StatusOK, discoverResponse{
		TotalScanned:   len(scanned),
		QualifiedCount: len(leads),
		Filters:        filters,
		Prospects:      leads,
	})
}

func newFilters(minValue, minScore *float64) discoverFilters {
	f := discoverFilters{MinValueUSD: DefaultMinValueUSD, MinScore: DefaultMinScore}
	if minValue != nil {
		f.MinValueUSD = *minValue
	}
	if minScore != nil {
		f.MinScore = *minScore
	}
	return f
}

// ValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func ValidAddress(s string) bool {
	return len(s) == addressLength && strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func (h *handlers) decodeAddress(w http.ResponseWriter, r *http.Request, v any, address *string) bool {
	if !h.decode(w, r, v) {
		return false
	}
	if *address == "" {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "wallet_address is required")
		return false
	}
	if !ValidAddress(*address) {
		h.sendError(w, http.StatusBadRequest, "invalid_address", "Invalid Ethereum address format")
		return false
	}
	return true
}

func (h *handlers) validateAddresses(w http.ResponseWriter, addresses []string, limit int, what string) bool {
	if len(addresses) == 0 {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "wallet_addresses array is required")
		return false
	}
	if len(addresses) > limit {
		h.sendError(w, http.StatusBadRequest, "too_many_addresses", fmt.Sprintf("Maximum %d addresses per %s", limit, what))
		return false
	}
	for _, addr := range addresses {
		if !ValidAddress(addr) {
			h.sendError(w, http.StatusBadRequest, "invalid_address", fmt.Sprintf("Invalid address format: %s", addr))
			return false
		}
	}
	return true
}

func (h *handlers) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request_failed", "operation", op, "error", err)
	h.sendError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func (h *handlers) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json_encode_failed", "error", err)
	}
}

func (h *handlers) sendError(w http.ResponseWriter, status int, code, message string) {
	h.sendJSON(w, status, errorResponse{Error: code, Message: message})
}
