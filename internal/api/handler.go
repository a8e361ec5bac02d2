package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/report"
	"github.com/mtlprog/divtracker/internal/wallet"
)

// Handler serves stored dividend reports.
type Handler struct {
	reports *report.Service
}

// NewHandler creates a new report handler.
func NewHandler(reports *report.Service) *Handler {
	return &Handler{reports: reports}
}

// GetLatestReport handles GET /api/v1/reports/latest.
func (h *Handler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no reports found")
			return
		}
		slog.Error("failed to get latest report", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetReportByDate handles GET /api/v1/reports/{date}.
func (h *Handler) GetReportByDate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.PathValue("date")
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	rep, err := h.reports.GetByDate(r.Context(), date)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found for date")
			return
		}
		slog.Error("failed to get report by date", "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListReports handles GET /api/v1/reports.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	reports, err := h.reports.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if reports == nil {
		reports = []report.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// GenerateReport handles POST /api/v1/reports/generate.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	sweep, err := h.reports.Generate(r.Context(), date)
	if err != nil {
		slog.Error("failed to generate report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	writeJSON(w, http.StatusOK, sweep)
}

// writeServiceError maps domain and store errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress), errors.Is(err, domain.ErrInvalidBalance):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrWalletNotFound):
		writeError(w, http.StatusNotFound, "wallet not found on the ledger")
	case errors.Is(err, wallet.ErrNotFound):
		writeError(w, http.StatusNotFound, "wallet not registered")
	case errors.Is(err, wallet.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "wallet already added")
	case domain.IsRetryable(err):
		slog.Warn(msg, "error", err)
		writeError(w, http.StatusServiceUnavailable, "ledger temporarily unavailable, try again later")
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
