package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/report"
	"github.com/mtlprog/divtracker/internal/wallet"
)

type mockReportRepo struct {
	reports       []report.Report
	lastListLimit int
}

func (m *mockReportRepo) Save(_ context.Context, _ time.Time, _ json.RawMessage) error {
	return nil
}

func (m *mockReportRepo) GetLatest(_ context.Context) (*report.Report, error) {
	if len(m.reports) == 0 {
		return nil, report.ErrNotFound
	}
	return &m.reports[0], nil
}

func (m *mockReportRepo) GetByDate(_ context.Context, date time.Time) (*report.Report, error) {
	for _, r := range m.reports {
		if r.ReportDate.Equal(date) {
			return &r, nil
		}
	}
	return nil, report.ErrNotFound
}

func (m *mockReportRepo) List(_ context.Context, limit int) ([]report.Report, error) {
	m.lastListLimit = limit
	if limit > len(m.reports) {
		limit = len(m.reports)
	}
	return m.reports[:limit], nil
}

func newReportHandler(repo *mockReportRepo) *Handler {
	return NewHandler(report.NewService(&countingSweeper{}, repo))
}

func TestGetLatestReport(t *testing.T) {
	repo := &mockReportRepo{
		reports: []report.Report{
			{ID: 1, ReportDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), Data: json.RawMessage(`{"wallets":3}`)},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/latest", nil)
	w := httptest.NewRecorder()
	newReportHandler(repo).GetLatestReport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var result report.Report
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.ID != 1 || string(result.Data) != `{"wallets":3}` {
		t.Errorf("report = %+v", result)
	}
}

func TestGetLatestReportNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/latest", nil)
	w := httptest.NewRecorder()
	newReportHandler(&mockReportRepo{}).GetLatestReport(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetReportByDate(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockReportRepo{reports: []report.Report{{ID: 7, ReportDate: date, Data: json.RawMessage(`{}`)}}}
	h := newReportHandler(repo)

	tests := []struct {
		date string
		want int
	}{
		{"2025-01-15", http.StatusOK},
		{"2025-01-16", http.StatusNotFound},
		{"15.01.2025", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+tt.date, nil)
		req.SetPathValue("date", tt.date)
		w := httptest.NewRecorder()
		h.GetReportByDate(w, req)

		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.date, w.Code, tt.want)
		}
	}
}

func TestListReportsLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 30},
		{"?limit=5", 5},
		{"?limit=1000", 365},
		{"?limit=-1", 30},
		{"?limit=abc", 30},
	}
	for _, tt := range tests {
		repo := &mockReportRepo{}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports"+tt.query, nil)
		w := httptest.NewRecorder()
		newReportHandler(repo).ListReports(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%q: status = %d, want 200", tt.query, w.Code)
		}
		if repo.lastListLimit != tt.want {
			t.Errorf("%q: limit = %d, want %d", tt.query, repo.lastListLimit, tt.want)
		}
		if body := w.Body.String(); body != "[]\n" {
			t.Errorf("%q: body = %q, want empty array", tt.query, body)
		}
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid address", domain.ErrInvalidAddress, http.StatusBadRequest},
		{"invalid balance", domain.ErrInvalidBalance, http.StatusBadRequest},
		{"ledger 404", domain.ErrWalletNotFound, http.StatusNotFound},
		{"not registered", wallet.ErrNotFound, http.StatusNotFound},
		{"duplicate", wallet.ErrAlreadyExists, http.StatusConflict},
		{"transient", domain.ErrTransientNetwork, http.StatusServiceUnavailable},
		{"timeout", domain.ErrQueryTimedOut, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err, "test")

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("body = %v, %v; want error message", body, err)
			}
		})
	}
}
