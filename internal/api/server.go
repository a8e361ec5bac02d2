package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtlprog/divtracker/internal/report"
	"github.com/mtlprog/divtracker/internal/tier"
)

// Services are the dependencies served over HTTP. Reports and Gatherer are optional.
type Services struct {
	Tracker  Tracker
	Schedule *tier.Schedule
	Holders  HolderCounter
	Reports  *report.Service
	Gatherer prometheus.Gatherer
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, svc Services, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(svc, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers every route on a fresh ServeMux.
func NewMux(svc Services, adminAPIKey string) *http.ServeMux {
	mux := http.NewServeMux()

	tiers := NewTierHandler(svc.Schedule, svc.Holders)
	mux.HandleFunc("GET /api/v1/tiers", tiers.GetTiers)
	mux.HandleFunc("GET /api/v1/tiers/classify", tiers.Classify)
	mux.HandleFunc("GET /api/v1/assets", tiers.GetAssets)

	wallets := NewWalletHandler(svc.Tracker)
	mux.HandleFunc("GET /api/v1/users/{user}/wallets", wallets.ListWallets)
	mux.HandleFunc("POST /api/v1/users/{user}/wallets", wallets.AddWallet)
	mux.HandleFunc("DELETE /api/v1/users/{user}/wallets/{address}", wallets.RemoveWallet)
	mux.HandleFunc("GET /api/v1/users/{user}/dividends", wallets.GetDividends)
	mux.HandleFunc("GET /api/v1/wallets/{address}", wallets.GetWallet)

	if svc.Reports != nil {
		reports := NewHandler(svc.Reports)
		mux.HandleFunc("GET /api/v1/reports/latest", reports.GetLatestReport)
		mux.HandleFunc("GET /api/v1/reports/{date}", reports.GetReportByDate)
		mux.HandleFunc("GET /api/v1/reports", reports.ListReports)

		generateHandler := http.HandlerFunc(reports.GenerateReport)
		if adminAPIKey != "" {
			mux.Handle("POST /api/v1/reports/generate", requireAuth(adminAPIKey, generateHandler))
		} else {
			mux.Handle("POST /api/v1/reports/generate", generateHandler)
		}
	}

	if svc.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
