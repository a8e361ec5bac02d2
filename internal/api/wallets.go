package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mtlprog/divtracker/internal/accrual"
	"github.com/mtlprog/divtracker/internal/tier"
	"github.com/mtlprog/divtracker/internal/wallet"
)

// Tracker manages wallet registrations and dividend views.
type Tracker interface {
	Register(ctx context.Context, userID int64, address string) (wallet.Registration, error)
	Remove(ctx context.Context, userID int64, address string) error
	Wallets(ctx context.Context, userID int64) ([]wallet.Registration, error)
	Wallet(ctx context.Context, address string) (tier.Projection, error)
	Dividends(ctx context.Context, userID int64) (accrual.Batch, error)
}

// WalletHandler serves per-user wallet and dividend endpoints.
type WalletHandler struct {
	tracker Tracker
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(tracker Tracker) *WalletHandler {
	return &WalletHandler{tracker: tracker}
}

type addWalletRequest struct {
	Address string `json:"address"`
}

// ListWallets handles GET /api/v1/users/{user}/wallets.
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromPath(w, r)
	if !ok {
		return
	}
	regs, err := h.tracker.Wallets(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to list wallets")
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// AddWallet handles POST /api/v1/users/{user}/wallets.
func (h *WalletHandler) AddWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromPath(w, r)
	if !ok {
		return
	}

	var req addWalletRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reg, err := h.tracker.Register(r.Context(), userID, req.Address)
	if err != nil {
		writeServiceError(w, err, "failed to register wallet")
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// RemoveWallet handles DELETE /api/v1/users/{user}/wallets/{address}.
func (h *WalletHandler) RemoveWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromPath(w, r)
	if !ok {
		return
	}
	if err := h.tracker.Remove(r.Context(), userID, r.PathValue("address")); err != nil {
		writeServiceError(w, err, "failed to remove wallet")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDividends handles GET /api/v1/users/{user}/dividends.
func (h *WalletHandler) GetDividends(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromPath(w, r)
	if !ok {
		return
	}
	batch, err := h.tracker.Dividends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to compute dividends")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// GetWallet handles GET /api/v1/wallets/{address}.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	proj, err := h.tracker.Wallet(r.Context(), r.PathValue("address"))
	if err != nil {
		writeServiceError(w, err, "failed to load wallet")
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func userFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("user"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}
