package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/tier"
)

// HolderCounter reports how many accounts hold an asset.
type HolderCounter interface {
	FetchAssetHolders(ctx context.Context, asset domain.AssetInfo) (int, error)
}

// TierHandler serves the reward schedule.
type TierHandler struct {
	schedule *tier.Schedule
	holders  HolderCounter
}

// NewTierHandler creates a new TierHandler. holders may be nil.
func NewTierHandler(schedule *tier.Schedule, holders HolderCounter) *TierHandler {
	return &TierHandler{schedule: schedule, holders: holders}
}

type tierView struct {
	ID    tier.ID           `json:"id"`
	Label string            `json:"label"`
	Min   decimal.Decimal   `json:"min"`
	Max   *decimal.Decimal  `json:"max,omitempty"`
	Lines []tier.RewardLine `json:"lines"`
}

type scheduleView struct {
	Classification domain.AssetInfo           `json:"classification"`
	Settlement     domain.AssetInfo           `json:"settlement"`
	Rates          map[string]decimal.Decimal `json:"rates"`
	Tiers          []tierView                 `json:"tiers"`
}

type assetView struct {
	domain.AssetInfo
	Rate    decimal.Decimal `json:"rate"`
	Holders *int            `json:"holders,omitempty"`
}

// GetTiers handles GET /api/v1/tiers.
func (h *TierHandler) GetTiers(w http.ResponseWriter, _ *http.Request) {
	table := h.schedule.Table
	writeJSON(w, http.StatusOK, scheduleView{
		Classification: h.schedule.Classification,
		Settlement:     h.schedule.Settlement,
		Rates:          h.schedule.Rates.Rates(),
		Tiers: lo.Map(table.Tiers(), func(t tier.Tier, _ int) tierView {
			v := tierView{ID: t.ID, Label: t.ID.String(), Min: t.Min, Lines: t.Lines}
			if upper, ok := table.Upper(t.ID); ok {
				v.Max = &upper
			}
			return v
		}),
	})
}

// Classify handles GET /api/v1/tiers/classify?balance=.
func (h *TierHandler) Classify(w http.ResponseWriter, r *http.Request) {
	balance, err := tier.ParseBalance(r.URL.Query().Get("balance"))
	if err != nil {
		writeServiceError(w, err, "failed to parse balance")
		return
	}
	proj, err := h.schedule.Projector().Project(balance)
	if err != nil {
		writeServiceError(w, err, "failed to project balance")
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// GetAssets handles GET /api/v1/assets. Holder counts are best effort.
func (h *TierHandler) GetAssets(w http.ResponseWriter, r *http.Request) {
	assets := h.schedule.RewardAssets()
	views := make([]assetView, 0, len(assets))
	for _, a := range assets {
		rate, _ := h.schedule.Rates.Rate(a.Code)
		v := assetView{AssetInfo: a, Rate: rate}
		if h.holders != nil && !a.IsNative() {
			n, err := h.holders.FetchAssetHolders(r.Context(), a)
			if err != nil {
				slog.Warn("failed to fetch asset holders", "asset", a.Code, "error", err)
			} else {
				v.Holders = &n
			}
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}
