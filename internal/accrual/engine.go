package accrual

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/tier"
)

// Status tells the front end how to render a wallet result.
type Status string

const (
	StatusOK Status = "ok"
	// StatusNoAnchor means discovery finished and found no qualifying operation.
	StatusNoAnchor Status = "no_anchor"
	// StatusAnchorPending means discovery has not completed yet.
	StatusAnchorPending Status = "anchor_pending"
	StatusError         Status = "error"
)

// AccruedLine is the accumulated dividend of one reward asset.
type AccruedLine struct {
	Asset           string          `json:"asset"`
	Periodic        decimal.Decimal `json:"periodic"`
	Amount          decimal.Decimal `json:"amount"`
	SettlementValue decimal.Decimal `json:"settlement_value"`
}

// WalletResult is the render-agnostic outcome for one wallet.
type WalletResult struct {
	Wallet          string          `json:"wallet"`
	Status          Status          `json:"status"`
	Balance         decimal.Decimal `json:"balance"`
	Anchor          *time.Time      `json:"anchor,omitempty"`
	Projection      tier.Projection `json:"projection"`
	Periods         int64           `json:"periods"`
	Accrued         []AccruedLine   `json:"accrued"`
	SettlementTotal decimal.Decimal `json:"settlement_total"`
	Error           string          `json:"error,omitempty"`
}

// Engine turns a periodic projection into dividends accumulated since the anchor.
// It is pure and safe for concurrent use.
type Engine struct {
	projector *tier.Projector
	period    time.Duration
}

// NewEngine creates an engine with the given accrual period.
func NewEngine(projector *tier.Projector, period time.Duration) (*Engine, error) {
	if projector == nil {
		return nil, fmt.Errorf("projector is required")
	}
	if period <= 0 {
		return nil, fmt.Errorf("accrual period must be positive, got %s", period)
	}
	return &Engine{projector: projector, period: period}, nil
}

// Projector returns the underlying projector.
func (e *Engine) Projector() *tier.Projector { return e.projector }

// ElapsedPeriods returns floor((now - anchor) / period), never negative.
func (e *Engine) ElapsedPeriods(anchor, now time.Time) int64 {
	elapsed := now.Sub(anchor)
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / e.period)
}

// Accumulate computes the dividends accrued by wallet.
//
// A nil anchor yields StatusNoAnchor with the projection but no accrued
// lines. A zero balance yields an all-zero StatusOK result without running
// the projection.
func (e *Engine) Accumulate(wallet string, balance decimal.Decimal, anchor *time.Time, now time.Time) (WalletResult, error) {
	if balance.IsNegative() {
		return WalletResult{}, fmt.Errorf("%w: %s is negative", domain.ErrInvalidBalance, balance)
	}

	res := WalletResult{
		Wallet:          wallet,
		Balance:         balance,
		Accrued:         []AccruedLine{},
		SettlementTotal: decimal.Zero,
	}

	if anchor == nil {
		proj, err := e.projector.Project(balance)
		if err != nil {
			return WalletResult{}, err
		}
		res.Status = StatusNoAnchor
		res.Projection = proj
		return res, nil
	}

	at := anchor.UTC()
	res.Anchor = &at
	res.Status = StatusOK
	res.Periods = e.ElapsedPeriods(at, now)

	if balance.IsZero() {
		res.Projection = emptyProjection(balance)
		return res, nil
	}

	proj, err := e.projector.Project(balance)
	if err != nil {
		return WalletResult{}, err
	}
	res.Projection = proj

	periods := decimal.NewFromInt(res.Periods)
	rates := e.projector.Rates()
	for _, line := range proj.Lines {
		amount := line.Periodic.Mul(periods)
		value, err := rates.ToSettlement(line.Asset, amount)
		if err != nil {
			return WalletResult{}, err
		}
		res.Accrued = append(res.Accrued, AccruedLine{
			Asset:           line.Asset,
			Periodic:        line.Periodic,
			Amount:          amount,
			SettlementValue: value,
		})
		res.SettlementTotal = res.SettlementTotal.Add(value)
	}
	return res, nil
}

func emptyProjection(balance decimal.Decimal) tier.Projection {
	return tier.Projection{
		Balance:         balance,
		Tier:            tier.BelowMinimum,
		TierLabel:       tier.BelowMinimum.String(),
		Lines:           []tier.LineAmount{},
		SettlementTotal: decimal.Zero,
	}
}

// Pending builds the result for a wallet whose anchor discovery has not completed.
func Pending(wallet string, balance decimal.Decimal, proj tier.Projection) WalletResult {
	return WalletResult{
		Wallet:          wallet,
		Status:          StatusAnchorPending,
		Balance:         balance,
		Projection:      proj,
		Accrued:         []AccruedLine{},
		SettlementTotal: decimal.Zero,
	}
}

// Failed builds the result for a wallet that could not be processed.
func Failed(wallet string, err error) WalletResult {
	return WalletResult{
		Wallet:          wallet,
		Status:          StatusError,
		Balance:         decimal.Zero,
		Projection:      emptyProjection(decimal.Zero),
		Accrued:         []AccruedLine{},
		SettlementTotal: decimal.Zero,
		Error:           err.Error(),
	}
}
