package accrual

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/tier"
)

const week = 7 * 24 * time.Hour

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := tier.Default()
	if err != nil {
		t.Fatalf("tier.Default: %v", err)
	}
	e, err := NewEngine(s.Projector(), week)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func ptr(t time.Time) *time.Time { return &t }

func accruedFor(t *testing.T, r WalletResult, asset string) AccruedLine {
	t.Helper()
	for _, l := range r.Accrued {
		if l.Asset == asset {
			return l
		}
	}
	t.Fatalf("no accrued line for %s in %+v", asset, r.Accrued)
	return AccruedLine{}
}

func TestElapsedPeriods(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name   string
		anchor time.Time
		want   int64
	}{
		{"fourteen days", now.Add(-14 * 24 * time.Hour), 2},
		{"just under one week", now.Add(-week + time.Second), 0},
		{"exactly one week", now.Add(-week), 1},
		{"twenty days", now.Add(-20 * 24 * time.Hour), 2},
		{"same instant", now, 0},
		{"anchor in the future", now.Add(time.Hour), 0},
		{"one year", now.AddDate(-1, 0, 0), 52},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ElapsedPeriods(tt.anchor, now); got != tt.want {
				t.Errorf("ElapsedPeriods = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAccumulateTwoPeriods(t *testing.T) {
	e := newEngine(t)

	got, err := e.Accumulate("GWALLET", d("100"), ptr(now.Add(-14*24*time.Hour)), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusOK {
		t.Fatalf("status = %s, want ok", got.Status)
	}
	if got.Periods != 2 {
		t.Errorf("periods = %d, want 2", got.Periods)
	}

	xai := accruedFor(t, got, "XAI")
	if !xai.Periodic.Equal(d("3.5")) {
		t.Errorf("XAI periodic = %s, want 3.5", xai.Periodic)
	}
	if !xai.Amount.Equal(d("7")) {
		t.Errorf("XAI accrued = %s, want 7", xai.Amount)
	}
	// 7 XAI × 3 XLM
	if !xai.SettlementValue.Equal(d("21")) {
		t.Errorf("XAI settlement = %s, want 21", xai.SettlementValue)
	}
	// projection settlement total 40.5 per period
	if !got.SettlementTotal.Equal(d("81")) {
		t.Errorf("settlement total = %s, want 81", got.SettlementTotal)
	}
}

func TestAccumulateZeroPeriodsIsNotNoAnchor(t *testing.T) {
	e := newEngine(t)

	got, err := e.Accumulate("GWALLET", d("100"), ptr(now.Add(-time.Hour)), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusOK {
		t.Errorf("status = %s, want ok", got.Status)
	}
	if got.Periods != 0 {
		t.Errorf("periods = %d, want 0", got.Periods)
	}
	if len(got.Accrued) == 0 {
		t.Fatal("expected accrued lines with zero amounts")
	}
	for _, l := range got.Accrued {
		if !l.Amount.IsZero() {
			t.Errorf("%s accrued = %s, want 0", l.Asset, l.Amount)
		}
	}
	if !got.SettlementTotal.IsZero() {
		t.Errorf("settlement total = %s, want 0", got.SettlementTotal)
	}
}

func TestAccumulateNoAnchor(t *testing.T) {
	e := newEngine(t)

	got, err := e.Accumulate("GWALLET", d("100"), nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusNoAnchor {
		t.Fatalf("status = %s, want no_anchor", got.Status)
	}
	if len(got.Accrued) != 0 {
		t.Errorf("accrued = %v, want none", got.Accrued)
	}
	if got.Anchor != nil {
		t.Errorf("anchor = %v, want nil", got.Anchor)
	}
	if got.Projection.Tier != 1 {
		t.Errorf("projection tier = %s, want Tier 1", got.Projection.Tier)
	}
}

func TestAccumulateZeroBalance(t *testing.T) {
	e := newEngine(t)

	got, err := e.Accumulate("GWALLET", decimal.Zero, ptr(now.Add(-30*24*time.Hour)), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusOK {
		t.Errorf("status = %s, want ok", got.Status)
	}
	if got.Projection.Tier != tier.BelowMinimum {
		t.Errorf("tier = %s, want No Tier", got.Projection.Tier)
	}
	if len(got.Accrued) != 0 || !got.SettlementTotal.IsZero() {
		t.Errorf("expected all-zero result, got %+v", got)
	}
}

func TestAccumulateNegativeBalance(t *testing.T) {
	e := newEngine(t)
	_, err := e.Accumulate("GWALLET", d("-1"), ptr(now), now)
	if !errors.Is(err, domain.ErrInvalidBalance) {
		t.Fatalf("error = %v, want ErrInvalidBalance", err)
	}
}

func TestAccumulateNormalizesAnchorToUTC(t *testing.T) {
	e := newEngine(t)
	loc := time.FixedZone("UTC+3", 3*60*60)
	anchor := now.Add(-week).In(loc)

	got, err := e.Accumulate("GWALLET", d("10"), &anchor, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Anchor.Location() != time.UTC {
		t.Errorf("anchor location = %v, want UTC", got.Anchor.Location())
	}
	if got.Periods != 1 {
		t.Errorf("periods = %d, want 1", got.Periods)
	}
}

func TestNewEngineRejectsBadPeriod(t *testing.T) {
	s, err := tier.Default()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(s.Projector(), 0); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := NewEngine(nil, week); err == nil {
		t.Error("expected error for nil projector")
	}
}

func TestAggregate(t *testing.T) {
	e := newEngine(t)

	a, _ := e.Accumulate("GA", d("100"), ptr(now.Add(-14*24*time.Hour)), now)
	b, _ := e.Accumulate("GB", d("300"), ptr(now.Add(-week)), now)
	c, _ := e.Accumulate("GC", d("50"), nil, now)
	p := Pending("GD", d("10"), c.Projection)
	f := Failed("GE", errors.New("horizon down"))

	batch := Aggregate([]WalletResult{a, b, c, p, f})

	// a: 81 XLM; b: 300 XAI = 900 XLM × (5.2+9+6+4.5)% = 222.3 XLM
	if !batch.GrandTotal.Equal(d("303.3")) {
		t.Errorf("grand total = %s, want 303.3", batch.GrandTotal)
	}
	if !batch.Totals["XAI"].Equal(d("22.6")) {
		t.Errorf("XAI total = %s, want 22.6", batch.Totals["XAI"])
	}
	if batch.OK != 2 || batch.NoAnchor != 1 || batch.Pending != 1 || batch.Failed != 1 {
		t.Errorf("counts ok=%d no_anchor=%d pending=%d failed=%d", batch.OK, batch.NoAnchor, batch.Pending, batch.Failed)
	}
	if batch.Wallets[4].Error != "horizon down" {
		t.Errorf("failed wallet error = %q", batch.Wallets[4].Error)
	}
	for i, w := range []string{"GA", "GB", "GC", "GD", "GE"} {
		if batch.Wallets[i].Wallet != w {
			t.Errorf("wallet %d = %s, want %s", i, batch.Wallets[i].Wallet, w)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	batch := Aggregate(nil)
	if !batch.GrandTotal.IsZero() || len(batch.Wallets) != 0 {
		t.Errorf("unexpected batch %+v", batch)
	}
}
