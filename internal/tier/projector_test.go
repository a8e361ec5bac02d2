package tier

import (
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func lineFor(t *testing.T, p Projection, asset string) LineAmount {
	t.Helper()
	line, ok := lo.Find(p.Lines, func(l LineAmount) bool { return l.Asset == asset })
	if !ok {
		t.Fatalf("projection has no %s line: %+v", asset, p.Lines)
	}
	return line
}

func TestProjectTierOne(t *testing.T) {
	p := defaultSchedule(t).Projector()

	got, err := p.Project(d("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tier != 1 {
		t.Errorf("tier = %s, want Tier 1", got.Tier)
	}
	if xai := lineFor(t, got, "XAI"); !xai.Periodic.Equal(d("3.5")) {
		t.Errorf("XAI periodic = %s, want 3.5", xai.Periodic)
	}
	// 100 XAI = 300 XLM; 6% = 18 XLM = 0.012 TESLA
	tesla := lineFor(t, got, "TESLA")
	if !tesla.Periodic.Equal(d("0.012")) {
		t.Errorf("TESLA periodic = %s, want 0.012", tesla.Periodic)
	}
	if !tesla.SettlementValue.Equal(d("18")) {
		t.Errorf("TESLA settlement = %s, want 18", tesla.SettlementValue)
	}
	// 10.5 + 18 + 12
	if !got.SettlementTotal.Equal(d("40.5")) {
		t.Errorf("settlement total = %s, want 40.5", got.SettlementTotal)
	}
}

func TestProjectTierTwo(t *testing.T) {
	p := defaultSchedule(t).Projector()

	got, err := p.Project(d("300"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tier != 2 {
		t.Errorf("tier = %s, want Tier 2", got.Tier)
	}
	if xai := lineFor(t, got, "XAI"); !xai.Periodic.Equal(d("15.6")) {
		t.Errorf("XAI periodic = %s, want 15.6", xai.Periodic)
	}
	if len(got.Lines) != 4 {
		t.Errorf("lines = %d, want 4", len(got.Lines))
	}
	// 900 XLM × 4.5% = 40.5 XLM = 0.405 TBC
	if tbc := lineFor(t, got, "TBC"); !tbc.Periodic.Equal(d("0.405")) {
		t.Errorf("TBC periodic = %s, want 0.405", tbc.Periodic)
	}
}

func TestProjectZeroBalance(t *testing.T) {
	p := defaultSchedule(t).Projector()

	got, err := p.Project(decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tier != BelowMinimum {
		t.Errorf("tier = %s, want No Tier", got.Tier)
	}
	if len(got.Lines) != 0 {
		t.Errorf("lines = %v, want none", got.Lines)
	}
	if !got.SettlementTotal.IsZero() {
		t.Errorf("settlement total = %s, want 0", got.SettlementTotal)
	}
}

func TestProjectLineOrderFollowsTable(t *testing.T) {
	p := defaultSchedule(t).Projector()

	got, err := p.Project(d("500000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"XAI", "TESLA", "XELON", "TBC", "NLINK", "X", "STARLINK", "HYPER"}
	for i, asset := range want {
		if got.Lines[i].Asset != asset {
			t.Errorf("line %d = %s, want %s", i, got.Lines[i].Asset, asset)
		}
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := defaultSchedule(t)
	p := s.Projector()
	tolerance := d("0.000000001")

	for _, balance := range []string{"1", "100", "151", "777.7777777", "12345.6789", "500000"} {
		proj, err := p.Project(d(balance))
		if err != nil {
			t.Fatalf("Project(%s) error: %v", balance, err)
		}
		for _, line := range proj.Lines {
			back, err := s.Rates.ToSettlement(line.Asset, line.Periodic)
			if err != nil {
				t.Fatalf("ToSettlement(%s) error: %v", line.Asset, err)
			}
			if diff := back.Sub(line.SettlementValue).Abs(); diff.GreaterThan(tolerance) {
				t.Errorf("balance %s %s: round trip %s, want %s", balance, line.Asset, back, line.SettlementValue)
			}
		}
	}
}

func TestProjectNegativeBalance(t *testing.T) {
	p := defaultSchedule(t).Projector()
	if _, err := p.Project(d("-0.1")); err == nil {
		t.Fatal("expected error for negative balance")
	}
}

func TestNewProjectorMissingRate(t *testing.T) {
	table, err := NewTable([]Tier{{ID: 1, Min: d("1"), Lines: []RewardLine{
		{Asset: "XAI", Rate: d("0.01")},
		{Asset: "TESLA", Rate: d("0.02")},
	}}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	rates, err := NewRateTable("XLM", map[string]decimal.Decimal{"XAI": d("3")})
	if err != nil {
		t.Fatalf("NewRateTable: %v", err)
	}

	_, err = NewProjector(table, rates, "XAI")
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("error = %v, want ErrUnknownAsset", err)
	}
}

func TestProjectWithOverriddenRates(t *testing.T) {
	s, err := defaultSchedule(t).WithRates(map[string]decimal.Decimal{"TESLA": d("3000")})
	if err != nil {
		t.Fatalf("WithRates: %v", err)
	}

	got, err := s.Projector().Project(d("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tesla := lineFor(t, got, "TESLA"); !tesla.Periodic.Equal(d("0.006")) {
		t.Errorf("TESLA periodic = %s, want 0.006", tesla.Periodic)
	}
}
