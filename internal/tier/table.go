package tier

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/divtracker/internal/domain"
)

// ID is a tier ordinal starting at 1. BelowMinimum marks balances under the
// lowest bound.
type ID int

const BelowMinimum ID = 0

func (id ID) String() string {
	if id == BelowMinimum {
		return "No Tier"
	}
	return fmt.Sprintf("Tier %d", int(id))
}

// RewardLine is one (asset, rate) entry of a tier. Rate is a fraction: 0.035 is 3.5%.
type RewardLine struct {
	Asset string          `json:"asset"`
	Rate  decimal.Decimal `json:"rate"`
}

// Tier is a balance bracket. The bracket is [Min, next tier's Min); the top
// tier is unbounded.
type Tier struct {
	ID    ID              `json:"id"`
	Min   decimal.Decimal `json:"min"`
	Lines []RewardLine    `json:"lines"`
}

// Table is an ordered, gapless set of tiers. Immutable after NewTable.
type Table struct {
	tiers []Tier
}

// NewTable validates and builds a table. Tiers must have strictly ascending
// positive lower bounds and sequential ids starting at 1.
func NewTable(tiers []Tier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier table is empty")
	}

	for i, t := range tiers {
		if t.ID != ID(i+1) {
			return nil, fmt.Errorf("tier %d has id %d, want %d", i+1, t.ID, i+1)
		}
		if !t.Min.IsPositive() {
			return nil, fmt.Errorf("tier %d: lower bound %s must be positive", t.ID, t.Min)
		}
		if i > 0 && !t.Min.GreaterThan(tiers[i-1].Min) {
			return nil, fmt.Errorf("tier %d: lower bound %s not above tier %d bound %s", t.ID, t.Min, tiers[i-1].ID, tiers[i-1].Min)
		}
		seen := make(map[string]bool, len(t.Lines))
		for _, line := range t.Lines {
			if line.Asset == "" {
				return nil, fmt.Errorf("tier %d: reward line without asset", t.ID)
			}
			if seen[line.Asset] {
				return nil, fmt.Errorf("tier %d: duplicate reward asset %s", t.ID, line.Asset)
			}
			seen[line.Asset] = true
			if !line.Rate.IsPositive() {
				return nil, fmt.Errorf("tier %d: rate for %s must be positive, got %s", t.ID, line.Asset, line.Rate)
			}
		}
	}

	copied := make([]Tier, len(tiers))
	for i, t := range tiers {
		copied[i] = Tier{ID: t.ID, Min: t.Min, Lines: append([]RewardLine(nil), t.Lines...)}
	}
	return &Table{tiers: copied}, nil
}

// Tiers returns a copy of the tiers in ascending order.
func (t *Table) Tiers() []Tier {
	return lo.Map(t.tiers, func(tr Tier, _ int) Tier {
		return Tier{ID: tr.ID, Min: tr.Min, Lines: append([]RewardLine(nil), tr.Lines...)}
	})
}

// Min returns the global minimum bound.
func (t *Table) Min() decimal.Decimal {
	return t.tiers[0].Min
}

// Upper returns the exclusive upper bound of tier id; false for the top tier
// and for unknown ids.
func (t *Table) Upper(id ID) (decimal.Decimal, bool) {
	i := int(id)
	if i < 1 || i >= len(t.tiers) {
		return decimal.Zero, false
	}
	return t.tiers[i].Min, true
}

// Assets lists every reward asset referenced by the table, in order of first use.
func (t *Table) Assets() []string {
	return lo.Uniq(lo.FlatMap(t.tiers, func(tr Tier, _ int) []string {
		return lo.Map(tr.Lines, func(l RewardLine, _ int) string { return l.Asset })
	}))
}

// Classify returns the tier containing balance. A balance on a boundary
// belongs to the higher tier. Below the minimum it returns the BelowMinimum
// tier with no reward lines.
func (t *Table) Classify(balance decimal.Decimal) (Tier, error) {
	if balance.IsNegative() {
		return Tier{}, fmt.Errorf("%w: %s is negative", domain.ErrInvalidBalance, balance)
	}

	if balance.LessThan(t.Min()) {
		return Tier{ID: BelowMinimum}, nil
	}

	// first tier whose bound is above the balance
	idx := sort.Search(len(t.tiers), func(i int) bool {
		return t.tiers[i].Min.GreaterThan(balance)
	})
	return t.tiers[idx-1], nil
}

// ParseBalance parses user or ledger input into a non-negative decimal.
func ParseBalance(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidBalance, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", domain.ErrInvalidBalance, s)
	}
	return d, nil
}
