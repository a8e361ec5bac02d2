package tier

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineAmount is the periodic dividend of one reward asset.
type LineAmount struct {
	Asset string          `json:"asset"`
	Rate  decimal.Decimal `json:"rate"`
	// Periodic is in the reward asset's own unit, per accrual period.
	Periodic decimal.Decimal `json:"periodic"`
	// SettlementValue is Periodic expressed in settlement units.
	SettlementValue decimal.Decimal `json:"settlement_value"`
}

// Projection is the per-period dividend bundle for a balance.
type Projection struct {
	Balance         decimal.Decimal `json:"balance"`
	Tier            ID              `json:"tier"`
	TierLabel       string          `json:"tier_label"`
	Lines           []LineAmount    `json:"lines"`
	SettlementTotal decimal.Decimal `json:"settlement_total"`
}

// Projector maps a balance of the classification asset to periodic dividends.
// It has no mutable state and is safe for concurrent use.
type Projector struct {
	table          *Table
	rates          RateTable
	classification string
}

// NewProjector checks that every asset the table pays out, and the
// classification asset, has a conversion rate.
func NewProjector(table *Table, rates RateTable, classification string) (*Projector, error) {
	if table == nil {
		return nil, fmt.Errorf("tier table is required")
	}
	if _, ok := rates.Rate(classification); !ok {
		return nil, fmt.Errorf("%w: classification asset %s", ErrUnknownAsset, classification)
	}
	for _, asset := range table.Assets() {
		if _, ok := rates.Rate(asset); !ok {
			return nil, fmt.Errorf("%w: reward asset %s", ErrUnknownAsset, asset)
		}
	}
	return &Projector{table: table, rates: rates, classification: classification}, nil
}

// Table returns the tier table.
func (p *Projector) Table() *Table { return p.table }

// Rates returns the rate table.
func (p *Projector) Rates() RateTable { return p.rates }

// Project classifies balance and computes each reward line.
//
// The balance is first valued in settlement units at the classification
// asset's rate; a line pays its rate of that value, converted back into the
// reward asset. For the classification asset itself this reduces to
// balance × rate.
func (p *Projector) Project(balance decimal.Decimal) (Projection, error) {
	t, err := p.table.Classify(balance)
	if err != nil {
		return Projection{}, err
	}

	proj := Projection{
		Balance:         balance,
		Tier:            t.ID,
		TierLabel:       t.ID.String(),
		Lines:           []LineAmount{},
		SettlementTotal: decimal.Zero,
	}
	if t.ID == BelowMinimum {
		return proj, nil
	}

	classRate, _ := p.rates.Rate(p.classification)
	balanceValue := balance.Mul(classRate)

	for _, line := range t.Lines {
		value := balanceValue.Mul(line.Rate)

		var periodic decimal.Decimal
		if line.Asset == p.classification {
			periodic = balance.Mul(line.Rate)
		} else {
			periodic, err = p.rates.FromSettlement(line.Asset, value)
			if err != nil {
				return Projection{}, err
			}
		}

		proj.Lines = append(proj.Lines, LineAmount{
			Asset:           line.Asset,
			Rate:            line.Rate,
			Periodic:        periodic,
			SettlementValue: value,
		})
		proj.SettlementTotal = proj.SettlementTotal.Add(value)
	}
	return proj, nil
}
