package tier

import (
	"errors"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
)

// ErrUnknownAsset is returned when an asset has no conversion rate.
var ErrUnknownAsset = errors.New("no conversion rate for asset")

// RateTable holds fixed asset → settlement-unit conversion rates.
// The settlement asset itself always converts at 1.
type RateTable struct {
	settlement string
	rates      map[string]decimal.Decimal
}

// NewRateTable builds a rate table. All rates must be positive.
func NewRateTable(settlement string, rates map[string]decimal.Decimal) (RateTable, error) {
	if settlement == "" {
		return RateTable{}, fmt.Errorf("settlement asset is required")
	}
	copied := make(map[string]decimal.Decimal, len(rates)+1)
	for asset, r := range rates {
		if !r.IsPositive() {
			return RateTable{}, fmt.Errorf("rate for %s must be positive, got %s", asset, r)
		}
		copied[asset] = r
	}
	if r, ok := copied[settlement]; ok && !r.Equal(decimal.NewFromInt(1)) {
		return RateTable{}, fmt.Errorf("settlement asset %s must have rate 1, got %s", settlement, r)
	}
	copied[settlement] = decimal.NewFromInt(1)
	return RateTable{settlement: settlement, rates: copied}, nil
}

// Settlement returns the settlement asset code.
func (r RateTable) Settlement() string { return r.settlement }

// Rate returns the settlement-unit price of one unit of asset.
func (r RateTable) Rate(asset string) (decimal.Decimal, bool) {
	rate, ok := r.rates[asset]
	return rate, ok
}

// Rates returns a copy of all rates.
func (r RateTable) Rates() map[string]decimal.Decimal {
	return maps.Clone(r.rates)
}

// ToSettlement converts an amount of asset into settlement units.
func (r RateTable) ToSettlement(asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	rate, ok := r.rates[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return amount.Mul(rate), nil
}

// FromSettlement converts settlement units into an amount of asset.
func (r RateTable) FromSettlement(asset string, value decimal.Decimal) (decimal.Decimal, error) {
	rate, ok := r.rates[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return value.Div(rate), nil
}

// WithOverrides returns a new table with the given rates replaced or added.
func (r RateTable) WithOverrides(overrides map[string]decimal.Decimal) (RateTable, error) {
	merged := maps.Clone(r.rates)
	delete(merged, r.settlement)
	maps.Copy(merged, overrides)
	return NewRateTable(r.settlement, merged)
}
