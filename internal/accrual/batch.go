package accrual

import "github.com/shopspring/decimal"

// Batch is a set of wallet results with their combined settlement value.
type Batch struct {
	Wallets    []WalletResult  `json:"wallets"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	// Totals sums accrued amounts per reward asset across ok wallets.
	Totals   map[string]decimal.Decimal `json:"totals"`
	OK       int                        `json:"ok"`
	NoAnchor int                        `json:"no_anchor"`
	Pending  int                        `json:"pending"`
	Failed   int                        `json:"failed"`
}

// Aggregate sums settlement values over ok results. Other statuses are
// counted but contribute nothing. Input order is preserved.
func Aggregate(results []WalletResult) Batch {
	b := Batch{
		Wallets:    results,
		GrandTotal: decimal.Zero,
		Totals:     make(map[string]decimal.Decimal),
	}
	if b.Wallets == nil {
		b.Wallets = []WalletResult{}
	}

	for _, r := range results {
		switch r.Status {
		case StatusOK:
			b.OK++
			b.GrandTotal = b.GrandTotal.Add(r.SettlementTotal)
			for _, line := range r.Accrued {
				b.Totals[line.Asset] = b.Totals[line.Asset].Add(line.Amount)
			}
		case StatusNoAnchor:
			b.NoAnchor++
		case StatusAnchorPending:
			b.Pending++
		case StatusError:
			b.Failed++
		}
	}
	return b
}
