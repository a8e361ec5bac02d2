package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/divtracker/internal/accrual"
	"github.com/mtlprog/divtracker/internal/tracker"
)

const (
	holdersSheet = "HOLDERS"
	historySheet = "HISTORY"
)

// Workbook is a sweep laid out as spreadsheet rows.
type Workbook struct {
	At time.Time
	// Holders has a header row followed by one row per wallet.
	Holders [][]any
	// HistoryHeader and HistoryRow describe one sweep summary line.
	HistoryHeader []any
	HistoryRow    []any
}

// Writer writes a workbook to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, wb Workbook) error
}

// Service lays out sweeps and delegates writing to a Writer.
type Service struct {
	writer Writer
	assets []string
}

// NewService creates an export Service. assets fixes the order of the
// per-asset columns.
func NewService(writer Writer, assets []string) *Service {
	return &Service{writer: writer, assets: assets}
}

// Export writes sweep. Implements worker.AfterReportHook.
func (s *Service) Export(ctx context.Context, sweep tracker.SweepResult) error {
	if err := s.writer.Write(ctx, BuildWorkbook(sweep, s.assets)); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// BuildWorkbook lays out sweep with one accrued column per asset.
func BuildWorkbook(sweep tracker.SweepResult, assets []string) Workbook {
	header, row := buildHistory(sweep, assets)
	return Workbook{
		At:            sweep.At,
		Holders:       buildHolders(sweep, assets),
		HistoryHeader: header,
		HistoryRow:    row,
	}
}

// buildHolders builds the HOLDERS sheet data.
// Columns: User | Wallet | Status | Balance | Tier | Anchor | Periods | <asset>... | Total XLM | Error
func buildHolders(sweep tracker.SweepResult, assets []string) [][]any {
	header := []any{"User", "Wallet", "Status", "Balance", "Tier", "Anchor", "Periods"}
	header = append(header, lo.ToAnySlice(assets)...)
	header = append(header, "Total XLM", "Error")

	data := [][]any{header}
	for _, user := range sweep.Users {
		for _, w := range user.Wallets {
			data = append(data, holderRow(user.UserID, w, assets))
		}
	}
	return data
}

func holderRow(userID int64, w accrual.WalletResult, assets []string) []any {
	anchor := ""
	if w.Anchor != nil {
		anchor = w.Anchor.UTC().Format(time.DateOnly)
	}
	accrued := lo.KeyBy(w.Accrued, func(l accrual.AccruedLine) string { return l.Asset })

	row := []any{
		userID, w.Wallet, string(w.Status),
		toFloat(w.Balance), w.Projection.TierLabel, anchor, w.Periods,
	}
	for _, asset := range assets {
		if line, ok := accrued[asset]; ok {
			row = append(row, toFloat(line.Amount))
		} else {
			row = append(row, nil)
		}
	}
	return append(row, toFloat(w.SettlementTotal), w.Error)
}

// buildHistory builds one HISTORY line.
// Columns: Date | Users | Wallets | OK | No anchor | Pending | Failed | <asset>... | Total XLM
func buildHistory(sweep tracker.SweepResult, assets []string) (header, row []any) {
	header = []any{"Date", "Users", "Wallets", "OK", "No anchor", "Pending", "Failed"}
	header = append(header, lo.ToAnySlice(assets)...)
	header = append(header, "Total XLM")

	row = []any{
		sweep.At.UTC().Format("02.01.2006"),
		len(sweep.Users), sweep.Wallets, sweep.OK, sweep.NoAnchor, sweep.Pending, sweep.Failed,
	}
	for _, asset := range assets {
		row = append(row, toFloat(sweep.Totals[asset]))
	}
	return header, append(row, toFloat(sweep.GrandTotal))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
