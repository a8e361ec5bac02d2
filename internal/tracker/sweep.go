package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/divtracker/internal/accrual"
	"github.com/mtlprog/divtracker/internal/wallet"
)

// UserBatch is one user's share of a sweep.
type UserBatch struct {
	UserID int64 `json:"user_id"`
	accrual.Batch
}

// SweepResult covers every registered wallet at one instant.
type SweepResult struct {
	At         time.Time                  `json:"at"`
	Users      []UserBatch                `json:"users"`
	GrandTotal decimal.Decimal            `json:"grand_total"`
	Totals     map[string]decimal.Decimal `json:"totals"`
	Wallets    int                        `json:"wallets"`
	OK         int                        `json:"ok"`
	NoAnchor   int                        `json:"no_anchor"`
	Pending    int                        `json:"pending"`
	Failed     int                        `json:"failed"`
}

// Sweep evaluates all wallets of all users through the shared worker pool.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := s.now().UTC()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("listing users: %w", err)
	}

	var regs []wallet.Registration
	for _, user := range users {
		userRegs, err := s.store.ListWallets(ctx, user)
		if err != nil {
			return SweepResult{}, fmt.Errorf("listing wallets of user %d: %w", user, err)
		}
		regs = append(regs, userRegs...)
	}

	results := s.evaluate(ctx, regs, now)

	byUser := make(map[int64][]accrual.WalletResult, len(users))
	for i, reg := range regs {
		byUser[reg.UserID] = append(byUser[reg.UserID], results[i])
	}

	all := accrual.Aggregate(results)
	sweep := SweepResult{
		At: now,
		Users: lo.Map(users, func(user int64, _ int) UserBatch {
			return UserBatch{UserID: user, Batch: accrual.Aggregate(byUser[user])}
		}),
		GrandTotal: all.GrandTotal,
		Totals:     all.Totals,
		Wallets:    len(results),
		OK:         all.OK,
		NoAnchor:   all.NoAnchor,
		Pending:    all.Pending,
		Failed:     all.Failed,
	}

	elapsed := time.Since(start)
	if s.observer != nil {
		s.observer.SweepCompleted(sweep, elapsed)
	}
	slog.Info("sweep completed",
		"users", len(users), "wallets", sweep.Wallets, "failed", sweep.Failed,
		"grand_total", sweep.GrandTotal.StringFixed(7), "elapsed", elapsed)
	return sweep, nil
}

// ResolvePending retries anchor discovery for up to limit pending wallets and
// returns how many were resolved. Wallets that fail again stay pending.
func (s *Service) ResolvePending(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing pending wallets: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	resolved := make([]bool, len(pending))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, reg := range pending {
		g.Go(func() error {
			resolved[i] = s.resolveOne(ctx, reg)
			return nil
		})
	}
	_ = g.Wait()

	n := lo.Count(resolved, true)
	slog.Info("pending anchors processed", "pending", len(pending), "resolved", n)
	return n, ctx.Err()
}

func (s *Service) resolveOne(ctx context.Context, reg wallet.Registration) bool {
	anchor, err := s.discover(ctx, reg.Address)
	if err != nil {
		slog.Warn("anchor discovery failed", "user", reg.UserID, "wallet", reg.Address, "error", err)
		return false
	}
	if !anchor.Resolved() {
		return false
	}
	updated, err := s.store.SetAnchor(ctx, reg.UserID, reg.Address, anchor)
	if err != nil {
		slog.Error("failed to store anchor", "user", reg.UserID, "wallet", reg.Address, "error", err)
		return false
	}
	return updated
}
