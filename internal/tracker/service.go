package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/divtracker/internal/accrual"
	"github.com/mtlprog/divtracker/internal/domain"
	"github.com/mtlprog/divtracker/internal/tier"
	"github.com/mtlprog/divtracker/internal/wallet"
)

const defaultWorkers = 4

// Ledger is the read-only view of the network the tracker needs.
type Ledger interface {
	FetchAccountBalance(ctx context.Context, accountID string, asset domain.AssetInfo) (decimal.Decimal, error)
	FindFirstOperation(ctx context.Context, accountID string, asset domain.AssetInfo) (time.Time, bool, error)
}

// Observer receives tracker events, typically for metrics.
type Observer interface {
	AnchorDiscovered(status wallet.AnchorStatus)
	WalletEvaluated(status accrual.Status)
	SweepCompleted(result SweepResult, elapsed time.Duration)
}

// Options configures a Service.
type Options struct {
	// Workers bounds concurrent wallet lookups in a batch.
	Workers int
	// BalanceCacheTTL caches balances per wallet; 0 disables caching.
	BalanceCacheTTL time.Duration
	Observer        Observer
	Now             func() time.Time
}

// Service registers wallets and computes their dividends.
type Service struct {
	ledger   Ledger
	store    wallet.Repository
	engine   *accrual.Engine
	asset    domain.AssetInfo
	workers  int
	balances *cache.Cache
	observer Observer
	now      func() time.Time
}

// NewService creates a tracker for holders of asset.
func NewService(ledger Ledger, store wallet.Repository, engine *accrual.Engine, asset domain.AssetInfo, opts Options) *Service {
	s := &Service{
		ledger:   ledger,
		store:    store,
		engine:   engine,
		asset:    asset,
		workers:  opts.Workers,
		observer: opts.Observer,
		now:      opts.Now,
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.BalanceCacheTTL > 0 {
		s.balances = cache.New(opts.BalanceCacheTTL, 2*opts.BalanceCacheTTL)
	}
	return s
}

// Register validates address, checks that the account exists and discovers
// its anchor. A retryable discovery failure stores the wallet with a pending
// anchor instead of failing the registration.
func (s *Service) Register(ctx context.Context, userID int64, address string) (wallet.Registration, error) {
	address = domain.NormalizeAddress(address)
	if err := domain.ValidateAddress(address); err != nil {
		return wallet.Registration{}, err
	}

	_, err := s.store.GetAnchor(ctx, userID, address)
	switch {
	case err == nil:
		return wallet.Registration{}, wallet.ErrAlreadyExists
	case !errors.Is(err, wallet.ErrNotFound):
		return wallet.Registration{}, fmt.Errorf("checking registration: %w", err)
	}

	if _, err := s.balance(ctx, address); err != nil {
		return wallet.Registration{}, err
	}

	anchor, err := s.discover(ctx, address)
	if err != nil {
		return wallet.Registration{}, err
	}

	if err := s.store.Put(ctx, userID, address, anchor); err != nil {
		if errors.Is(err, wallet.ErrAlreadyExists) {
			return wallet.Registration{}, err
		}
		return wallet.Registration{}, fmt.Errorf("storing registration: %w", err)
	}

	slog.Info("wallet registered", "user", userID, "wallet", address, "anchor_status", anchor.Status)
	return wallet.Registration{
		UserID:    userID,
		Address:   address,
		Anchor:    anchor,
		CreatedAt: s.now().UTC(),
	}, nil
}

// discover runs anchor discovery. Only read-only network calls are made, so
// it is safe to repeat.
func (s *Service) discover(ctx context.Context, address string) (wallet.Anchor, error) {
	at, found, err := s.ledger.FindFirstOperation(ctx, address, s.asset)
	var anchor wallet.Anchor
	switch {
	case err != nil && domain.IsRetryable(err):
		slog.Warn("anchor discovery deferred", "wallet", address, "error", err)
		anchor = wallet.PendingAnchor()
	case err != nil:
		return wallet.Anchor{}, fmt.Errorf("discovering anchor for %s: %w", address, err)
	case found:
		anchor = wallet.FoundAnchor(at)
	default:
		anchor = wallet.NoAnchor()
	}
	if s.observer != nil {
		s.observer.AnchorDiscovered(anchor.Status)
	}
	return anchor, nil
}

// Remove deletes a registration.
func (s *Service) Remove(ctx context.Context, userID int64, address string) error {
	address = domain.NormalizeAddress(address)
	if err := s.store.Remove(ctx, userID, address); err != nil {
		return err
	}
	if s.balances != nil {
		s.balances.Delete(s.cacheKey(address))
	}
	slog.Info("wallet removed", "user", userID, "wallet", address)
	return nil
}

// Wallets lists a user's registrations.
func (s *Service) Wallets(ctx context.Context, userID int64) ([]wallet.Registration, error) {
	regs, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	if regs == nil {
		regs = []wallet.Registration{}
	}
	return regs, nil
}

// Wallet returns the current balance and tier projection of any address.
func (s *Service) Wallet(ctx context.Context, address string) (tier.Projection, error) {
	address = domain.NormalizeAddress(address)
	if err := domain.ValidateAddress(address); err != nil {
		return tier.Projection{}, err
	}
	balance, err := s.balance(ctx, address)
	if err != nil {
		return tier.Projection{}, err
	}
	return s.engine.Projector().Project(balance)
}

// Dividends computes accumulated dividends for every wallet of a user.
// A failing wallet is reported in its result and does not affect the others.
func (s *Service) Dividends(ctx context.Context, userID int64) (accrual.Batch, error) {
	regs, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return accrual.Batch{}, fmt.Errorf("listing wallets: %w", err)
	}
	return accrual.Aggregate(s.evaluate(ctx, regs, s.now())), nil
}

// evaluate processes wallets concurrently, bounded by the worker limit.
// results[i] always belongs to regs[i].
func (s *Service) evaluate(ctx context.Context, regs []wallet.Registration, now time.Time) []accrual.WalletResult {
	results := make([]accrual.WalletResult, len(regs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, reg := range regs {
		g.Go(func() error {
			results[i] = s.evaluateOne(ctx, reg, now)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) evaluateOne(ctx context.Context, reg wallet.Registration, now time.Time) accrual.WalletResult {
	res, err := s.accumulate(ctx, reg, now)
	if err != nil {
		slog.Warn("wallet evaluation failed", "user", reg.UserID, "wallet", reg.Address, "error", err)
		res = accrual.Failed(reg.Address, err)
	}
	if s.observer != nil {
		s.observer.WalletEvaluated(res.Status)
	}
	return res
}

func (s *Service) accumulate(ctx context.Context, reg wallet.Registration, now time.Time) (accrual.WalletResult, error) {
	if err := ctx.Err(); err != nil {
		return accrual.WalletResult{}, err
	}
	balance, err := s.balance(ctx, reg.Address)
	if err != nil {
		return accrual.WalletResult{}, err
	}

	switch reg.Anchor.Status {
	case wallet.AnchorPending:
		proj, err := s.engine.Projector().Project(balance)
		if err != nil {
			return accrual.WalletResult{}, err
		}
		return accrual.Pending(reg.Address, balance, proj), nil
	case wallet.AnchorFound:
		return s.engine.Accumulate(reg.Address, balance, reg.Anchor.At, now)
	case wallet.AnchorNone:
		return s.engine.Accumulate(reg.Address, balance, nil, now)
	default:
		return accrual.WalletResult{}, fmt.Errorf("unknown anchor status %q", reg.Anchor.Status)
	}
}

func (s *Service) balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if s.balances != nil {
		if v, ok := s.balances.Get(s.cacheKey(address)); ok {
			return v.(decimal.Decimal), nil
		}
	}
	bal, err := s.ledger.FetchAccountBalance(ctx, address, s.asset)
	if err != nil {
		return decimal.Zero, err
	}
	if s.balances != nil {
		s.balances.Set(s.cacheKey(address), bal, cache.DefaultExpiration)
	}
	return bal, nil
}

func (s *Service) cacheKey(address string) string {
	return s.asset.Canonical() + "/" + address
}
