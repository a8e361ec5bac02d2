package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/mtlprog/divtracker/internal/accrual"
	"github.com/mtlprog/divtracker/internal/config"
	"github.com/mtlprog/divtracker/internal/database"
	"github.com/mtlprog/divtracker/internal/horizon"
	"github.com/mtlprog/divtracker/internal/report"
	"github.com/mtlprog/divtracker/internal/tier"
	"github.com/mtlprog/divtracker/internal/tracker"
	"github.com/mtlprog/divtracker/internal/wallet"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// stores bundles the repositories of one backend.
type stores struct {
	wallets wallet.Repository
	reports report.Repository
	close   func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		wallets, err := wallet.NewSQLiteRepository(ctx, db)
		if err != nil {
			db.Close()
			return stores{}, err
		}
		reports, err := report.NewSQLiteRepository(ctx, db)
		if err != nil {
			db.Close()
			return stores{}, err
		}
		return stores{wallets: wallets, reports: reports, close: func() { db.Close() }}, nil

	default:
		if cfg.DatabaseURL == "" {
			return stores{}, fmt.Errorf("DATABASE_URL is required for the %s store", config.StorePostgres)
		}
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("running migrations: %w", err)
		}
		return stores{
			wallets: wallet.NewPgRepository(pool),
			reports: report.NewPgRepository(pool),
			close:   pool.Close,
		}, nil
	}
}

func loadSchedule(cfg config.Config) (*tier.Schedule, error) {
	if cfg.TierTablePath == "" {
		return tier.Default()
	}
	return tier.LoadFile(cfg.TierTablePath)
}

func newHorizonClient(cfg config.Config, observer horizon.RequestObserver) *horizon.Client {
	return horizon.NewClient(cfg.HorizonURL, horizon.Options{
		MaxRetries:     cfg.HorizonRetryMax,
		RetryBaseDelay: cfg.HorizonRetryBaseDelay,
		RequestTimeout: cfg.HorizonRequestTimeout,
		PageSize:       cfg.HorizonPageSize,
		MaxPages:       cfg.HorizonMaxPages,
		RateLimit:      cfg.HorizonRateLimit,
		Burst:          cfg.HorizonBurst,
		Observer:       observer,
	})
}

func newTracker(cfg config.Config, schedule *tier.Schedule, ledger tracker.Ledger, store wallet.Repository, observer tracker.Observer) (*tracker.Service, error) {
	engine, err := accrual.NewEngine(schedule.Projector(), cfg.AccrualPeriod)
	if err != nil {
		return nil, err
	}
	return tracker.NewService(ledger, store, engine, schedule.Classification, tracker.Options{
		Workers:         cfg.WalletWorkers,
		BalanceCacheTTL: cfg.BalanceCacheTTL,
		Observer:        observer,
	}), nil
}
