package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/divtracker/internal/api"
	"github.com/mtlprog/divtracker/internal/export"
	"github.com/mtlprog/divtracker/internal/metrics"
	"github.com/mtlprog/divtracker/internal/report"
	"github.com/mtlprog/divtracker/internal/worker"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and background workers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "HTTP port (overrides HTTP_PORT)"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(c)
	if c.IsSet("port") {
		cfg.HTTPPort = c.String("port")
	}

	schedule, err := loadSchedule(cfg)
	if err != nil {
		return fmt.Errorf("loading tier schedule: %w", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(registry)

	horizonClient := newHorizonClient(cfg, collector)
	trackerSvc, err := newTracker(cfg, schedule, horizonClient, st.wallets, collector)
	if err != nil {
		return err
	}
	reportSvc := report.NewService(trackerSvc, st.reports)

	// Optional Google Sheets export hook
	var hook worker.AfterReportHook
	if cfg.SheetsEnabled() {
		sheetsWriter, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return fmt.Errorf("creating sheets writer: %w", err)
		}
		hook = export.NewService(sheetsWriter, schedule.Table.Assets())
		slog.Info("Google Sheets export enabled", "spreadsheet", cfg.GoogleSheetsID)
	}

	go worker.NewAnchorWorker(trackerSvc, cfg.AnchorWorkerInterval, cfg.AnchorBatchSize).Run(ctx)
	go worker.NewReportWorker(reportSvc, cfg.ReportWorkerInterval, hook).Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, api.Services{
		Tracker:  trackerSvc,
		Schedule: schedule,
		Holders:  horizonClient,
		Reports:  reportSvc,
		Gatherer: registry,
	}, cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
