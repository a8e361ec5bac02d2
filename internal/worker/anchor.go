package worker

import (
	"context"
	"log/slog"
	"time"
)

// AnchorResolver retries anchor discovery for wallets still pending.
type AnchorResolver interface {
	ResolvePending(ctx context.Context, limit int) (int, error)
}

// AnchorWorker periodically resolves pending anchors.
type AnchorWorker struct {
	resolver  AnchorResolver
	interval  time.Duration
	batchSize int
}

// NewAnchorWorker creates a new AnchorWorker.
func NewAnchorWorker(resolver AnchorResolver, interval time.Duration, batchSize int) *AnchorWorker {
	return &AnchorWorker{
		resolver:  resolver,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *AnchorWorker) resolve(ctx context.Context) {
	n, err := w.resolver.ResolvePending(ctx, w.batchSize)
	if err != nil {
		slog.Error("AnchorWorker: resolve failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("AnchorWorker: anchors resolved", "count", n)
	}
}

// Run starts the anchor worker loop. It blocks until the context is cancelled.
func (w *AnchorWorker) Run(ctx context.Context) {
	slog.Info("AnchorWorker: starting", "interval", w.interval, "batch", w.batchSize)

	w.resolve(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("AnchorWorker: shutting down")
			return
		case <-ticker.C:
			w.resolve(ctx)
		}
	}
}
