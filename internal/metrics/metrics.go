package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mtlprog/divtracker/internal/accrual"
	"github.com/mtlprog/divtracker/internal/tracker"
	"github.com/mtlprog/divtracker/internal/wallet"
)

const namespace = "divtracker"

// Collector records Horizon traffic and tracker activity. It satisfies
// horizon.RequestObserver and tracker.Observer.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	anchors         *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	sweepWallets    *prometheus.GaugeVec
	sweepTotal      prometheus.Gauge
	lastSweep       prometheus.Gauge
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "horizon",
			Name:      "requests_total",
			Help:      "Horizon request attempts by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "horizon",
			Name:      "request_duration_seconds",
			Help:      "Horizon request attempt latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		anchors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "anchor_discoveries_total",
			Help:      "Anchor discovery results by status.",
		}, []string{"status"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "wallet_evaluations_total",
			Help:      "Wallet dividend evaluations by result status.",
		}, []string{"status"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of full dividend sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		sweepWallets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "wallets",
			Help:      "Wallets in the last sweep by result status.",
		}, []string{"status"}),
		sweepTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "settlement_total",
			Help:      "Grand total of accrued dividends in settlement units at the last sweep.",
		}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "last_timestamp_seconds",
			Help:      "Unix time of the last completed sweep.",
		}),
	}
	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.anchors,
		c.evaluations,
		c.sweepDuration,
		c.sweepWallets,
		c.sweepTotal,
		c.lastSweep,
	)
	return c
}

func (c *Collector) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	c.requests.WithLabelValues(endpoint, outcome).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (c *Collector) AnchorDiscovered(status wallet.AnchorStatus) {
	c.anchors.WithLabelValues(string(status)).Inc()
}

func (c *Collector) WalletEvaluated(status accrual.Status) {
	c.evaluations.WithLabelValues(string(status)).Inc()
}

func (c *Collector) SweepCompleted(result tracker.SweepResult, elapsed time.Duration) {
	c.sweepDuration.Observe(elapsed.Seconds())
	c.sweepWallets.WithLabelValues(string(accrual.StatusOK)).Set(float64(result.OK))
	c.sweepWallets.WithLabelValues(string(accrual.StatusNoAnchor)).Set(float64(result.NoAnchor))
	c.sweepWallets.WithLabelValues(string(accrual.StatusAnchorPending)).Set(float64(result.Pending))
	c.sweepWallets.WithLabelValues(string(accrual.StatusError)).Set(float64(result.Failed))
	total, _ := result.GrandTotal.Float64()
	c.sweepTotal.Set(total)
	c.lastSweep.Set(float64(result.At.Unix()))
}
