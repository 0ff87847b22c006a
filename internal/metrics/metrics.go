// Package metrics exposes the engine's performance counters through
// prometheus, following the promauto registration and
// histogram/gauge/counter grouping of the teacher's HFT baseline
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine groups every metric the engine loop and book update as they
// run. Construct one per process with NewEngine; it registers against
// the default prometheus registry.
type Engine struct {
	CommandsProcessed prometheus.Counter
	TradesExecuted    prometheus.Counter
	OrdersAccepted    prometheus.Counter
	OrdersRejected    *prometheus.CounterVec
	CommandLatency    prometheus.Histogram

	CommandRingDepth prometheus.Gauge
	EventRingDepth   prometheus.Gauge
	EventRingFull    prometheus.Counter
	CommandRingEmpty prometheus.Counter

	ArenaLive     prometheus.Gauge
	ArenaCapacity prometheus.Gauge

	BestBid prometheus.Gauge
	BestAsk prometheus.Gauge
}

// NewEngine builds and registers the engine's metric set under the
// given symbol label.
func NewEngine(symbol string) *Engine {
	constLabels := prometheus.Labels{"symbol": symbol}

	return &Engine{
		CommandsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "flashlob_commands_processed_total",
			Help:        "Total commands drained from the command ring.",
			ConstLabels: constLabels,
		}),
		TradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "flashlob_trades_executed_total",
			Help:        "Total Trade events emitted.",
			ConstLabels: constLabels,
		}),
		OrdersAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "flashlob_orders_accepted_total",
			Help:        "Total Accepted events emitted.",
			ConstLabels: constLabels,
		}),
		OrdersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "flashlob_orders_rejected_total",
			Help:        "Total Rejected events emitted, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		CommandLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "flashlob_command_latency_nanoseconds",
			Help:        "Wall-clock time spent dispatching one command to the book.",
			Buckets:     []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
			ConstLabels: constLabels,
		}),
		CommandRingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "flashlob_command_ring_depth",
			Help:        "Items currently queued on the command ring.",
			ConstLabels: constLabels,
		}),
		EventRingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "flashlob_event_ring_depth",
			Help:        "Items currently queued on the event ring.",
			ConstLabels: constLabels,
		}),
		EventRingFull: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "flashlob_event_ring_full_total",
			Help:        "Times the engine had to spin because the event ring was full.",
			ConstLabels: constLabels,
		}),
		CommandRingEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "flashlob_command_ring_empty_total",
			Help:        "Times the engine polled an empty command ring and backed off.",
			ConstLabels: constLabels,
		}),
		ArenaLive: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "flashlob_arena_live_slots",
			Help:        "Currently allocated arena slots.",
			ConstLabels: constLabels,
		}),
		ArenaCapacity: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "flashlob_arena_capacity_slots",
			Help:        "Total arena slot capacity.",
			ConstLabels: constLabels,
		}),
		BestBid: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "flashlob_best_bid_ticks",
			Help:        "Current best bid price in ticks, or 0 if the bid side is empty.",
			ConstLabels: constLabels,
		}),
		BestAsk: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "flashlob_best_ask_ticks",
			Help:        "Current best ask price in ticks, or 0 if the ask side is empty.",
			ConstLabels: constLabels,
		}),
	}
}
