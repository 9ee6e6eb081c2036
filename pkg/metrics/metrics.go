// Package metrics exposes the operator-visible Prometheus counters and
// gauges for the exchange: executions, rejects, resting depth, and
// persistence health.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	once     sync.Once

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixexchange_executions_total",
			Help: "Total number of executions produced by matching.",
		},
		[]string{"symbol"},
	)
	executedQtyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixexchange_executed_quantity_total",
			Help: "Total quantity matched, by symbol.",
		},
		[]string{"symbol"},
	)
	ordersRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixexchange_orders_rejected_total",
			Help: "Total number of New Order Single messages rejected, by reason.",
		},
		[]string{"reason"},
	)
	orderbookDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fixexchange_orderbook_depth",
			Help: "Current resting quantity per symbol and side.",
		},
		[]string{"symbol", "side"},
	)
	persistenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixexchange_persistence_errors_total",
			Help: "Total number of persistence Port calls that returned an error.",
		},
		[]string{"op"},
	)
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fixexchange_sessions_active",
		Help: "Number of accepted connections whose session is currently running.",
	})
)

// Init registers metrics with the registry once.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
			executionsTotal,
			executedQtyTotal,
			ordersRejectedTotal,
			orderbookDepth,
			persistenceErrorsTotal,
			sessionsActive,
		)
	})
}

// Handler exposes the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveExecution records one execution's quantity for symbol.
func ObserveExecution(symbol string, qty float64) {
	Init()
	executionsTotal.WithLabelValues(symbol).Inc()
	executedQtyTotal.WithLabelValues(symbol).Add(qty)
}

// IncOrderRejected increments the reject counter for a reason (one of
// the validator.Kind strings).
func IncOrderRejected(reason string) {
	Init()
	ordersRejectedTotal.WithLabelValues(reason).Inc()
}

// SetOrderbookDepth sets the resting quantity for symbol/side.
func SetOrderbookDepth(symbol, side string, depth float64) {
	Init()
	orderbookDepth.WithLabelValues(symbol, side).Set(depth)
}

// IncPersistenceError increments the persistence error counter for op
// (e.g. "save_order", "save_execution").
func IncPersistenceError(op string) {
	Init()
	persistenceErrorsTotal.WithLabelValues(op).Inc()
}

// SetSessionsActive sets the current count of running sessions (accepted
// connections, logged on or not).
func SetSessionsActive(n int) {
	Init()
	sessionsActive.Set(float64(n))
}
