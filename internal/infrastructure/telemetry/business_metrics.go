package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRegistererNil is returned when metrics are built without a registry
var ErrRegistererNil = errors.New("telemetry: registerer cannot be nil")

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "garmentflow"

// Finalize outcomes
const (
	FinalizeCreated      = "created"
	FinalizeReplayed     = "replayed"
	FinalizeNotCompleted = "not_completed"
)

// BusinessMetrics tracks order placement, decisions and checkout activity
type BusinessMetrics struct {
	logger *zap.Logger

	ordersPlaced    *prometheus.CounterVec
	orderAmount     *prometheus.CounterVec
	orderDecisions  *prometheus.CounterVec
	finalizeTotal   *prometheus.CounterVec
	stockConflicts  prometheus.Counter
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	outboxRelayed   *prometheus.CounterVec
}

// BusinessMetricsConfig holds configuration for business metrics
type BusinessMetricsConfig struct {
	Registerer prometheus.Registerer
	Namespace  string
	Logger     *zap.Logger
}

// NewBusinessMetrics creates and registers the business metrics
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Registerer == nil {
		return nil, ErrRegistererNil
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		logger: logger,
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "orders_placed_total",
			Help:      "Orders persisted, by payment method.",
		}, []string{"payment_method"}),
		orderAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "order_amount_total",
			Help:      "Sum of order totals, by payment method.",
		}, []string{"payment_method"}),
		orderDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "order_decisions_total",
			Help:      "Orders leaving Pending, by resulting status.",
		}, []string{"status"}),
		finalizeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "checkout_finalize_total",
			Help:      "Checkout finalize calls, by outcome.",
		}, []string{"outcome"}),
		stockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "stock_conflicts_total",
			Help:      "Order placements refused for insufficient stock.",
		}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "checkout_gateway_calls_total",
			Help:      "Calls to the checkout provider, by operation and result.",
		}, []string{"operation", "result"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "checkout_gateway_duration_seconds",
			Help:      "Checkout provider call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		outboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "outbox_relayed_total",
			Help:      "Outbox entries handed to the broker, by result.",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{
		bm.ordersPlaced, bm.orderAmount, bm.orderDecisions, bm.finalizeTotal,
		bm.stockConflicts, bm.gatewayCalls, bm.gatewayDuration, bm.outboxRelayed,
	}
	for _, c := range collectors {
		if err := cfg.Registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return bm, nil
}

// RecordOrderPlaced counts a persisted order and adds its total
func (m *BusinessMetrics) RecordOrderPlaced(_ context.Context, paymentMethod string, amount decimal.Decimal) {
	m.ordersPlaced.WithLabelValues(paymentMethod).Inc()
	m.orderAmount.WithLabelValues(paymentMethod).Add(amount.InexactFloat64())
}

// RecordOrderDecision counts an approve, reject or cancel
func (m *BusinessMetrics) RecordOrderDecision(_ context.Context, status string) {
	m.orderDecisions.WithLabelValues(status).Inc()
}

// RecordFinalize counts a finalize outcome
func (m *BusinessMetrics) RecordFinalize(_ context.Context, outcome string) {
	m.finalizeTotal.WithLabelValues(outcome).Inc()
}

// RecordStockConflict counts a placement lost to insufficient stock
func (m *BusinessMetrics) RecordStockConflict(_ context.Context) {
	m.stockConflicts.Inc()
}

// RecordGatewayCall records the result and latency of a checkout provider call
func (m *BusinessMetrics) RecordGatewayCall(_ context.Context, operation string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gatewayCalls.WithLabelValues(operation, result).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordOutboxRelay counts outbox entries sent or failed
func (m *BusinessMetrics) RecordOutboxRelay(result string, n int) {
	if n <= 0 {
		return
	}
	m.outboxRelayed.WithLabelValues(result).Add(float64(n))
}
