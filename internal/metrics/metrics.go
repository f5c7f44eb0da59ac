package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by the poller and the query API.
type Metrics struct {
	ticksTotal       *prometheus.CounterVec
	tickDuration     prometheus.Histogram
	readerFailures   *prometheus.CounterVec
	rowsAppended     prometheus.Counter
	rollovers        prometheus.Counter
	lastOccupancy    prometheus.Gauge
	aggregateLatency prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_ticks_total",
			Help: "Polling ticks by outcome.",
		}, []string{"outcome"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_tick_duration_seconds",
			Help:    "Wall time of a polling tick including upstream calls.",
			Buckets: prometheus.DefBuckets,
		}),
		readerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_reader_failures_total",
			Help: "Upstream reader failures replaced by a missing value.",
		}, []string{"source"}),
		rowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_rows_appended_total",
			Help: "Observations appended to daily logs.",
		}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_log_rollovers_total",
			Help: "Daily log handle switches.",
		}),
		lastOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_occupancy_primary",
			Help: "Primary occupancy of the last observation that carried one.",
		}),
		aggregateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_aggregate_duration_seconds",
			Help:    "Time spent serving aggregation queries.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.ticksTotal,
		m.tickDuration,
		m.readerFailures,
		m.rowsAppended,
		m.rollovers,
		m.lastOccupancy,
		m.aggregateLatency,
	)
	return m
}

// Tick records a finished tick. outcome is "ok" or "error".
func (m *Metrics) Tick(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(outcome).Inc()
	m.tickDuration.Observe(seconds)
}

func (m *Metrics) ReaderFailure(source string) {
	if m == nil {
		return
	}
	m.readerFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) RowAppended() {
	if m == nil {
		return
	}
	m.rowsAppended.Inc()
}

func (m *Metrics) Rollover() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

func (m *Metrics) Occupancy(n int) {
	if m == nil {
		return
	}
	m.lastOccupancy.Set(float64(n))
}

func (m *Metrics) Aggregate(seconds float64) {
	if m == nil {
		return
	}
	m.aggregateLatency.Observe(seconds)
}
