package daemon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theirongolddev/rentroll/internal/model"
)

const (
	metricPrefix = "rentroll_"

	resultSuccess = "success"
	resultError   = "error"
)

// metrics lives on its own registry so several services can coexist in tests.
type metrics struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec

	units          *prometheus.GaugeVec
	revenue        *prometheus.GaugeVec
	repairCost     prometheus.Gauge
	pendingRepairs prometheus.Gauge
	anomalies      prometheus.Gauge
	rowIssues      prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polls_total",
				Help: "Total ledger polls by result",
			},
			[]string{"result"},
		),
		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_duration_seconds",
				Help:    "Ledger poll latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		units: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "units",
				Help: "Units in the latest snapshot by payment status",
			},
			[]string{"status"},
		),
		revenue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "revenue",
				Help: "Rent plus utility revenue by track (projected uses source totals)",
			},
			[]string{"track"},
		),
		repairCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "repair_cost",
			Help: "Sum of repair fees in the latest snapshot",
		}),
		pendingRepairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "pending_repairs",
			Help: "Units whose repair status is pending",
		}),
		anomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "meter_anomalies",
			Help: "Units whose meter reading went backwards",
		}),
		rowIssues: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "row_issues",
			Help: "Recovered data-quality issues in the latest snapshot",
		}),
	}

	m.registry.MustRegister(
		m.polls, m.pollDuration, m.units, m.revenue,
		m.repairCost, m.pendingRepairs, m.anomalies, m.rowIssues,
	)
	return m
}

func (m *metrics) observePoll(err error, took time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.polls.WithLabelValues(result).Inc()
	m.pollDuration.WithLabelValues(result).Observe(took.Seconds())
}

func (m *metrics) setSummary(s model.PortfolioSummary, issues int) {
	m.units.WithLabelValues("paid").Set(float64(s.PaidCount))
	m.units.WithLabelValues("unpaid").Set(float64(s.UnpaidCount))
	m.revenue.WithLabelValues("projected").Set(s.TotalProjectedRevenue.InexactFloat64())
	m.revenue.WithLabelValues("derived").Set(s.DerivedRevenue.InexactFloat64())
	m.repairCost.Set(s.TotalRepairCost.InexactFloat64())
	m.pendingRepairs.Set(float64(s.PendingRepairCount))
	m.anomalies.Set(float64(s.AnomalyCount))
	m.rowIssues.Set(float64(issues))
}
