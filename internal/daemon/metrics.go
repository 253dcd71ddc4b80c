package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/tburn/internal/model"
)

// Metrics holds the daemon's Prometheus collectors. Each service owns its
// own registry so tests can create services freely.
type Metrics struct {
	registry *prometheus.Registry

	Collections        *prometheus.CounterVec
	CollectionDuration prometheus.Histogram
	RecordsCollected   prometheus.Counter
	RecordsUpdated     prometheus.Counter
	LastSuccess        prometheus.Gauge

	Sessions   prometheus.Gauge
	Amount     prometheus.Gauge
	CostMoney  prometheus.Gauge
	Tokens     prometheus.Gauge
	QuotaUsed  *prometheus.GaugeVec
	QuotaLimit *prometheus.GaugeVec
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Collections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tburn_collections_total",
			Help: "Collection cycles by outcome (ok, error, skipped).",
		}, []string{"result"}),
		CollectionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tburn_collection_duration_seconds",
			Help:    "Wall time of collection cycles.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		RecordsCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "tburn_records_collected_total",
			Help: "Usage records seen for the first time.",
		}),
		RecordsUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "tburn_records_updated_total",
			Help: "Usage records overwritten with a newer usage time.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "tburn_last_success_timestamp_seconds",
			Help: "Unix time of the last successful collection.",
		}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "tburn_usage_sessions",
			Help: "Stored usage records.",
		}),
		Amount: f.NewGauge(prometheus.GaugeOpts{
			Name: "tburn_usage_amount",
			Help: "Sum of billed request amounts across stored records.",
		}),
		CostMoney: f.NewGauge(prometheus.GaugeOpts{
			Name: "tburn_usage_cost",
			Help: "Sum of billed cost across stored records.",
		}),
		Tokens: f.NewGauge(prometheus.GaugeOpts{
			Name: "tburn_usage_tokens",
			Help: "Sum of all token kinds across stored records.",
		}),
		QuotaUsed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tburn_quota_used",
			Help: "Consumed amount per entitlement quota.",
		}, []string{"quota"}),
		QuotaLimit: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tburn_quota_limit",
			Help: "Limit per entitlement quota; negative means unlimited.",
		}, []string{"quota"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeSnapshot(s Snapshot) {
	m.Sessions.Set(float64(s.Sessions))
	m.Amount.Set(s.Amount)
	m.CostMoney.Set(s.Cost)
	m.Tokens.Set(float64(s.Tokens))
}

func (m *Metrics) observeQuotas(quotas []model.QuotaStats) {
	for _, q := range quotas {
		m.QuotaUsed.WithLabelValues(q.Name).Set(q.Used)
		m.QuotaLimit.WithLabelValues(q.Name).Set(q.Limit)
	}
}
