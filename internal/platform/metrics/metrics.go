// Package metrics registers the Prometheus instruments for the access
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	GrantTransitions  *prometheus.CounterVec
	GrantNoops        prometheus.Counter
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	LedgerEntries     prometheus.Counter
	LedgerPruned      prometheus.Counter
	NotifyDelivered   prometheus.Counter
	NotifyFailures    prometheus.Counter
	NotifyDropped     prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		GrantTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_grant_transitions_total",
			Help: "Committed grant transitions by action (granted, revoked, modified)",
		}, []string{"action"}),
		GrantNoops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "accesshub_grant_noops_total",
			Help: "Requested transitions equal to the current level",
		}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_cache_hits_total",
			Help: "Cache hits by entity",
		}, []string{"entity"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_cache_misses_total",
			Help: "Cache misses by entity",
		}, []string{"entity"}),
		LedgerEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "accesshub_ledger_entries_total",
			Help: "Audit ledger entries appended",
		}),
		LedgerPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "accesshub_ledger_pruned_total",
			Help: "Audit ledger entries removed by retention pruning",
		}),
		NotifyDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "accesshub_notifications_delivered_total",
			Help: "Notification events delivered to all sinks",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "accesshub_notification_failures_total",
			Help: "Notification sink failures (logged and discarded)",
		}),
		NotifyDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "accesshub_notifications_dropped_total",
			Help: "Notification events dropped because the buffer was full",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accesshub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
