// Package metrics holds Prometheus instruments that are used across the
// portal.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanizio/portal/internal/apperr"
)

var (
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_transitions_total",
			Help: "Subscription lifecycle commands by command and result.",
		}, []string{"command", "result"})

	CatalogOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_catalog_operations_total",
			Help: "Tool catalog operations by operation and result.",
		}, []string{"op", "result"})

	CatalogCacheLoads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_catalog_cache_loads_total",
			Help: "Cumulative number of tool types loaded into the slug cache.",
		})

	FeedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_feed_events_total",
			Help: "Change-feed events published, by change kind.",
		}, []string{"kind"})

	FeedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_feed_subscribers",
			Help: "Number of change-feed observers currently subscribed.",
		})
)

func init() {
	prometheus.MustRegister(
		Transitions,
		CatalogOperations,
		CatalogCacheLoads,
		FeedEvents,
		FeedSubscribers,
	)
}

// Result labels an outcome: "ok" for nil, otherwise the error kind.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Kind(err)
}
