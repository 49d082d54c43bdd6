// Package metrics registers the Prometheus collectors for zone fetching and
// the explore sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ZoneRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_requests_total",
		Help: "Total zone generation requests sent to the remote API",
	})
	ZoneSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_success_total",
		Help: "Total zone generation requests that returned a feature collection",
	})
	ZoneFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_fail_total",
		Help: "Total zone generation requests that failed",
	})
	ZoneDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "explore_zone_duration_ms",
		Help:    "Zone generation call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
	ZoneStaleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_stale_total",
		Help: "Zone fetch completions dropped because a newer request superseded them",
	})
	ZoneInvalidationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_invalidations_total",
		Help: "Zone state invalidations caused by selection or filter changes",
	})
	ZoneCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_cache_hits_total",
		Help: "Zone cache hits",
	})
	ZoneCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "explore_zone_cache_misses_total",
		Help: "Zone cache misses",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "explore_sessions_active",
		Help: "Number of open explore sessions",
	})
	SelectionChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "explore_selection_changes_total",
		Help: "Selection changes by field",
	}, []string{"field"})
)

func init() {
	prometheus.MustRegister(ZoneRequestsTotal)
	prometheus.MustRegister(ZoneSuccessTotal)
	prometheus.MustRegister(ZoneFailTotal)
	prometheus.MustRegister(ZoneDurationMs)
	prometheus.MustRegister(ZoneStaleTotal)
	prometheus.MustRegister(ZoneInvalidationsTotal)
	prometheus.MustRegister(ZoneCacheHitsTotal)
	prometheus.MustRegister(ZoneCacheMissesTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SelectionChangesTotal)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
