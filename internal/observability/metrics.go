package observability

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Spotify API metrics
	SpotifyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spotify_request_duration_seconds",
			Help:    "Spotify Web API request latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "status"},
	)

	// Token lifecycle metrics
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total number of remote token refresh attempts",
		},
		[]string{"outcome"},
	)

	TokenRefreshesCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_refreshes_coalesced_total",
			Help: "Refresh callers that shared an in-flight refresh instead of issuing their own",
		},
	)

	// Game metrics
	TracksServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracks_served_total",
			Help: "Total number of tracks handed out to sessions",
		},
		[]string{"mode"}, // "peek" or "play"
	)

	PlaybackRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playback_refresh_retries_total",
			Help: "Play commands retried after a 401-triggered token refresh",
		},
	)

	ExpiredRecordsReaped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expired_records_reaped_total",
			Help: "Records removed by the background TTL reaper",
		},
		[]string{"collection"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// CollectDBStats copies connection pool stats into the database gauges.
// Intended to be called periodically from a background goroutine.
func CollectDBStats(db *sql.DB) {
	stats := db.Stats()
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
	DBConnectionsInUse.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}
