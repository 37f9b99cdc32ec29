// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the server's collectors, including the Go runtime ones.
	Registry = prometheus.NewRegistry()

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayi_actions_total",
			Help: "Player actions handled, by action type and result",
		},
		[]string{"action", "result"},
	)
	MayIResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayi_requests_resolved_total",
			Help: "May I requests by outcome",
		},
		[]string{"outcome"},
	)
	RoundsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mayi_rounds_completed_total",
			Help: "Rounds played to completion",
		},
	)
	GamesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mayi_games_completed_total",
			Help: "Games played to completion",
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mayi_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
	ActiveRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mayi_active_rooms",
			Help: "Rooms currently open",
		},
	)
)

func init() {
	Registry.MustRegister(
		ActionsTotal,
		MayIResolutions,
		RoundsCompleted,
		GamesCompleted,
		HTTPRequests,
		ActiveRooms,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
