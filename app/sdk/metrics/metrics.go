// Package metrics constructs the metrics the application will track.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this package exports. It is separate from
// the prometheus default registry so tests can build handlers freely.
var Registry = prometheus.NewRegistry()

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewspace_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crewspace_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewspace_errors_total",
			Help: "Total number of handled errors by code.",
		},
		[]string{"code"},
	)

	panics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crewspace_panics_total",
			Help: "Total number of recovered panics.",
		},
	)

	goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crewspace_goroutines",
			Help: "Number of goroutines sampled on every 100th request.",
		},
	)

	invitations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewspace_invitation_transitions_total",
			Help: "Invitation lifecycle transitions by resulting status.",
		},
		[]string{"status"},
	)

	repairSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewspace_repair_steps_total",
			Help: "Repair steps by name and outcome.",
		},
		[]string{"step", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		requests,
		duration,
		errorsTotal,
		panics,
		goroutines,
		invitations,
		repairSteps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns the scrape endpoint for the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// AddRequest records a finished request. Every 100th request also samples
// the number of goroutines.
func AddRequest(method string, path string, status int, took time.Duration) int {
	requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	duration.WithLabelValues(method, path).Observe(took.Seconds())

	return sample()
}

// AddError increments the errors metric for the code.
func AddError(code string) {
	errorsTotal.WithLabelValues(code).Inc()
}

// AddPanics increments the panics metric by 1.
func AddPanics() {
	panics.Inc()
}

// AddInvitationTransition counts an invitation reaching a status.
func AddInvitationTransition(status string) {
	invitations.WithLabelValues(status).Inc()
}

// AddRepairStep counts one repair step outcome.
func AddRepairStep(step string, outcome string) {
	repairSteps.WithLabelValues(step, outcome).Inc()
}

var requestCount atomic.Int64

func sample() int {
	if requestCount.Add(1)%100 != 0 {
		return 0
	}

	g := runtime.NumGoroutine()
	goroutines.Set(float64(g))

	return g
}
