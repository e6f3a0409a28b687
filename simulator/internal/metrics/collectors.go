package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breachsim_runs_total",
			Help: "Total number of completed simulation runs",
		},
		[]string{"scenario", "outcome"},
	)

	RuleMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breachsim_rule_matches_total",
			Help: "Total number of drop/pickup pairs joined by a detection rule",
		},
		[]string{"rule_id"},
	)

	DetectionRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "breachsim_detection_rate_percent",
			Help: "Percentage of session runs that ended Detected",
		},
	)

	Iterations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "breachsim_session_iterations",
			Help: "Completed runs in the current session",
		},
	)

	TimeToDetect = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "breachsim_time_to_detect_seconds",
			Help:    "Scenario offset of the first detection in detected runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breachsim_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)

	// Collaborator metrics
	GeocodeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breachsim_geocode_lookups_total",
			Help: "Geocoder lookups by result",
		},
		[]string{"result"},
	)
)
