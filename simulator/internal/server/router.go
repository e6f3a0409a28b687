package server

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/breachsim/common/httputil"
	"github.com/telhawk-systems/breachsim/common/middleware"
	"github.com/telhawk-systems/breachsim/simulator/internal/handlers"
	"github.com/telhawk-systems/breachsim/simulator/internal/metrics"
)

// NewRouter constructs a ServeMux with the simulator API routes registered.
func NewRouter(h *handlers.Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	handle(mux, "/scenarios", methods{http.MethodGet: h.ListScenarios})
	handle(mux, "/runs", methods{http.MethodPost: h.RunScenario})
	handle(mux, "/logs", methods{http.MethodGet: h.ListLogs})
	handle(mux, "/logs/", methods{http.MethodGet: h.GetLog})
	handle(mux, "/rules", methods{
		http.MethodGet:    h.ListRules,
		http.MethodPost:   h.ApplyRule,
		http.MethodDelete: h.ClearRules,
	})
	handle(mux, "/rules/propose", methods{http.MethodPost: h.ProposeRule})
	handle(mux, "/stats", methods{http.MethodGet: h.GetStats})
	handle(mux, "/stats/fleet", methods{http.MethodGet: h.GetFleetStats})
	handle(mux, "/flags", methods{
		http.MethodGet:  h.ListFlags,
		http.MethodPost: h.AddFlag,
	})
	handle(mux, "/feed/poll", methods{http.MethodPost: h.PollFeed})
	handle(mux, "/correlations", methods{http.MethodGet: h.ListCorrelations})
	handle(mux, "/session/reset", methods{http.MethodPost: h.ResetSession})

	cors := middleware.CORS(middleware.DefaultCORSConfig(allowedOrigins))
	return middleware.RequestID(cors(mux))
}

type methods map[string]http.HandlerFunc

// handle registers route with per-method dispatch and request counting.
func handle(mux *http.ServeMux, route string, m methods) {
	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if fn, ok := m[r.Method]; ok {
			fn(rec, r)
		} else {
			httputil.MethodNotAllowed(rec, allowed...)
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
