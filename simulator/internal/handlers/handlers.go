package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/telhawk-systems/breachsim/common/httputil"
	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/authoring"
	"github.com/telhawk-systems/breachsim/simulator/internal/engine"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
	"github.com/telhawk-systems/breachsim/simulator/internal/runstats"
	"github.com/telhawk-systems/breachsim/simulator/internal/scenario"
	"github.com/telhawk-systems/breachsim/simulator/internal/session"
	"github.com/telhawk-systems/breachsim/simulator/internal/simulation"
)

// FleetStats reads run statistics shared by every simulator instance.
type FleetStats interface {
	GetStats(ctx context.Context, scenarioID string) (*runstats.Stats, error)
}

type Handler struct {
	session *session.Session
	fleet   FleetStats
	logger  *logging.Logger
}

type Option func(*Handler)

// WithFleetStats enables GET /stats/fleet.
func WithFleetStats(f FleetStats) Option {
	return func(h *Handler) { h.fleet = f }
}

func NewHandler(s *session.Session, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{session: s, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListScenarios handles GET /scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"scenarios": h.session.Scenarios(),
	})
}

type runRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type runResponse struct {
	Events      []models.Event   `json:"event_sequence"`
	AttackLogID string           `json:"attack_log_id"`
	Outcome     models.Outcome   `json:"outcome"`
	Matches     []engine.Match   `json:"matches"`
	Log         models.AttackLog `json:"attack_log"`
}

// RunScenario handles POST /runs
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ScenarioID) == "" {
		httputil.WriteCodedError(w, http.StatusBadRequest, "validation_error", "scenario_id is required")
		return
	}

	res, err := h.session.Run(r.Context(), req.ScenarioID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	matches := res.Matches
	if matches == nil {
		matches = []engine.Match{}
	}
	httputil.WriteJSON(w, http.StatusOK, runResponse{
		Events:      res.Events,
		AttackLogID: res.LogID,
		Outcome:     res.Log.Outcome,
		Matches:     matches,
		Log:         res.Log,
	})
}

// ListLogs handles GET /logs
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs := h.session.Logs()
	page := httputil.ParsePagination(r, 50, 500)
	start, end := page.Window(len(logs))

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"logs":       logs[start:end],
		"total":      len(logs),
		"pagination": page,
	})
}

// GetLog handles GET /logs/{id}
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/logs/")
	if id == "" || strings.Contains(id, "/") {
		httputil.WriteError(w, http.StatusNotFound, "attack log not found")
		return
	}
	log, ok := h.session.Log(id)
	if !ok {
		httputil.WriteCodedError(w, http.StatusNotFound, "not_found", "attack log not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, log)
}

// ListRules handles GET /rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"rules": h.session.Rules(),
	})
}

// ApplyRule handles POST /rules
func (h *Handler) ApplyRule(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := httputil.DecodeJSON(r, &rule); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.session.ApplyRule(r.Context(), rule); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rule)
}

// ClearRules handles DELETE /rules
func (h *Handler) ClearRules(w http.ResponseWriter, r *http.Request) {
	h.session.ClearRules(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ProposeRule handles POST /rules/propose
func (h *Handler) ProposeRule(w http.ResponseWriter, r *http.Request) {
	patch, err := h.session.ProposePatch(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, patch)
}

// GetStats handles GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.session.Stats())
}

// GetFleetStats handles GET /stats/fleet?scenario_id=...
// Without scenario_id every catalog scenario is reported.
func (h *Handler) GetFleetStats(w http.ResponseWriter, r *http.Request) {
	if h.fleet == nil {
		httputil.WriteCodedError(w, http.StatusNotFound, "disabled", "fleet run statistics are disabled")
		return
	}

	ids := []string{r.URL.Query().Get("scenario_id")}
	if ids[0] == "" {
		ids = ids[:0]
		for _, sc := range h.session.Scenarios() {
			ids = append(ids, sc.ID)
		}
	}

	out := make([]*runstats.Stats, 0, len(ids))
	for _, id := range ids {
		stats, err := h.fleet.GetStats(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out = append(out, stats)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scenarios": out})
}

// ListFlags handles GET /flags
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"flags": h.session.Flags(),
	})
}

// AddFlag handles POST /flags
func (h *Handler) AddFlag(w http.ResponseWriter, r *http.Request) {
	var flag models.SocialFlag
	if err := httputil.DecodeJSON(r, &flag); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, err := h.session.AddFlag(r.Context(), flag)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, added)
}

// PollFeed handles POST /feed/poll
func (h *Handler) PollFeed(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.PollFeed(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// ListCorrelations handles GET /correlations
func (h *Handler) ListCorrelations(w http.ResponseWriter, r *http.Request) {
	corr := h.session.Correlations()
	if corr == nil {
		corr = []models.Correlation{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"correlations": corr,
	})
}

// ResetSession handles POST /session/reset
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reset(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		httputil.WriteCodedError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, engine.ErrInvalidRule), errors.Is(err, session.ErrInvalidFlag):
		httputil.WriteCodedError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, simulation.ErrConcurrencyRejected):
		httputil.WriteCodedError(w, http.StatusConflict, "concurrency_rejected", err.Error())
	case errors.Is(err, authoring.ErrNoLog):
		httputil.WriteCodedError(w, http.StatusConflict, "no_attack_log", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			logging.Error(err),
		)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
