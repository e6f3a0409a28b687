package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/telhawk-systems/breachsim/common/logging"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// BreakerConfig configures the circuit breaker around the remote geocoder.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// HTTP queries a remote geocoding endpoint: GET <base>?q=<location> answers
// {"lat":..,"lon":..}; 404 is a miss.
type HTTP struct {
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*models.Coord]
	logger  *logging.Logger
}

func NewHTTP(base string, timeout time.Duration, cfg BreakerConfig, logger *logging.Logger) *HTTP {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if logger == nil {
		logger = logging.Discard()
	}
	h := &HTTP{
		base:   base,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	h.breaker = gobreaker.NewCircuitBreaker[*models.Coord](gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.logger.WarnContext(context.Background(), "geocoder circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return h
}

type geocodeResponse struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (h *HTTP) Geocode(ctx context.Context, location string) (*models.Coord, error) {
	return h.breaker.Execute(func() (*models.Coord, error) {
		return h.fetch(ctx, location)
	})
}

// State reports the breaker state.
func (h *HTTP) State() string {
	return h.breaker.State().String()
}

func (h *HTTP) fetch(ctx context.Context, location string) (*models.Coord, error) {
	u, err := url.Parse(h.base)
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder url: %w", err)
	}
	q := u.Query()
	q.Set("q", location)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode response: %w", err)
	}
	var r geocodeResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if r.Lat == nil || r.Lon == nil {
		return nil, nil
	}
	return &models.Coord{*r.Lat, *r.Lon}, nil
}
