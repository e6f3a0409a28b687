// Package scenario holds the immutable scenario catalog.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

var (
	ErrNotFound        = errors.New("scenario not found")
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrDuplicate       = errors.New("duplicate scenario id")
)

// Store is a read-only catalog. Scenarios are copied in on construction and
// copied out on every read, so callers never share canonical events.
type Store struct {
	scenarios map[string]models.Scenario
	order     []string
}

// NewStore validates and indexes the given scenarios.
func NewStore(scenarios ...models.Scenario) (*Store, error) {
	v := models.NewValidator()
	s := &Store{scenarios: make(map[string]models.Scenario, len(scenarios))}
	for _, sc := range scenarios {
		if err := validate(v, sc); err != nil {
			return nil, err
		}
		if _, ok := s.scenarios[sc.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, sc.ID)
		}
		s.scenarios[sc.ID] = sc.Clone()
		s.order = append(s.order, sc.ID)
	}
	return s, nil
}

func validate(v *validator.Validate, sc models.Scenario) error {
	if err := v.Struct(sc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidScenario, sc.ID, err)
	}
	for i := 1; i < len(sc.Events); i++ {
		if sc.Events[i].Offset < sc.Events[i-1].Offset {
			return fmt.Errorf("%w: %s: event %d offset %.3f precedes %.3f",
				ErrInvalidScenario, sc.ID, i, sc.Events[i].Offset, sc.Events[i-1].Offset)
		}
	}
	for i, e := range sc.Events {
		if e.Status != models.StatusUndefined {
			return fmt.Errorf("%w: %s: event %d carries a detection status", ErrInvalidScenario, sc.ID, i)
		}
	}
	return nil
}

// Get returns a deep copy of the scenario.
func (s *Store) Get(id string) (models.Scenario, error) {
	sc, ok := s.scenarios[id]
	if !ok {
		return models.Scenario{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sc.Clone(), nil
}

// List returns deep copies in catalog order.
func (s *Store) List() []models.Scenario {
	out := make([]models.Scenario, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.scenarios[id].Clone())
	}
	return out
}

// IDs returns the catalog ids, sorted.
func (s *Store) IDs() []string {
	ids := append([]string(nil), s.order...)
	sort.Strings(ids)
	return ids
}

// Len returns the number of scenarios.
func (s *Store) Len() int {
	return len(s.order)
}

type catalogFile struct {
	Scenarios []models.Scenario `yaml:"scenarios"`
}

// LoadFile reads a YAML catalog of the form `scenarios: [...]`.
func LoadFile(path string) ([]models.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return f.Scenarios, nil
}

// Load builds a store from the built-in catalog plus an optional file.
func Load(path string) (*Store, error) {
	scenarios := Builtin()
	if path != "" {
		extra, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, extra...)
	}
	return NewStore(scenarios...)
}
