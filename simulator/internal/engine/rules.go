// Package engine holds the active detection rules and annotates event
// sequences with detection statuses.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

var ErrInvalidRule = errors.New("invalid rule")

const (
	// HandoffRuleID is the id of the built-in stateful handoff rule.
	HandoffRuleID = "stateful_handoff_v2"

	TriggerTypeSequence = "sequence"
	TriggerKeyType      = "type"
	TriggerKeyEvents    = "events"
	TriggerKeyWindow    = "window_seconds"
)

// RuleSet is the session's mutable rule store, keyed by rule id.
type RuleSet struct {
	mu       sync.RWMutex
	rules    map[string]models.Rule
	validate *validator.Validate
}

func NewRuleSet() *RuleSet {
	return &RuleSet{
		rules:    make(map[string]models.Rule),
		validate: models.NewValidator(),
	}
}

// ApplyRule validates and upserts a rule. On error the set is unchanged.
func (s *RuleSet) ApplyRule(rule models.Rule) error {
	if err := s.validate.Struct(rule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if IsHandoff(rule) {
		if _, err := windowOverride(rule.Trigger); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.RuleID] = rule.Clone()
	return nil
}

// ClearRules removes every rule.
func (s *RuleSet) ClearRules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string]models.Rule)
}

// Rules returns copies of the stored rules sorted by id.
func (s *RuleSet) Rules() []models.Rule {
	return s.Snapshot().Rules()
}

// Len returns the number of stored rules.
func (s *RuleSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Snapshot captures the current rules. Later mutations do not affect it.
func (s *RuleSet) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]models.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r.Clone())
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].RuleID < rules[j].RuleID })
	return Snapshot{rules: rules}
}

// Snapshot is an immutable view of a rule set.
type Snapshot struct {
	rules []models.Rule
}

// NewSnapshot builds a snapshot directly from rules; later ids win.
func NewSnapshot(rules ...models.Rule) Snapshot {
	byID := make(map[string]int, len(rules))
	out := make([]models.Rule, 0, len(rules))
	for _, r := range rules {
		if i, ok := byID[r.RuleID]; ok {
			out[i] = r.Clone()
			continue
		}
		byID[r.RuleID] = len(out)
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return Snapshot{rules: out}
}

// Rules returns copies of the snapshot's rules.
func (s Snapshot) Rules() []models.Rule {
	out := make([]models.Rule, len(s.rules))
	for i := range s.rules {
		out[i] = s.rules[i].Clone()
	}
	return out
}

// IDs returns the rule ids in order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.rules))
	for i, r := range s.rules {
		ids[i] = r.RuleID
	}
	return ids
}

// Has reports whether a rule with the id is present.
func (s Snapshot) Has(id string) bool {
	for _, r := range s.rules {
		if r.RuleID == id {
			return true
		}
	}
	return false
}

// Addresses reports whether the snapshot covers a detection signature: a
// rule with that id, or for the handoff signature any rule of handoff shape.
func (s Snapshot) Addresses(signature string) bool {
	if s.Has(signature) {
		return true
	}
	if signature != HandoffRuleID {
		return false
	}
	for _, r := range s.rules {
		if IsHandoff(r) {
			return true
		}
	}
	return false
}

// handoff returns the active handoff rule with the widest window.
func (s Snapshot) handoff(defaultWindow float64) (ruleID string, window float64, ok bool) {
	for _, r := range s.rules {
		if !IsHandoff(r) {
			continue
		}
		w, _ := windowOverride(r.Trigger)
		if w == 0 {
			w = defaultWindow
		}
		if !ok || w > window {
			ruleID, window, ok = r.RuleID, w, true
		}
	}
	return ruleID, window, ok
}

// IsHandoff reports whether a rule has the built-in stateful handoff shape:
// either the well-known id or a drop→pickup sequence trigger.
func IsHandoff(r models.Rule) bool {
	if r.RuleID == HandoffRuleID {
		return true
	}
	typ, _ := r.Trigger[TriggerKeyType].(string)
	if !strings.EqualFold(typ, TriggerTypeSequence) {
		return false
	}
	events := stringList(r.Trigger[TriggerKeyEvents])
	return len(events) == 2 &&
		events[0] == string(models.ActionDropPackage) &&
		events[1] == string(models.ActionPickupPackage)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

// windowOverride reads trigger.window_seconds; 0 means not set.
func windowOverride(trigger map[string]any) (float64, error) {
	raw, ok := trigger[TriggerKeyWindow]
	if !ok || raw == nil {
		return 0, nil
	}
	var w float64
	switch t := raw.(type) {
	case float64:
		w = t
	case float32:
		w = float64(t)
	case int:
		w = float64(t)
	case int64:
		w = float64(t)
	case uint64:
		w = float64(t)
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", TriggerKeyWindow, raw)
	}
	if w <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", TriggerKeyWindow, w)
	}
	return w, nil
}
