package models

// Scenario is an immutable breach scenario definition.
type Scenario struct {
	ID          string  `json:"id" yaml:"id" validate:"required"`
	Name        string  `json:"name" yaml:"name" validate:"required"`
	Description string  `json:"description" yaml:"description"`
	Zone        string  `json:"zone" yaml:"zone" validate:"required"`           // target-zone label
	Signature   string  `json:"signature" yaml:"signature" validate:"required"` // rule id that patches this scenario
	Events      []Event `json:"event_sequence" yaml:"event_sequence" validate:"required,min=1,dive"`
}

// Clone returns a deep copy of the scenario.
func (s Scenario) Clone() Scenario {
	out := s
	out.Events = CloneEvents(s.Events)
	return out
}
