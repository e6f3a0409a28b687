package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Action is what an entity does at a point in a scenario.
type Action string

const (
	ActionEnter         Action = "enter"
	ActionExit          Action = "exit"
	ActionMove          Action = "move"
	ActionDropPackage   Action = "drop_package"
	ActionPickupPackage Action = "pickup_package"
)

// IsValid checks if the action is one of the known actions
func (a Action) IsValid() bool {
	switch a {
	case ActionEnter, ActionExit, ActionMove, ActionDropPackage, ActionPickupPackage:
		return true
	default:
		return false
	}
}

// DetectionStatus is the per-event classification assigned by the rule engine.
// The zero value means the engine has not classified the event.
type DetectionStatus string

const (
	StatusUndefined DetectionStatus = ""
	StatusPending   DetectionStatus = "PENDING"
	StatusBypassed  DetectionStatus = "BYPASSED"
	StatusDetected  DetectionStatus = "DETECTED"
)

// IsValid checks if the status is one of the known statuses
func (s DetectionStatus) IsValid() bool {
	switch s {
	case StatusUndefined, StatusPending, StatusBypassed, StatusDetected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status decides a run's outcome.
func (s DetectionStatus) IsTerminal() bool {
	switch s {
	case StatusBypassed, StatusDetected:
		return true
	case StatusUndefined, StatusPending:
		return false
	default:
		return false
	}
}

// Coord is a [latitude, longitude] pair in decimal degrees.
type Coord [2]float64

// Lat returns the latitude.
func (c Coord) Lat() float64 { return c[0] }

// Lon returns the longitude.
func (c Coord) Lon() float64 { return c[1] }

func (c Coord) String() string {
	return fmt.Sprintf("[%.4f, %.4f]", c[0], c[1])
}

// MetadataDetectionStatus is the metadata key the status is exposed under.
const MetadataDetectionStatus = "detection_status"

// Event is one timestamped entity movement in a scenario.
type Event struct {
	EntityID string          `json:"entity_id" yaml:"entity_id" validate:"required"`
	Action   Action          `json:"action" yaml:"action" validate:"required,action"`
	Offset   float64         `json:"timestamp_offset_seconds" yaml:"timestamp_offset_seconds" validate:"gte=0"`
	Coords   Coord           `json:"coords" yaml:"coords"`
	Path     []Coord         `json:"path,omitempty" yaml:"path,omitempty"`
	Metadata map[string]any  `json:"metadata" yaml:"metadata,omitempty"`
	Status   DetectionStatus `json:"-" yaml:"-"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := e
	if e.Path != nil {
		out.Path = make([]Coord, len(e.Path))
		copy(out.Path, e.Path)
	}
	out.Metadata = cloneMap(e.Metadata)
	return out
}

// CloneEvents deep-copies a sequence of events.
func CloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i := range events {
		out[i] = events[i].Clone()
	}
	return out
}

type eventWire struct {
	EntityID string         `json:"entity_id"`
	Action   Action         `json:"action"`
	Offset   float64        `json:"timestamp_offset_seconds"`
	Coords   Coord          `json:"coords"`
	Path     []Coord        `json:"path,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// MarshalJSON emits the status inside metadata.detection_status, omitting it
// while the event is unclassified.
func (e Event) MarshalJSON() ([]byte, error) {
	meta := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		if k == MetadataDetectionStatus {
			continue
		}
		meta[k] = v
	}
	if e.Status != StatusUndefined {
		meta[MetadataDetectionStatus] = string(e.Status)
	}
	return json.Marshal(eventWire{
		EntityID: e.EntityID,
		Action:   e.Action,
		Offset:   e.Offset,
		Coords:   e.Coords,
		Path:     e.Path,
		Metadata: meta,
	})
}

// UnmarshalJSON lifts metadata.detection_status into Status.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		EntityID: w.EntityID,
		Action:   w.Action,
		Offset:   w.Offset,
		Coords:   w.Coords,
		Path:     w.Path,
		Metadata: w.Metadata,
	}
	if raw, ok := w.Metadata[MetadataDetectionStatus].(string); ok {
		status := DetectionStatus(raw)
		if !status.IsValid() {
			return fmt.Errorf("unknown detection_status %q", raw)
		}
		e.Status = status
		delete(e.Metadata, MetadataDetectionStatus)
	}
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// CloneMap deep-copies a JSON-like map.
func CloneMap(m map[string]any) map[string]any {
	return cloneMap(m)
}
