package scenario

import "github.com/telhawk-systems/breachsim/simulator/internal/models"

const (
	RelayAttackWagahID = "relay_attack_wagah"
	HandoffSignature   = "stateful_handoff_v2"
)

// Builtin returns the scenarios that ship with the simulator.
func Builtin() []models.Scenario {
	return []models.Scenario{relayAttackWagah()}
}

func relayAttackWagah() models.Scenario {
	return models.Scenario{
		ID:          RelayAttackWagahID,
		Name:        "Wagah Border Relay Attack",
		Description: "A two-person team uses a package handoff to bypass perimeter security.",
		Zone:        "Wagah Border",
		Signature:   HandoffSignature,
		Events: []models.Event{
			{
				EntityID: "OPERATIVE_A", Action: models.ActionEnter, Offset: 0,
				Coords: models.Coord{31.6035, 74.5715},
				Path:   []models.Coord{{31.6035, 74.5715}, {31.6042, 74.5728}},
			},
			{EntityID: "OPERATIVE_A", Action: models.ActionMove, Offset: 5, Coords: models.Coord{31.6042, 74.5728}},
			{EntityID: "OPERATIVE_A", Action: models.ActionDropPackage, Offset: 6, Coords: models.Coord{31.6042, 74.5728}},
			{
				EntityID: "OPERATIVE_B", Action: models.ActionEnter, Offset: 7,
				Coords: models.Coord{31.6052, 74.5742},
				Path:   []models.Coord{{31.6052, 74.5742}, {31.6042, 74.5728}},
			},
			{EntityID: "OPERATIVE_A", Action: models.ActionExit, Offset: 8, Coords: models.Coord{31.6038, 74.5718}},
			{EntityID: "OPERATIVE_B", Action: models.ActionMove, Offset: 12, Coords: models.Coord{31.6042, 74.5728}},
			{EntityID: "OPERATIVE_B", Action: models.ActionPickupPackage, Offset: 13, Coords: models.Coord{31.6042, 74.5728}},
			{EntityID: "OPERATIVE_B", Action: models.ActionExit, Offset: 18, Coords: models.Coord{31.6048, 74.5748}},
		},
	}
}
