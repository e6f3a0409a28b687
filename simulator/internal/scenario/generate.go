package scenario

import (
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/breachsim/simulator/internal/geo"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// RelayOptions tunes a generated relay attack. Zero values take defaults.
type RelayOptions struct {
	Zone        geo.Zone
	DropDelay   float64 // seconds from start until the drone drops the package
	PickupDelay float64 // seconds from start until the courier enters
	PickupDwell float64 // seconds the courier spends before the pickup
	Noise       float64 // coordinate jitter in degrees
	Signature   string
	NamePrefix  string
	ExitDelay   float64 // seconds between the pickup and the courier leaving
}

func (o RelayOptions) withDefaults() RelayOptions {
	if len(o.Zone.Polygon) == 0 {
		o.Zone = geo.DefaultZones()[0]
	}
	if o.DropDelay == 0 {
		o.DropDelay = 45
	}
	if o.PickupDelay == 0 {
		o.PickupDelay = 180
	}
	if o.PickupDwell == 0 {
		o.PickupDwell = 50
	}
	if o.Noise == 0 {
		o.Noise = 0.0002
	}
	if o.Signature == "" {
		o.Signature = HandoffSignature
	}
	if o.NamePrefix == "" {
		o.NamePrefix = "Generated Relay Attack"
	}
	if o.ExitDelay == 0 {
		o.ExitDelay = 51
	}
	return o
}

// GenerateRelay builds a drone-drop / courier-pickup relay scenario around the
// zone centroid. The faker is the only randomness source, so a seeded faker
// yields the same scenario every time.
func GenerateRelay(faker *gofakeit.Faker, opts RelayOptions) models.Scenario {
	opts = opts.withDefaults()
	center := opts.Zone.Centroid()

	jitter := func(dLat, dLon float64) models.Coord {
		return models.Coord{
			center.Lat() + dLat + faker.Float64Range(-opts.Noise, opts.Noise),
			center.Lon() + dLon + faker.Float64Range(-opts.Noise, opts.Noise),
		}
	}
	shortID := func(prefix string) string {
		return prefix + "_" + strings.ReplaceAll(faker.UUID(), "-", "")[:8]
	}

	drone := shortID("DRONE")
	courier := shortID("PERSON")
	pkg := shortID("PKG")
	drop := jitter(0.00012, 0.00009)
	pickupAt := opts.PickupDelay + opts.PickupDwell

	meta := func(kind string, withPkg bool) map[string]any {
		m := map[string]any{"entity_type": kind}
		if withPkg {
			m["package_id"] = pkg
		}
		return m
	}

	id := shortID("SCN")
	return models.Scenario{
		ID:          strings.ToLower(id),
		Name:        opts.NamePrefix + " " + id[len("SCN_"):],
		Description: "Generated relay attack: a drone drops a package that a courier later collects.",
		Zone:        opts.Zone.Name,
		Signature:   opts.Signature,
		Events: []models.Event{
			{EntityID: drone, Action: models.ActionEnter, Offset: 0, Coords: jitter(0.0001, 0.0001), Metadata: meta("drone", false)},
			{EntityID: drone, Action: models.ActionDropPackage, Offset: opts.DropDelay, Coords: drop, Metadata: meta("drone", true)},
			{EntityID: drone, Action: models.ActionExit, Offset: opts.DropDelay + 1, Coords: jitter(0.0005, 0.0005), Metadata: meta("drone", false)},
			{EntityID: courier, Action: models.ActionEnter, Offset: opts.PickupDelay, Coords: jitter(0.00015, 0.00011), Metadata: meta("person", false)},
			{EntityID: courier, Action: models.ActionPickupPackage, Offset: pickupAt, Coords: drop, Metadata: meta("person", true)},
			{EntityID: courier, Action: models.ActionExit, Offset: pickupAt + opts.ExitDelay, Coords: jitter(0.0006, 0.0006), Metadata: meta("person", false)},
		},
	}
}

// GenerateVariants returns n relay scenarios from the same faker.
func GenerateVariants(faker *gofakeit.Faker, n int, opts RelayOptions) []models.Scenario {
	out := make([]models.Scenario, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, GenerateRelay(faker, opts))
	}
	return out
}
