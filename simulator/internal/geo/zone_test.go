package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

func TestZone_Contains(t *testing.T) {
	zone := DefaultZones()[0]

	tests := []struct {
		name  string
		coord models.Coord
		want  bool
	}{
		{"drop point", models.Coord{31.6042, 74.5728}, true},
		{"entry point", models.Coord{31.6035, 74.5715}, true},
		{"north of zone", models.Coord{31.6100, 74.5728}, false},
		{"east of zone", models.Coord{31.6042, 74.5800}, false},
		{"far away", models.Coord{31.62, 74.87}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, zone.Contains(tt.coord))
		})
	}
}

func TestZone_ContainsConcave(t *testing.T) {
	// L-shape missing its upper-right quadrant
	z := Zone{Name: "L", Polygon: []models.Coord{
		{0, 0}, {0, 2}, {1, 2}, {1, 1}, {2, 1}, {2, 0},
	}}
	assert.True(t, z.Contains(models.Coord{0.5, 1.5}))
	assert.True(t, z.Contains(models.Coord{1.5, 0.5}))
	assert.False(t, z.Contains(models.Coord{1.5, 1.5}))
}

func TestZoneSet_Locate(t *testing.T) {
	zs := ZoneSet{
		{Name: "A", Polygon: []models.Coord{{0, 0}, {0, 1}, {1, 1}, {1, 0}}},
		{Name: "B", Polygon: []models.Coord{{5, 5}, {5, 6}, {6, 6}, {6, 5}}},
	}

	name, ok := zs.Locate(models.Coord{5.5, 5.5})
	require.True(t, ok)
	assert.Equal(t, "B", name)

	_, ok = zs.Locate(models.Coord{3, 3})
	assert.False(t, ok)
}

func TestZone_MatchesText(t *testing.T) {
	zone := DefaultZones()[0]

	assert.True(t, zone.MatchesText("Wagah Border"))
	assert.True(t, zone.MatchesText("near the WAGAH BORDER crossing"))
	assert.True(t, zone.MatchesText("Wagah, Punjab"))
	assert.True(t, zone.MatchesText("Attari"))
	assert.False(t, zone.MatchesText("Lahore"))
	assert.False(t, zone.MatchesText(""))
}

func TestZoneSet_Validate(t *testing.T) {
	assert.NoError(t, DefaultZones().Validate())

	err := ZoneSet{{Name: "x", Polygon: []models.Coord{{0, 0}, {1, 1}}}}.Validate()
	assert.ErrorIs(t, err, ErrInvalidZone)

	dup := append(DefaultZones(), DefaultZones()[0])
	assert.ErrorIs(t, dup.Validate(), ErrInvalidZone)

	assert.ErrorIs(t, Zone{Polygon: DefaultZones()[0].Polygon}.Validate(), ErrInvalidZone)
}

func TestZoneSet_Find(t *testing.T) {
	z, ok := DefaultZones().Find("wagah border")
	require.True(t, ok)
	assert.Equal(t, "Wagah Border", z.Name)

	_, ok = DefaultZones().Find("Amritsar")
	assert.False(t, ok)
}

func TestCentroid(t *testing.T) {
	c := DefaultZones()[0].Centroid()
	assert.InDelta(t, 31.604, c.Lat(), 1e-9)
	assert.InDelta(t, 74.573, c.Lon(), 1e-9)
	assert.True(t, DefaultZones()[0].Contains(c))
}

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, DistanceMeters(models.Coord{31.6, 74.5}, models.Coord{31.6, 74.5}), 1e-9)
	// one degree of latitude is about 111.2 km
	assert.InDelta(t, 111195, DistanceMeters(models.Coord{0, 0}, models.Coord{1, 0}), 10)
}
