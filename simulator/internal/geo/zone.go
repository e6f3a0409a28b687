// Package geo holds the restricted-zone geometry used for spatial matching.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

var ErrInvalidZone = errors.New("invalid zone")

// Zone is a named polygon. Keywords are extra location-text aliases used when
// matching free-text locations against the zone.
type Zone struct {
	Name     string         `mapstructure:"name" yaml:"name" json:"name"`
	Keywords []string       `mapstructure:"keywords" yaml:"keywords" json:"keywords,omitempty"`
	Polygon  []models.Coord `mapstructure:"polygon" yaml:"polygon" json:"polygon"`
}

// Validate checks the zone has a name and a closed-able polygon.
func (z Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidZone)
	}
	if len(z.Polygon) < 3 {
		return fmt.Errorf("%w: %s needs at least 3 vertices, got %d", ErrInvalidZone, z.Name, len(z.Polygon))
	}
	return nil
}

// Contains reports whether c lies inside the polygon (ray casting, lon as x).
// Points exactly on an edge may land on either side.
func (z Zone) Contains(c models.Coord) bool {
	inside := false
	n := len(z.Polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := z.Polygon[i].Lat(), z.Polygon[i].Lon()
		yj, xj := z.Polygon[j].Lat(), z.Polygon[j].Lon()
		if (yi > c.Lat()) != (yj > c.Lat()) &&
			c.Lon() < (xj-xi)*(c.Lat()-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Centroid returns the vertex average.
func (z Zone) Centroid() models.Coord {
	var lat, lon float64
	for _, p := range z.Polygon {
		lat += p.Lat()
		lon += p.Lon()
	}
	n := float64(len(z.Polygon))
	if n == 0 {
		return models.Coord{}
	}
	return models.Coord{lat / n, lon / n}
}

// MatchesText reports whether a free-text location mentions this zone by
// label or keyword, ignoring case.
func (z Zone) MatchesText(location string) bool {
	loc := strings.ToLower(location)
	if loc == "" {
		return false
	}
	if strings.Contains(loc, strings.ToLower(z.Name)) {
		return true
	}
	for _, kw := range z.Keywords {
		if kw != "" && strings.Contains(loc, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ZoneSet is an ordered list of zones. The first containing zone wins.
type ZoneSet []Zone

// Locate returns the name of the first zone containing c.
func (zs ZoneSet) Locate(c models.Coord) (string, bool) {
	for _, z := range zs {
		if z.Contains(c) {
			return z.Name, true
		}
	}
	return "", false
}

// Find returns the zone with the given name, case-insensitively.
func (zs ZoneSet) Find(name string) (Zone, bool) {
	for _, z := range zs {
		if strings.EqualFold(z.Name, name) {
			return z, true
		}
	}
	return Zone{}, false
}

// Validate validates every zone and rejects duplicate names.
func (zs ZoneSet) Validate() error {
	seen := make(map[string]struct{}, len(zs))
	for _, z := range zs {
		if err := z.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(z.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate zone %q", ErrInvalidZone, z.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// DefaultZones is the Wagah border crossing perimeter.
func DefaultZones() ZoneSet {
	return ZoneSet{{
		Name:     "Wagah Border",
		Keywords: []string{"wagah", "attari"},
		Polygon: []models.Coord{
			{31.6000, 74.5680},
			{31.6080, 74.5680},
			{31.6080, 74.5780},
			{31.6000, 74.5780},
		},
	}}
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b models.Coord) float64 {
	const earthRadiusM = 6371000.0

	lat1 := a.Lat() * math.Pi / 180.0
	lat2 := b.Lat() * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
