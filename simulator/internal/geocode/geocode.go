// Package geocode maps free-text locations to coordinates. A miss is a nil
// coordinate, never an error.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// Geocoder resolves a location. Implementations return (nil, nil) on a miss
// and an error only when the lookup itself failed.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (*models.Coord, error)
}

// DefaultKey is the fallback index entry.
const DefaultKey = "default"

// Entry is one index key and its coordinates.
type Entry struct {
	Key    string
	Coords models.Coord
}

// Index is an ordered substring index. The first key contained in the
// lowercased location wins; DefaultKey is used when nothing else matches.
type Index struct {
	entries  []Entry
	fallback *models.Coord
}

func NewIndex(entries ...Entry) *Index {
	idx := &Index{}
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Key))
		if key == DefaultKey {
			c := e.Coords
			idx.fallback = &c
			continue
		}
		if key == "" {
			continue
		}
		idx.entries = append(idx.entries, Entry{Key: key, Coords: e.Coords})
	}
	return idx
}

// DefaultIndex covers the places the built-in feed mentions.
func DefaultIndex() *Index {
	return NewIndex(
		Entry{Key: "wagah", Coords: models.Coord{31.6047, 74.5725}},
		Entry{Key: "attari", Coords: models.Coord{31.6040, 74.6060}},
		Entry{Key: "amritsar", Coords: models.Coord{31.6340, 74.8723}},
		Entry{Key: "lahore", Coords: models.Coord{31.5204, 74.3587}},
		Entry{Key: "tarn taran", Coords: models.Coord{31.4518, 74.9278}},
	)
}

func (i *Index) Geocode(_ context.Context, location string) (*models.Coord, error) {
	loc := strings.ToLower(location)
	for _, e := range i.entries {
		if strings.Contains(loc, e.Key) {
			c := e.Coords
			return &c, nil
		}
	}
	if i.fallback != nil {
		c := *i.fallback
		return &c, nil
	}
	return nil, nil
}

// Len returns the number of non-default entries.
func (i *Index) Len() int {
	return len(i.entries)
}

var ErrInvalidIndex = errors.New("invalid geocode index")

// LoadIndex reads a YAML mapping of `key: [lat, lon]`. Key order is kept.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode index: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse geocode index: %w", err)
	}
	if len(doc.Content) == 0 {
		return NewIndex(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidIndex)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var c models.Coord
		if err := root.Content[i+1].Decode(&c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidIndex, root.Content[i].Value, err)
		}
		entries = append(entries, Entry{Key: root.Content[i].Value, Coords: c})
	}
	return NewIndex(entries...), nil
}
