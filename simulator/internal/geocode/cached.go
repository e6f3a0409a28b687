package geocode

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/telhawk-systems/breachsim/simulator/internal/metrics"
	"github.com/telhawk-systems/breachsim/simulator/internal/models"
)

// Cached memoises another geocoder, misses included. Errors are not cached.
type Cached struct {
	next  Geocoder
	cache *lru.Cache[string, *models.Coord]
}

func NewCached(next Geocoder, size int) (*Cached, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *models.Coord](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Geocode(ctx context.Context, location string) (*models.Coord, error) {
	key := strings.ToLower(strings.TrimSpace(location))
	if v, ok := c.cache.Get(key); ok {
		metrics.GeocodeLookupsTotal.WithLabelValues("cache_hit").Inc()
		return copyCoord(v), nil
	}

	v, err := c.next.Geocode(ctx, location)
	if err != nil {
		metrics.GeocodeLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if v == nil {
		metrics.GeocodeLookupsTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.GeocodeLookupsTotal.WithLabelValues("hit").Inc()
	}
	c.cache.Add(key, copyCoord(v))
	return v, nil
}

// Len returns the number of cached locations.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func copyCoord(c *models.Coord) *models.Coord {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

// Chain tries each geocoder in turn and returns the first hit. Failures
// are skipped; the last error is returned only if nothing hit.
type Chain []Geocoder

func (ch Chain) Geocode(ctx context.Context, location string) (*models.Coord, error) {
	var lastErr error
	for _, g := range ch {
		c, err := g.Geocode(ctx, location)
		if err != nil {
			lastErr = err
			continue
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, lastErr
}

var (
	_ Geocoder = (*Index)(nil)
	_ Geocoder = (*HTTP)(nil)
	_ Geocoder = (*Cached)(nil)
	_ Geocoder = Chain(nil)
)
