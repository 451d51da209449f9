package weather

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// CachedGeocoder memoizes forward geocoding results for a fixed TTL.
type CachedGeocoder struct {
	inner Geocoder
	cache *gocache.Cache
}

// NewCachedGeocoder wraps inner with an in-memory cache.
func NewCachedGeocoder(inner Geocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, text string) (domain.Place, bool, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if v, ok := c.cache.Get(key); ok {
		return v.(domain.Place), true, nil
	}
	place, found, err := c.inner.Geocode(ctx, text)
	if err != nil || !found {
		return place, found, err
	}
	// Only cache hits so "not found" can be retried.
	c.cache.Set(key, place, gocache.DefaultExpiration)
	return place, true, nil
}
