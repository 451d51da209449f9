package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// Default query parameters.
const (
	DefaultLang  = "en"
	DefaultUnits = domain.UnitsMetric
	DefaultTTL   = 5 * time.Minute
)

// flightTimeout bounds a shared provider fetch once it no longer follows
// the caller's context.
const flightTimeout = 30 * time.Second

// Provider fetches current conditions for a coordinate.
type Provider interface {
	Current(ctx context.Context, c domain.Coordinates, lang, units string) (domain.WeatherSnapshot, error)
}

// Geocoder resolves free text to the first matching place. found is false
// when the provider has no candidate.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (place domain.Place, found bool, err error)
}

// Gateway resolves location queries to weather snapshots.
type Gateway struct {
	provider Provider
	geocoder Geocoder
	cache    Cache
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewGateway wires a gateway. A nil provider or geocoder makes the
// corresponding lookups fail with domain.ErrMisconfigured; a nil cache
// disables caching.
func NewGateway(provider Provider, geocoder Geocoder, cache Cache, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Gateway {
	if cache == nil {
		cache = NoopCache{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gateway{
		provider: provider,
		geocoder: geocoder,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns current weather for the query. Coordinate queries skip
// geocoding. The returned snapshot is a private copy.
func (g *Gateway) Resolve(ctx context.Context, q domain.LocationQuery, lang, units string) (domain.WeatherSnapshot, error) {
	snap, err := g.resolve(ctx, q, lang, units)
	if err != nil {
		g.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, err
	}
	g.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return snap, nil
}

func (g *Gateway) resolve(ctx context.Context, q domain.LocationQuery, lang, units string) (domain.WeatherSnapshot, error) {
	lang, units, err := normalizeParams(lang, units)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	place, err := g.place(ctx, q)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}
	if g.provider == nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: no weather provider credential", domain.ErrMisconfigured)
	}

	key := domain.WeatherCacheKey(place.Coordinates, lang, units)
	if snap, ok := g.cache.Get(key); ok {
		g.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return withDisplayName(snap, place.DisplayName), nil
	}
	g.metrics.WeatherCache.WithLabelValues("miss").Inc()

	// The flight is detached from any one caller so a cancel does not fail
	// the others sharing it; each caller still stops waiting on its own ctx.
	ch := g.group.DoChan(key, func() (any, error) {
		if snap, ok := g.cache.Get(key); ok {
			return snap, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		snap, err := g.provider.Current(fctx, place.Coordinates, lang, units)
		if err != nil {
			return nil, err
		}
		snap.Lang, snap.Units = lang, units
		g.cache.Put(key, snap, g.ttl)
		return snap, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		g.logger.Warn("weather fetch failed", "key", key, "error", res.Err)
		return domain.WeatherSnapshot{}, classify(res.Err)
	}
	return withDisplayName(res.Val.(domain.WeatherSnapshot).Clone(), place.DisplayName), nil
}

func (g *Gateway) place(ctx context.Context, q domain.LocationQuery) (domain.Place, error) {
	if q.Coordinates != nil {
		if err := q.Coordinates.Validate(); err != nil {
			return domain.Place{}, err
		}
		return domain.Place{Coordinates: *q.Coordinates}, nil
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return domain.Place{}, fmt.Errorf("%w: location is required", domain.ErrInvalidInput)
	}
	if g.geocoder == nil {
		return domain.Place{}, fmt.Errorf("%w: no geocoder configured", domain.ErrMisconfigured)
	}

	place, found, err := g.geocoder.Geocode(ctx, text)
	if err != nil {
		g.logger.Warn("geocode failed", "query", text, "error", err)
		return domain.Place{}, classify(err)
	}
	if !found {
		return domain.Place{}, fmt.Errorf("%w: no place matches %q", domain.ErrNotFound, text)
	}
	if err := place.Validate(); err != nil {
		return domain.Place{}, fmt.Errorf("%w: geocoder returned %s", domain.ErrUpstreamUnavailable, place.Coordinates)
	}
	return place, nil
}

func normalizeParams(lang, units string) (string, string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLang
	}
	units = strings.ToLower(strings.TrimSpace(units))
	switch units {
	case "":
		units = DefaultUnits
	case domain.UnitsMetric, domain.UnitsImperial, domain.UnitsStandard:
	default:
		return "", "", fmt.Errorf("%w: unsupported units %q", domain.ErrInvalidInput, units)
	}
	return lang, units, nil
}

func withDisplayName(snap domain.WeatherSnapshot, name string) domain.WeatherSnapshot {
	if name != "" {
		snap.DisplayName = name
	}
	return snap
}

// classify keeps caller-facing sentinels and maps everything else to
// domain.ErrUpstreamUnavailable.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrMisconfigured),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUpstreamUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
}
