// README: Distance calculator, routing API first with cache, haversine fallback that never fails.
package location

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type DistanceSource string

const (
	SourceRoute     DistanceSource = "route"
	SourceCache     DistanceSource = "cache"
	SourceHaversine DistanceSource = "haversine"
)

type Distance struct {
	Km     float64        `json:"km"`
	Source DistanceSource `json:"source"`
}

// Router returns the driving distance in km between two points.
type Router interface {
	DrivingDistanceKm(ctx context.Context, origin, destination types.Point) (float64, error)
}

// RouteCache stores previously routed distances. Implementations may return
// ok=false on any miss or error.
type RouteCache interface {
	Get(ctx context.Context, origin, destination types.Point) (float64, bool)
	Put(ctx context.Context, origin, destination types.Point, km float64)
}

// SourceObserver is notified of where each computed distance came from.
type SourceObserver func(DistanceSource)

type DistanceCalculator struct {
	router   Router
	cache    RouteCache
	timeout  time.Duration
	log      *zap.Logger
	observer SourceObserver
}

// NewDistanceCalculator wires the optional router and cache; both may be nil.
func NewDistanceCalculator(router Router, cache RouteCache, timeout time.Duration, log *zap.Logger) *DistanceCalculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &DistanceCalculator{router: router, cache: cache, timeout: timeout, log: log}
}

func (c *DistanceCalculator) WithObserver(obs SourceObserver) *DistanceCalculator {
	c.observer = obs
	return c
}

// Compute prefers the routing backend and falls back to haversine when routing
// is unavailable, fails, times out, or returns no usable distance.
func (c *DistanceCalculator) Compute(ctx context.Context, origin, destination types.Point) Distance {
	d := c.compute(ctx, origin, destination)
	if c.observer != nil {
		c.observer(d.Source)
	}
	return d
}

func (c *DistanceCalculator) compute(ctx context.Context, origin, destination types.Point) Distance {
	if c.cache != nil {
		if km, ok := c.cache.Get(ctx, origin, destination); ok && usableKm(km) {
			return Distance{Km: types.Round2(km), Source: SourceCache}
		}
	}

	if c.router != nil {
		rctx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		km, err := c.router.DrivingDistanceKm(rctx, origin, destination)
		switch {
		case err != nil:
			c.log.Warn("routing failed, using haversine", zap.Error(err))
		case !usableKm(km):
			c.log.Warn("routing returned unusable distance, using haversine", zap.Float64("km", km))
		default:
			km = types.Round2(km)
			if c.cache != nil {
				c.cache.Put(ctx, origin, destination, km)
			}
			return Distance{Km: km, Source: SourceRoute}
		}
	}

	return Distance{Km: Haversine(origin, destination), Source: SourceHaversine}
}

func usableKm(km float64) bool {
	return km > 0 && !math.IsInf(km, 0) && !math.IsNaN(km)
}

// DistanceFromCity is the haversine distance from a driver's registered city to
// pickup. Unknown cities yield +Inf so they rank last. The routing API is never
// called here.
func DistanceFromCity(cityName string, pickup types.Point) float64 {
	city, ok := LookupCity(cityName)
	if !ok {
		return math.Inf(1)
	}
	return Haversine(city.Position, pickup)
}
