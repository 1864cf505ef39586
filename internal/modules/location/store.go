// README: Route distance cache backed by Redis, keyed by the geohash of both endpoints.
package location

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

const routeKeyPrecision = 7

// Store caches routed distances. Errors are logged and reported as misses.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewStore(redis *redis.Client, ttl time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{redis: redis, ttl: ttl, log: log}
}

func routeKey(origin, destination types.Point) string {
	return fmt.Sprintf("location:route:%s:%s",
		geohash.EncodeWithPrecision(origin.Lat, origin.Lng, routeKeyPrecision),
		geohash.EncodeWithPrecision(destination.Lat, destination.Lng, routeKeyPrecision))
}

func (s *Store) Get(ctx context.Context, origin, destination types.Point) (float64, bool) {
	val, err := s.redis.Get(ctx, routeKey(origin, destination)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		s.log.Debug("route cache get failed", zap.Error(err))
		return 0, false
	}
	km, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return km, true
}

func (s *Store) Put(ctx context.Context, origin, destination types.Point, km float64) {
	val := strconv.FormatFloat(km, 'f', 2, 64)
	if err := s.redis.Set(ctx, routeKey(origin, destination), val, s.ttl).Err(); err != nil {
		s.log.Debug("route cache put failed", zap.Error(err))
	}
}
