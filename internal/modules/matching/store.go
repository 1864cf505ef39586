// README: Matching store backed by Redis; per-client search generation tokens.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const generationKeyPattern = "matching:search:%s:gen"

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redis *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: redis, ttl: ttl}
}

// NextGeneration issues a new, strictly increasing token for clientKey.
func (s *Store) NextGeneration(ctx context.Context, clientKey string) (int64, error) {
	key := generationKey(clientKey)
	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// LatestGeneration returns the last issued token, 0 when none exists.
func (s *Store) LatestGeneration(ctx context.Context, clientKey string) (int64, error) {
	v, err := s.redis.Get(ctx, generationKey(clientKey)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func generationKey(clientKey string) string {
	return fmt.Sprintf(generationKeyPattern, clientKey)
}
