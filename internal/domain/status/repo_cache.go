package status

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const cacheKey = "statusboard:status:catalog"

// cachedRepo is a read-through Redis cache in front of another Repository.
// Redis being unavailable degrades to the backing store, never to an error.
type cachedRepo struct {
	next   Repository
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedRepo(next Repository, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) Repository {
	return &cachedRepo{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (r *cachedRepo) ListOrdered(ctx context.Context) ([]*Definition, error) {
	raw, err := r.rdb.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var defs []*Definition
		if jerr := json.Unmarshal(raw, &defs); jerr == nil {
			return defs, nil
		}
		r.logger.Warn().Str("key", cacheKey).Msg("discarding undecodable status cache entry")
	case err != redis.Nil:
		r.logger.Warn().Err(err).Msg("status cache read failed")
	}

	defs, err := r.next.ListOrdered(ctx)
	if err != nil {
		return nil, err
	}
	// An empty catalog is not cached so seeding becomes visible immediately.
	if len(defs) == 0 {
		return defs, nil
	}
	if b, jerr := json.Marshal(defs); jerr == nil {
		if serr := r.rdb.Set(ctx, cacheKey, b, r.ttl).Err(); serr != nil {
			r.logger.Warn().Err(serr).Msg("status cache write failed")
		}
	}
	return defs, nil
}

func (r *cachedRepo) Count(ctx context.Context) (int, error) {
	return r.next.Count(ctx)
}

func (r *cachedRepo) InsertAll(ctx context.Context, defs []*Definition) error {
	if err := r.next.InsertAll(ctx, defs); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, cacheKey).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("status cache invalidation failed")
	}
	return nil
}
