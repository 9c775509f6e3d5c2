package bus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultSnapshotKey is the hash the host mirrors its userstore into
const DefaultSnapshotKey = "donathon:userstore"

// hashReader is the part of redis.Cmdable the snapshot source needs
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisSnapshotSource reads the full userstore from a Redis hash
type RedisSnapshotSource struct {
	rdb hashReader
	key string
}

// NewRedisSnapshotSource creates a snapshot source reading key
func NewRedisSnapshotSource(rdb hashReader, key string) *RedisSnapshotSource {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisSnapshotSource{rdb: rdb, key: key}
}

// Snapshot returns the current userstore. A missing hash yields an empty snapshot.
func (s *RedisSnapshotSource) Snapshot(ctx context.Context) (Snapshot, error) {
	store, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read userstore %s: %w", s.key, err)
	}
	return Snapshot{Userstore: store}, nil
}

// Load reads a snapshot and applies it through the dispatcher. An empty hash is
// not applied so defaults and prior values stay in place.
func (s *RedisSnapshotSource) Load(ctx context.Context, d *Dispatcher) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(snap.Userstore) == 0 {
		log.Info().Str("key", s.key).Msg("no userstore snapshot in redis")
		return nil
	}

	d.Apply(snap)
	log.Info().
		Str("key", s.key).
		Int("keys", len(snap.Userstore)).
		Msg("userstore snapshot loaded from redis")
	return nil
}
