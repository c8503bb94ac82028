package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "finledger:idem:"

// Store deduplicates balance delta requests by transaction identity using a
// SetNX reservation with a TTL.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, keyPrefix+key, "1", s.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, keyPrefix+key).Err()
}
