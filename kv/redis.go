package kv

import (
	"context"
	"crypto/tls"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "patio:"

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(ctx context.Context, address string, useTLS bool) (*RedisStore, error) {
	options := &redis.Options{
		Addr: address,
	}
	if useTLS {
		// Managed endpoints (ElastiCache, Upstash) require TLS
		options.TLSConfig = &tls.Config{}
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, redisKey(key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
