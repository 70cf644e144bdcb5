package providers

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
	"viewguard/internal/keys"
	"viewguard/internal/structures"
)

// KeyStoreInterface is the keyed store used for tokens, dedup markers and
// windowed counters. Every key must come from the keys package.
type KeyStoreInterface interface {
	Get(ctx context.Context, key keys.Key) (string, bool, error)
	Set(ctx context.Context, key keys.Key, value string, ttl time.Duration) error
	// SetNX stores value only when the key is absent and reports whether it did.
	SetNX(ctx context.Context, key keys.Key, value string, ttl time.Duration) (bool, error)
	// IncrWindow increments the counter and starts its expiry on the first hit.
	IncrWindow(ctx context.Context, key keys.Key, window time.Duration) (int64, error)
	Del(ctx context.Context, key keys.Key) error
	Ping(ctx context.Context) error
	Close() error
}

var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

type RedisKeyStore struct {
	client *redis.Client
}

func NewRedisKeyStore(client *redis.Client) *RedisKeyStore {
	return &RedisKeyStore{client: client}
}

// NewKeyStoreProvider builds the shared redis client. The returned cleanup closes it.
func NewKeyStoreProvider(conf *structures.Config, logger Logger) (KeyStoreInterface, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  conf.Redis.DialTimeout,
		ReadTimeout:  conf.Redis.ReadTimeout,
		WriteTimeout: conf.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", conf.Redis.Addr, err)
	}

	logger.Infof(TypeApp, "Connected to redis at %s (db %d)", conf.Redis.Addr, conf.Redis.DB)

	store := NewRedisKeyStore(client)
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Errorf(TypeApp, "Failed to close redis client: %v", err)
		}
	}
	return store, cleanup, nil
}

func (s *RedisKeyStore) Get(ctx context.Context, key keys.Key) (string, bool, error) {
	val, err := s.client.Get(ctx, key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisKeyStore) Set(ctx context.Context, key keys.Key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key.String(), value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisKeyStore) SetNX(ctx context.Context, key keys.Key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key.String(), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisKeyStore) IncrWindow(ctx context.Context, key keys.Key, window time.Duration) (int64, error) {
	count, err := incrWindowScript.Run(ctx, s.client, []string{key.String()}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return count, nil
}

func (s *RedisKeyStore) Del(ctx context.Context, key keys.Key) error {
	if err := s.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (s *RedisKeyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisKeyStore) Close() error {
	return s.client.Close()
}
