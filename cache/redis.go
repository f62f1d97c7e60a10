package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis"
)

// RedisStore shares the cache between gateway instances.
type RedisStore struct {
	client     *redis.Client
	namespace  string
	expiration time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Address, err)
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "communityhub"
	}
	return &RedisStore{client: client, namespace: namespace + keySep, expiration: cfg.Expiration}, nil
}

func (r *RedisStore) Get(key string) ([]byte, error) {
	val, err := r.client.Get(r.namespace + key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisStore) Set(key string, value []byte) error {
	if err := r.client.Set(r.namespace+key, value, r.expiration).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(key string) error {
	if err := r.client.Del(r.namespace + key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Keys(prefix string) ([]string, error) {
	pattern := r.namespace + globEscape(prefix) + "*"
	var keys []string
	iter := r.client.Scan(0, pattern, 100).Iterator()
	for iter.Next() {
		key := strings.TrimPrefix(iter.Val(), r.namespace)
		if matchesPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return keys, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func globEscape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
