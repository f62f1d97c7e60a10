package cache

import (
	"fmt"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

type Config struct {
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	BoltPath string        `mapstructure:"boltPath"`
}

type RedisConfig struct {
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Namespace  string        `mapstructure:"namespace"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// OpenStore builds the backend named by cfg.Backend.
func OpenStore(cfg Config, redisCfg RedisConfig) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(redisCfg)
	case BackendBolt:
		if cfg.BoltPath == "" {
			return nil, fmt.Errorf("cache backend %q needs boltPath", cfg.Backend)
		}
		return NewBoltStore(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
