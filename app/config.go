package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"communityhub/cache"
	"communityhub/kafka"
	"communityhub/media"
	"communityhub/search"

	"github.com/spf13/viper"
)

const envPrefix = "COMMUNITY"

type APIConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
	Token   string        `mapstructure:"token"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	API           APIConfig         `mapstructure:"api"`
	Cache         cache.Config      `mapstructure:"cache"`
	Redis         cache.RedisConfig `mapstructure:"redis"`
	Kafka         kafka.Config      `mapstructure:"kafka"`
	Minio         media.Config      `mapstructure:"minio"`
	Elasticsearch search.Config     `mapstructure:"elasticsearch"`
	Server        ServerConfig      `mapstructure:"server"`
	Log           LogConfig         `mapstructure:"log"`
}

var defaults = map[string]interface{}{
	"api.baseURL":            "http://localhost:8080/api",
	"api.timeout":            "15s",
	"api.token":              "",
	"cache.backend":          cache.BackendMemory,
	"cache.ttl":              "5m",
	"cache.boltPath":         "communityhub.bolt",
	"redis.address":          "localhost:6379",
	"redis.password":         "",
	"redis.db":               0,
	"redis.namespace":        "communityhub",
	"redis.expiration":       "24h",
	"kafka.address":          "",
	"kafka.notifyTopic":      "notifications",
	"minio.address":          "",
	"minio.accessKeyID":      "",
	"minio.secretKey":        "",
	"minio.bucket":           "post-media",
	"minio.secure":           false,
	"minio.publicURL":        "",
	"elasticsearch.url":      "",
	"elasticsearch.username": "",
	"elasticsearch.password": "",
	"elasticsearch.index":    "posts",
	"server.address":         ":8002",
	"log.level":              "info",
	"log.development":        false,
}

// LoadConfig reads path (or ./config.yaml when path is empty and the file
// exists) and applies COMMUNITY_* environment overrides, e.g.
// COMMUNITY_API_BASEURL.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
