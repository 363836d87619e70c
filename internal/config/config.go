// Package config loads process settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	perr "github.com/jmgilman/go/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-output-cache/internal/cacheinfra"
)

type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	CacheProvider           string        `mapstructure:"CACHE_PROVIDER"`
	CacheCapacity           int           `mapstructure:"CACHE_CAPACITY"`
	CacheShards             int           `mapstructure:"CACHE_SHARDS"`
	CacheTTL                time.Duration `mapstructure:"CACHE_TTL"`
	CacheEvictionPercentage int           `mapstructure:"CACHE_EVICTION_PERCENTAGE"`
	CacheKeyNamespace       string        `mapstructure:"CACHE_KEY_NAMESPACE"`

	OutputCacheDuration    time.Duration `mapstructure:"OUTPUT_CACHE_DURATION"`
	OutputCacheLockTimeout time.Duration `mapstructure:"OUTPUT_CACHE_LOCK_TIMEOUT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	DBDialect string `mapstructure:"DB_DIALECT"`
	DBDSN     string `mapstructure:"DB_DSN"`

	MetricsNamespace string `mapstructure:"METRICS_NAMESPACE"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                 ":8080",
	"LOG_LEVEL":                 "info",
	"CACHE_PROVIDER":            cacheinfra.ProviderMemory,
	"CACHE_CAPACITY":            10000,
	"CACHE_SHARDS":              64,
	"CACHE_TTL":                 "1h",
	"CACHE_EVICTION_PERCENTAGE": 10,
	"CACHE_KEY_NAMESPACE":       "outputcache",
	"OUTPUT_CACHE_DURATION":     "10m",
	"OUTPUT_CACHE_LOCK_TIMEOUT": "5s",
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_DB":                  0,
	"REDIS_PASSWORD":            "",
	"DB_DIALECT":                "sqlite",
	"DB_DSN":                    "file:outputcache.db?cache=shared",
	"METRICS_NAMESPACE":         "storefront",
}

// Load reads .env when present in the working directory, then the process
// environment, and validates the result.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, perr.Wrapf(err, perr.CodeInvalidConfig, "load %s", path)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, perr.Wrap(err, perr.CodeInvalidConfig, "decode config")
	}
	cfg.CacheProvider = strings.ToLower(strings.TrimSpace(cfg.CacheProvider))
	cfg.DBDialect = strings.ToLower(strings.TrimSpace(cfg.DBDialect))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "error")),
		validation.Field(&c.CacheProvider, validation.Required, validation.In(cacheinfra.ProviderMemory, cacheinfra.ProviderRedis)),
		validation.Field(&c.CacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheShards, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CacheEvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.OutputCacheDuration, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.OutputCacheLockTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RedisAddr, validation.When(c.CacheProvider == cacheinfra.ProviderRedis, validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
		validation.Field(&c.DBDialect, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&c.DBDSN, validation.Required),
	)
	if err != nil {
		return perr.Wrap(err, perr.CodeInvalidConfig, "invalid configuration")
	}
	return nil
}

// CacheConfig maps the settings onto the provider configuration.
func (c *Config) CacheConfig() cacheinfra.Config {
	cfg := cacheinfra.DefaultConfig()
	cfg.Provider = c.CacheProvider
	cfg.Capacity = c.CacheCapacity
	cfg.NumShards = c.CacheShards
	cfg.TTL = c.CacheTTL
	cfg.EvictionPercentage = c.CacheEvictionPercentage
	cfg.Redis.Addr = c.RedisAddr
	cfg.Redis.DB = c.RedisDB
	cfg.Redis.Password = c.RedisPassword
	cfg.Redis.KeyPrefix = c.CacheKeyNamespace + ":"
	return cfg
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "http=%s log=%s cache=%s(cap=%d shards=%d ttl=%s) output=%s lock=%s db=%s",
		c.HTTPAddr, c.LogLevel, c.CacheProvider, c.CacheCapacity, c.CacheShards, c.CacheTTL,
		c.OutputCacheDuration, c.OutputCacheLockTimeout, c.DBDialect)
	if c.CacheProvider == cacheinfra.ProviderRedis {
		fmt.Fprintf(&sb, " redis=%s/%d", c.RedisAddr, c.RedisDB)
		if c.RedisPassword != "" {
			sb.WriteString(" redis_password=********")
		}
	}
	return sb.String()
}
