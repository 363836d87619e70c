package cacheinfra

import (
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
)

// Config holds the configuration for the output cache providers.
type Config struct {
	// Provider selects the backend: ProviderMemory (default) or ProviderRedis.
	Provider string

	// Capacity defines the maximum number of items the memory provider keeps.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of sturdyc shards for concurrent access.
	// Must be greater than 0. Default: 64
	NumShards int

	// TTL caps how long the memory provider keeps an item regardless of the
	// item's own Duration. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// LockLease bounds how long population locks may be held before they
	// are considered abandoned (Redis lease). Must be greater than 0.
	LockLease time.Duration

	Redis RedisConfig
}

// RedisConfig configures the Redis provider.
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
	// KeyPrefix namespaces every Redis key the provider writes.
	KeyPrefix string
	// LockRetryInterval is the polling interval while waiting for a lock.
	LockRetryInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Provider:           ProviderMemory,
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
		LockLease:          30 * time.Second,
		Redis: RedisConfig{
			Addr:              "localhost:6379",
			KeyPrefix:         "outputcache:",
			LockRetryInterval: 25 * time.Millisecond,
		},
	}
}

// ToSturdycOptions converts the Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage are passed directly to
// sturdyc.New and are not included here.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid for the selected
// provider.
func (c Config) Validate() error {
	switch c.Provider {
	case "", ProviderMemory:
		return c.validateMemory()
	case ProviderRedis:
		return c.validateRedis()
	default:
		return &ConfigError{Field: "Provider", Message: "must be one of memory, redis"}
	}
}

func (c Config) validateMemory() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

func (c Config) validateRedis() error {
	if c.Redis.Addr == "" {
		return &ConfigError{Field: "Redis.Addr", Message: "must not be empty"}
	}

	// RemoveAll scans by prefix, so an empty one would reach foreign keys.
	if strings.TrimSpace(c.Redis.KeyPrefix) == "" {
		return &ConfigError{Field: "Redis.KeyPrefix", Message: "must not be empty"}
	}

	if c.Redis.DB < 0 {
		return &ConfigError{Field: "Redis.DB", Message: "must be non-negative"}
	}

	if c.LockLease <= 0 {
		return &ConfigError{Field: "LockLease", Message: "must be greater than 0"}
	}

	if c.Redis.LockRetryInterval < 0 {
		return &ConfigError{Field: "Redis.LockRetryInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
