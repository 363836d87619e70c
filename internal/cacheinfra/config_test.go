package cacheinfra

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider != ProviderMemory {
		t.Errorf("expected Provider to be %q, got %q", ProviderMemory, cfg.Provider)
	}

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}

	if cfg.TTL != time.Hour {
		t.Errorf("expected TTL to be 1h, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.LockLease != 30*time.Second {
		t.Errorf("expected LockLease to be 30s, got %v", cfg.LockLease)
	}

	if cfg.Redis.KeyPrefix != "outputcache:" {
		t.Errorf("expected Redis.KeyPrefix to be outputcache:, got %q", cfg.Redis.KeyPrefix)
	}
}

func TestConfig_Validate(t *testing.T) {
	redisCfg := DefaultConfig()
	redisCfg.Provider = ProviderRedis

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
		field     string
	}{
		{
			name:      "valid default config",
			mutate:    func(*Config) {},
			wantError: false,
		},
		{
			name:      "empty provider means memory",
			mutate:    func(c *Config) { c.Provider = "" },
			wantError: false,
		},
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.Provider = "memcached" },
			wantError: true,
			field:     "Provider",
		},
		{
			name:      "invalid capacity - zero",
			mutate:    func(c *Config) { c.Capacity = 0 },
			wantError: true,
			field:     "Capacity",
		},
		{
			name:      "invalid shards - negative",
			mutate:    func(c *Config) { c.NumShards = -1 },
			wantError: true,
			field:     "NumShards",
		},
		{
			name:      "invalid ttl - zero",
			mutate:    func(c *Config) { c.TTL = 0 },
			wantError: true,
			field:     "TTL",
		},
		{
			name:      "invalid eviction percentage - over 100",
			mutate:    func(c *Config) { c.EvictionPercentage = 101 },
			wantError: true,
			field:     "EvictionPercentage",
		},
		{
			name:      "invalid eviction interval - negative",
			mutate:    func(c *Config) { c.EvictionInterval = -time.Second },
			wantError: true,
			field:     "EvictionInterval",
		},
		{
			name: "redis ignores memory sizing",
			mutate: func(c *Config) {
				*c = redisCfg
				c.Capacity = 0
			},
			wantError: false,
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				*c = redisCfg
				c.Redis.Addr = ""
			},
			wantError: true,
			field:     "Redis.Addr",
		},
		{
			name: "redis without key prefix",
			mutate: func(c *Config) {
				*c = redisCfg
				c.Redis.KeyPrefix = ""
			},
			wantError: true,
			field:     "Redis.KeyPrefix",
		},
		{
			name: "redis with blank key prefix",
			mutate: func(c *Config) {
				*c = redisCfg
				c.Redis.KeyPrefix = "  "
			},
			wantError: true,
			field:     "Redis.KeyPrefix",
		},
		{
			name: "redis without lock lease",
			mutate: func(c *Config) {
				*c = redisCfg
				c.LockLease = 0
			},
			wantError: true,
			field:     "LockLease",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !tt.wantError {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TestField", Message: "test message"}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if opts := cfg.ToSturdycOptions(); len(opts) != 0 {
		t.Errorf("expected no options for default config, got %d", len(opts))
	}

	cfg.EvictionInterval = time.Minute
	if opts := cfg.ToSturdycOptions(); len(opts) != 1 {
		t.Errorf("expected eviction interval option, got %d options", len(opts))
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := p.(*MemoryProvider); !ok {
		t.Errorf("expected *MemoryProvider, got %T", p)
	}

	bad := DefaultConfig()
	bad.Provider = "bogus"
	if _, err := NewProvider(bad); err == nil || !strings.Contains(err.Error(), "Provider") {
		t.Errorf("expected provider config error, got %v", err)
	}
}
