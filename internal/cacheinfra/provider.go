package cacheinfra

import "github.com/goliatone/go-output-cache/cache"

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg Config, opts ...Option) (cache.OutputCacheProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderRedis:
		return NewRedisProvider(cfg, opts...)
	default:
		return NewMemoryProvider(cfg, opts...)
	}
}
