package cacheinfra

import (
	"time"

	ilog "github.com/goliatone/go-output-cache/internal/log"
)

// Option customizes a provider.
type Option func(*providerOptions)

type providerOptions struct {
	logger ilog.Logger
	now    func() time.Time
}

func applyOptions(opts []Option) providerOptions {
	o := providerOptions{logger: ilog.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the provider logger.
func WithLogger(l ilog.Logger) Option {
	return func(o *providerOptions) { o.logger = ilog.OrNop(l) }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *providerOptions) {
		if now != nil {
			o.now = now
		}
	}
}
