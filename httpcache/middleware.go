// Package httpcache serves rendered responses from the output cache and
// stores fresh ones tagged with the entities the handler announced.
package httpcache

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-output-cache/cache"
	"github.com/goliatone/go-output-cache/displaycontrol"
	ilog "github.com/goliatone/go-output-cache/internal/log"
	"github.com/goliatone/go-output-cache/internal/metrics"
	"github.com/goliatone/go-output-cache/tagging"
)

const (
	HeaderOutputCache = "X-Output-Cache"

	StatusHit    = "HIT"
	StatusMiss   = "MISS"
	StatusBypass = "BYPASS"
)

const (
	DefaultDuration    = 10 * time.Minute
	DefaultLockTimeout = 5 * time.Second
)

// VaryFunc extracts the request dimensions that are part of the cache key.
type VaryFunc func(r *http.Request) cache.VaryContext

// Middleware caches GET responses per named route.
type Middleware struct {
	provider    cache.OutputCacheProvider
	keys        *cache.KeyBuilder
	resolver    *tagging.Resolver
	duration    time.Duration
	lockTimeout time.Duration
	vary        VaryFunc
	logger      ilog.Logger
	metrics     metrics.Interface
	now         func() time.Time
}

type Option func(*Middleware)

// WithDuration sets how long stored responses stay valid.
func WithDuration(d time.Duration) Option {
	return func(m *Middleware) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithLockTimeout bounds the wait for the population lock. Zero waits as long
// as the request context allows.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Middleware) {
		if d >= 0 {
			m.lockTimeout = d
		}
	}
}

func WithVary(fn VaryFunc) Option {
	return func(m *Middleware) {
		if fn != nil {
			m.vary = fn
		}
	}
}

func WithLogger(l ilog.Logger) Option {
	return func(m *Middleware) { m.logger = ilog.OrNop(l) }
}

func WithMetrics(mt metrics.Interface) Option {
	return func(m *Middleware) { m.metrics = metrics.OrNoop(mt) }
}

func WithClock(now func() time.Time) Option {
	return func(m *Middleware) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates the middleware. A nil keys uses the default namespace.
func New(provider cache.OutputCacheProvider, keys *cache.KeyBuilder, resolver *tagging.Resolver, opts ...Option) *Middleware {
	if keys == nil {
		keys = cache.NewKeyBuilder("")
	}
	m := &Middleware{
		provider:    provider,
		keys:        keys,
		resolver:    resolver,
		duration:    DefaultDuration,
		lockTimeout: DefaultLockTimeout,
		vary:        VaryFromHeaders,
		logger:      ilog.Nop{},
		metrics:     metrics.Noop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Keys returns the key builder, e.g. to compute RoutePrefix for purges.
func (m *Middleware) Keys() *cache.KeyBuilder { return m.keys }

// Route returns a middleware caching the wrapped handler under route name.
func (m *Middleware) Route(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				m.bypass(w, r, next, "method")
				return
			}
			m.serve(w, r, name, next)
		})
	}
}

func (m *Middleware) serve(w http.ResponseWriter, r *http.Request, route string, next http.Handler) {
	ctx := r.Context()
	key := m.keys.BuildKey(route, r.URL.Query(), m.vary(r))

	item, err := m.provider.Get(ctx, key)
	if err != nil {
		m.logger.Error("outputcache.http.get", "key", key, "error", err)
		m.bypass(w, r, next, "error")
		return
	}
	if item != nil {
		m.metrics.IncHit()
		writeItem(w, r, item)
		return
	}
	m.metrics.IncMiss()

	handle, err := m.provider.GetLock(key).Acquire(ctx, m.lockTimeout)
	if err != nil {
		m.logger.Info("outputcache.http.lock", "key", key, "error", err)
		m.bypass(w, r, next, "lock")
		return
	}
	defer func() {
		if err := handle.Release(context.WithoutCancel(ctx)); err != nil {
			m.logger.Error("outputcache.http.unlock", "key", key, "error", err)
		}
	}()

	// another request may have populated the key while we waited
	if item, err := m.provider.Get(ctx, key); err == nil && item != nil {
		m.metrics.IncHit()
		writeItem(w, r, item)
		return
	}

	dc := displaycontrol.New(m.resolver)
	rec := newRecorder(w)
	w.Header().Set(HeaderOutputCache, StatusMiss)
	next.ServeHTTP(rec, r.WithContext(displaycontrol.WithControl(ctx, dc)))

	switch {
	case r.Method == http.MethodHead:
		m.metrics.IncBypass("head")
		return
	case rec.status != http.StatusOK:
		m.metrics.IncBypass("status")
		return
	case dc.IsUncacheableRequest():
		m.metrics.IncBypass("uncacheable")
		return
	}

	tags, err := dc.AllCacheControlTags(ctx)
	if err != nil {
		m.logger.Error("outputcache.http.tags", "key", key, "route", route, "error", err)
		m.metrics.IncBypass("tags")
		return
	}

	stored := &cache.OutputCacheItem{
		RouteKey:    route,
		QueryString: r.URL.RawQuery,
		Tags:        tags,
		CachedOnUTC: m.now().UTC(),
		Duration:    m.duration,
		Content:     rec.body.String(),
		ContentType: rec.Header().Get("Content-Type"),
		Headers:     rec.storedHeaders(),
		StatusCode:  rec.status,
	}
	if err := m.provider.Set(ctx, key, stored); err != nil {
		m.logger.Error("outputcache.http.set", "key", key, "error", err)
		return
	}
	m.metrics.IncStored()
	m.logger.Debug("outputcache.http.stored", "key", key, "route", route, "tags", len(tags))
}

func (m *Middleware) bypass(w http.ResponseWriter, r *http.Request, next http.Handler, reason string) {
	m.metrics.IncBypass(reason)
	w.Header().Set(HeaderOutputCache, StatusBypass)
	next.ServeHTTP(w, r)
}

func writeItem(w http.ResponseWriter, r *http.Request, item *cache.OutputCacheItem) {
	h := w.Header()
	for k, v := range item.Headers {
		h.Set(k, v)
	}
	if item.ContentType != "" {
		h.Set("Content-Type", item.ContentType)
	}
	h.Set(HeaderOutputCache, StatusHit)

	status := item.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(item.Content))
	}
}
