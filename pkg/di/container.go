package di

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/cache"
	"github.com/goliatone/go-output-cache/displaycontrol"
	"github.com/goliatone/go-output-cache/httpcache"
	"github.com/goliatone/go-output-cache/internal/cacheinfra"
	ilog "github.com/goliatone/go-output-cache/internal/log"
	"github.com/goliatone/go-output-cache/internal/metrics"
	"github.com/goliatone/go-output-cache/invalidation"
	"github.com/goliatone/go-output-cache/tagging"
)

// Container wires the output cache components. Every component is created
// once; NewDisplayControl hands out a fresh control per request.
type Container struct {
	config     cacheinfra.Config
	provider   cache.OutputCacheProvider
	registry   *tagging.Registry
	resolver   *tagging.Resolver
	dispatcher *invalidation.Dispatcher
	keys       *cache.KeyBuilder
	middleware *httpcache.Middleware
	hook       *invalidation.QueryHook
	logger     ilog.Logger
	metrics    metrics.Interface
}

type options struct {
	logger         ilog.Logger
	metrics        metrics.Interface
	lookup         tagging.Lookup
	registry       *tagging.Registry
	provider       cache.OutputCacheProvider
	keyNamespace   string
	ignoredParams  []string
	middlewareOpts []httpcache.Option
}

type Option func(*options)

func WithLogger(l ilog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m metrics.Interface) Option {
	return func(o *options) { o.metrics = m }
}

// WithLookup sets the store used by handlers that need related rows.
func WithLookup(l tagging.Lookup) Option {
	return func(o *options) { o.lookup = l }
}

// WithRegistry replaces the default handler registry.
func WithRegistry(reg *tagging.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithProvider uses p instead of building one from the configuration.
func WithProvider(p cache.OutputCacheProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithKeyNamespace sets the key namespace and query parameters left out of keys.
func WithKeyNamespace(namespace string, ignoredParams ...string) Option {
	return func(o *options) {
		o.keyNamespace = namespace
		o.ignoredParams = ignoredParams
	}
}

func WithMiddlewareOptions(opts ...httpcache.Option) Option {
	return func(o *options) { o.middlewareOpts = append(o.middlewareOpts, opts...) }
}

// NewContainer creates a container for config. The provider is built with
// cacheinfra.NewProvider unless WithProvider is given.
func NewContainer(config cacheinfra.Config, opts ...Option) (*Container, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := ilog.OrNop(o.logger)
	m := metrics.OrNoop(o.metrics)

	provider := o.provider
	if provider == nil {
		var err error
		provider, err = cacheinfra.NewProvider(config, cacheinfra.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	registry := o.registry
	if registry == nil {
		registry = tagging.NewDefaultRegistry()
	}
	resolver := tagging.NewResolver(registry, o.lookup, tagging.WithResolverLogger(logger))
	dispatcher := invalidation.NewDispatcher(provider, resolver,
		invalidation.WithLogger(logger),
		invalidation.WithMetrics(m),
	)
	keys := cache.NewKeyBuilder(o.keyNamespace, o.ignoredParams...)

	mwOpts := append([]httpcache.Option{
		httpcache.WithLogger(logger),
		httpcache.WithMetrics(m),
	}, o.middlewareOpts...)

	return &Container{
		config:     config,
		provider:   provider,
		registry:   registry,
		resolver:   resolver,
		dispatcher: dispatcher,
		keys:       keys,
		middleware: httpcache.New(provider, keys, resolver, mwOpts...),
		hook:       invalidation.NewQueryHook(dispatcher, logger),
		logger:     logger,
		metrics:    m,
	}, nil
}

// NewContainerWithDefaults creates a container with the default memory provider.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cacheinfra.DefaultConfig(), opts...)
}

func (c *Container) Provider() cache.OutputCacheProvider { return c.provider }
func (c *Container) Registry() *tagging.Registry { return c.registry }
func (c *Container) Resolver() *tagging.Resolver { return c.resolver }
func (c *Container) Dispatcher() *invalidation.Dispatcher { return c.dispatcher }
func (c *Container) KeyBuilder() *cache.KeyBuilder { return c.keys }
func (c *Container) Middleware() *httpcache.Middleware { return c.middleware }
func (c *Container) QueryHook() *invalidation.QueryHook { return c.hook }
func (c *Container) Logger() ilog.Logger { return c.logger }
func (c *Container) Metrics() metrics.Interface { return c.metrics }
func (c *Container) Config() cacheinfra.Config { return c.config }

// Admin returns JSON handlers for listing and purging the cache.
func (c *Container) Admin() *httpcache.Admin {
	return httpcache.NewAdmin(c.provider, c.keys, c.logger, c.metrics)
}

// NewDisplayControl returns a control for one request.
func (c *Container) NewDisplayControl() *displaycontrol.DisplayControl {
	return displaycontrol.New(c.resolver)
}

// AttachTo registers the invalidation hook on db.
func (c *Container) AttachTo(db *bun.DB) {
	db.AddQueryHook(c.hook)
}

// NewObservedRepository wraps base so successful writes invalidate the
// output cache.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewObservedRepository[*entity.Product](container, productRepository)
func NewObservedRepository[T any](container *Container, base repository.Repository[T]) *invalidation.ObservedRepository[T] {
	return invalidation.NewObservedRepository(base, container.dispatcher, container.logger)
}
