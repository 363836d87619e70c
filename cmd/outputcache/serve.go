package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	perr "github.com/jmgilman/go/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/cache"
	"github.com/goliatone/go-output-cache/entity"
	"github.com/goliatone/go-output-cache/httpcache"
	"github.com/goliatone/go-output-cache/internal/catalogdb"
	"github.com/goliatone/go-output-cache/internal/config"
	ilog "github.com/goliatone/go-output-cache/internal/log"
	"github.com/goliatone/go-output-cache/internal/metrics"
	"github.com/goliatone/go-output-cache/pkg/di"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo storefront behind the output cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "seed the demo catalog when the database is empty")
	return cmd
}

// app holds everything serve builds, so tests can drive the router without
// a listener.
type app struct {
	db        *bun.DB
	container *di.Container
	handler   http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger ilog.Logger, reg *prometheus.Registry, seed bool) (*app, error) {
	db, err := catalogdb.Open(cfg.DBDialect, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := prepareCatalog(ctx, db, seed); err != nil {
		_ = db.Close()
		return nil, err
	}

	var m metrics.Interface = metrics.NewSimple()
	if reg != nil {
		m = metrics.NewProm(cfg.MetricsNamespace, reg)
	}

	c, err := di.NewContainer(cfg.CacheConfig(),
		di.WithLogger(logger),
		di.WithMetrics(m),
		di.WithLookup(catalogdb.NewStore(db)),
		di.WithKeyNamespace(cfg.CacheKeyNamespace),
		di.WithMiddlewareOptions(
			httpcache.WithDuration(cfg.OutputCacheDuration),
			httpcache.WithLockTimeout(cfg.OutputCacheLockTimeout),
		),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.AttachTo(db)

	c.Dispatcher().ObserveSetting(SettingPageSize, func(ctx context.Context, s *entity.Setting, p cache.OutputCacheProvider) error {
		n, err := p.InvalidateByRoute(ctx, RouteCategory)
		if err != nil {
			return err
		}
		logger.Info("outputcache.setting.page_size", "value", s.Value, "removed", n)
		return nil
	})

	return &app{
		db:        db,
		container: c,
		handler:   newRouter(c, newStorefront(db, logger), reg),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func prepareCatalog(ctx context.Context, db *bun.DB, seed bool) error {
	if err := catalogdb.CreateSchema(ctx, db); err != nil {
		return err
	}
	if !seed {
		return nil
	}
	n, err := db.NewSelect().Model((*entity.Product)(nil)).Count(ctx)
	if err != nil {
		return perr.Wrap(err, perr.CodeDatabase, "count products")
	}
	if n > 0 {
		return nil
	}
	demo, err := catalogdb.DemoCatalog()
	if err != nil {
		return err
	}
	return catalogdb.Seed(ctx, db, demo)
}

func serve(parent context.Context, cfg *config.Config, seed bool) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := ilog.New(cfg.LogLevel)
	logger.Info("outputcache.config", "config", cfg.String())

	reg := prometheus.NewRegistry()
	a, err := newApp(parent, cfg, logger, reg, seed)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("outputcache.http.start", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("outputcache.http.shutdown_signal")
	case serveErr = <-errCh:
		logger.Error("outputcache.http.error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("outputcache.http.shutdown", "error", err)
		return err
	}
	logger.Info("outputcache.http.stopped")
	return serveErr
}
