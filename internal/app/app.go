// Package app assembles a running docapi service from configuration: it
// opens the document store, starts the tracking sinks, builds one endpoint
// per declared resource and binds them to a router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-lang/docapi/internal/cli/config"
	"github.com/conduit-lang/docapi/internal/endpoint"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/store/mongostore"
	"github.com/conduit-lang/docapi/internal/store/sqlstore"
	"github.com/conduit-lang/docapi/internal/tracking"
	"github.com/conduit-lang/docapi/internal/verb"
	"github.com/conduit-lang/docapi/internal/web/middleware"
	"github.com/conduit-lang/docapi/internal/web/profiling"
	"github.com/conduit-lang/docapi/internal/web/ratelimit"
	"github.com/conduit-lang/docapi/internal/web/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Customizer adjusts the builder of one resource before it is built. It is
// how code attaches taps and middleware to declaratively configured
// resources.
type Customizer func(b *endpoint.Builder)

// App is a configured docapi service
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store     store.Store
	ownsStore bool
	router    *router.Router
	tracker   *tracking.Async
	redis     *redis.Client
	registry  *prometheus.Registry

	endpoints   []*endpoint.Endpoint
	customizers map[string][]Customizer
}

// Option configures an App
type Option func(*App)

// WithStore serves every resource from s instead of opening the configured
// store. The caller keeps ownership of s.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithCustomizer registers fn for the resource declared at path. The path
// is the one in the configuration, without the API prefix.
func WithCustomizer(path string, fn Customizer) Option {
	return func(a *App) {
		a.customizers[path] = append(a.customizers[path], fn)
	}
}

// New builds the service described by cfg. On failure every resource
// acquired so far is released.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:         cfg,
		logger:      logger,
		customizers: make(map[string][]Customizer),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(ctx); err != nil {
		if closeErr := a.Close(context.Background()); closeErr != nil {
			logger.Warn("failed to release resources", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	if a.store == nil {
		s, err := openStore(ctx, a.cfg.Store, a.logger.Named("store"))
		if err != nil {
			return err
		}
		a.store = s
		a.ownsStore = true
	}

	sink, err := a.trackers()
	if err != nil {
		return err
	}
	a.tracker = tracking.NewAsync(sink, a.cfg.Tracking.Workers, a.cfg.Tracking.Buffer, a.logger)
	a.tracker.Start()

	a.router = router.NewRouter()
	a.router.Use(a.ambient()...)
	router.SetupDefaultErrorHandlers(a.router, a.cfg.Server.ShowDetails)

	if a.registry != nil {
		a.router.Get(a.cfg.Tracking.Prometheus.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).
			Named("metrics")
	}

	if a.cfg.Server.Pprof {
		a.router.Mount(profiling.Path, profiling.Handler(profiling.Config{}))
	}

	var errs []error
	for _, rc := range a.cfg.Resources {
		ep, err := a.buildEndpoint(rc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.endpoints = append(a.endpoints, ep)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, ep := range a.endpoints {
		ep.Register(a.router)
	}

	a.logger.Info("application ready",
		zap.String("store", a.cfg.Store.Driver),
		zap.Int("endpoints", len(a.endpoints)),
	)
	return nil
}

// ambient returns the middleware wrapping every route
func (a *App) ambient() []middleware.Middleware {
	quiet := []middleware.Predicate{middleware.PathPrefix(profiling.Path + "/")}
	if a.registry != nil {
		quiet = append(quiet, middleware.PathEquals(a.cfg.Tracking.Prometheus.Path))
	}
	access := middleware.Unless(middleware.Or(quiet...), middleware.Logging(a.logger.Named("http")))

	mws := []middleware.Middleware{
		middleware.Recovery(a.logger),
		middleware.RequestID(),
	}
	if cc := a.cfg.Server.CORS; cc.Enabled {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cc.AllowedOrigins
		cors.AllowCredentials = cc.AllowCredentials
		cors.MaxAge = cc.MaxAge
		mws = append(mws, middleware.CORSWithConfig(cors))
	}
	return append(mws, access, middleware.Deadline(a.cfg.Server.RequestTimeout))
}

// openStore connects the store selected by cfg.Driver
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return store.NewMemory(), nil
	case "mongo", "mongodb":
		s, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.URI,
			Database: cfg.Database,
			Timeout:  cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "sqlite3":
		return openSQL(ctx, sqlstore.DriverSQLite, cfg, logger)
	case "postgres", "pgx":
		return openSQL(ctx, sqlstore.DriverPostgres, cfg, logger)
	}
	return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
}

func openSQL(ctx context.Context, driver string, cfg config.StoreConfig, logger *zap.Logger) (store.Store, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	s, err := sqlstore.Open(ctx, driver, cfg.URI, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// trackers assembles the configured sinks
func (a *App) trackers() (tracking.Tracker, error) {
	tc := a.cfg.Tracking
	var sinks tracking.Multi

	if tc.Log {
		sinks = append(sinks, tracking.NewLogger(a.logger.Named("requests")))
	}

	if tc.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     tc.Redis.Addr,
			Password: tc.Redis.Password,
			DB:       tc.Redis.DB,
		})
		rt, err := tracking.NewRedis(tracking.RedisConfig{
			Client: a.redis,
			Stream: tc.Redis.Stream,
			MaxLen: tc.Redis.MaxLen,
		})
		if err != nil {
			return nil, fmt.Errorf("redis tracker: %w", err)
		}
		sinks = append(sinks, rt)
	}

	if tc.Prometheus.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector())
		pt, err := tracking.NewPrometheus(a.registry, tc.Prometheus.Namespace)
		if err != nil {
			return nil, fmt.Errorf("prometheus tracker: %w", err)
		}
		sinks = append(sinks, pt)
	}

	if len(sinks) == 0 {
		return tracking.Nop, nil
	}
	return sinks, nil
}

// Model builds the store model declared by rc
func Model(rc config.ResourceConfig) (*store.Model, error) {
	m := store.NewModel(rc.ModelName())
	m.Collection = rc.CollectionName()

	for _, f := range rc.Fields {
		t, err := store.ParseFieldType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		m.Field(f.Name, t)
	}
	for _, ref := range rc.Refs {
		m.Reference(ref.Field, ref.Collection, ref.Many)
	}
	return m, nil
}

func (a *App) buildEndpoint(rc config.ResourceConfig) (*endpoint.Endpoint, error) {
	m, err := Model(rc)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", rc.Path, err)
	}

	opts := []endpoint.Option{
		endpoint.WithLogger(a.logger),
		endpoint.WithTracker(a.tracker),
	}
	if rc.PerPage > 0 || rc.SortField != "" {
		perPage := rc.PerPage
		if perPage == 0 {
			perPage = endpoint.DefaultPerPage
		}
		opts = append(opts, endpoint.WithPagination(perPage, rc.SortField))
	}

	b := endpoint.New(router.Join(a.cfg.Server.APIPrefix, rc.Path), m, a.store, opts...)
	if len(rc.QueryParams) > 0 {
		b.AllowQueryParam(rc.QueryParams...)
	}
	var whole []string
	for _, p := range rc.Populate {
		if len(p.Select) == 0 {
			whole = append(whole, p.Field)
			continue
		}
		b.Populate(p.Field, p.Select...)
	}
	b.PopulateEach(whole...)
	if len(rc.LimitFields) > 0 {
		b.LimitFields(rc.LimitFields...)
	}
	if len(rc.Cascade) > 0 {
		b.Cascade(rc.Cascade, nil)
	}
	if rc.BulkPost {
		b.AllowBulkPost()
	}
	if rc.RateLimit.Limit > 0 {
		limiter, err := a.limiter(rc.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", rc.Path, err)
		}
		path := rc.Path
		b.AddMiddleware(verb.All, middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limiter: limiter,
			KeyFunc: func(r *http.Request) string { return path + ":" + middleware.ClientIP(r) },
			Logger:  a.logger,
		}))
	}

	for _, fn := range a.customizers[rc.Path] {
		fn(b)
	}

	return b.Build()
}

// limiter returns a Redis limiter when a Redis client is configured, an
// in-process one otherwise
func (a *App) limiter(rl config.RateLimitConfig) (ratelimit.Limiter, error) {
	if a.redis != nil {
		return ratelimit.NewRedis(ratelimit.RedisConfig{
			Client: a.redis,
			Limit:  rl.Limit,
			Window: rl.Window,
		})
	}
	return ratelimit.NewTokenBucket(rl.Limit, rl.Window)
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Routes lists every bound route
func (a *App) Routes() []router.RouteInfo {
	return a.router.GetRoutes()
}

// Endpoints returns the built endpoints in declaration order
func (a *App) Endpoints() []*endpoint.Endpoint {
	return append([]*endpoint.Endpoint(nil), a.endpoints...)
}

// Close drains the tracking queue then releases the Redis client and the
// store. It is meant to run after the HTTP server stopped.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.tracker != nil {
		if err := a.tracker.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracking shutdown: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.store != nil && a.ownsStore {
		if err := a.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	return errors.Join(errs...)
}
