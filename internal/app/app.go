package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signalboard/internal/backend"
	"github.com/newthinker/signalboard/internal/config"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/explain"
	"github.com/newthinker/signalboard/internal/metrics"
	"github.com/newthinker/signalboard/internal/render"
	"github.com/newthinker/signalboard/internal/signal"
)

// App wires the backend client, the optional payload cache, the
// explanation resolver and the region board, and keeps the watched
// regions refreshed.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry

	client   *backend.Client
	source   backend.Source
	store    *backend.RedisStore
	resolver *explain.Resolver
	board    *render.Board

	mu       sync.RWMutex
	watched  []config.WatchRegion
	interval time.Duration
	running  bool
	cancel   context.CancelFunc
}

// New creates a new App instance. Components are built in dependency
// order: client, cache, resolver, board.
func New(cfg *config.Config, logger *zap.Logger) *App {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := metrics.NewRegistry()

	client := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger.Named("backend")))

	a := &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  reg,
		client:   client,
		source:   client,
		watched:  append([]config.WatchRegion(nil), cfg.Watch.Regions...),
		interval: cfg.Watch.Interval,
	}

	if cfg.Cache.Enabled {
		a.store = backend.NewRedisStore(backend.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		a.source = backend.NewCachedSource(client, a.store, cfg.Cache.TTL, logger.Named("cache"))
	}

	a.resolver = explain.NewResolver(client, explain.Config{
		DefaultTimeframe: cfg.Backend.DefaultTimeframe,
		FailedMessage:    cfg.UI.ExplainFailedMessage,
	}, reg, logger.Named("explain"))

	segmenter := signal.NewSegmenter(signal.Defaults{
		EntryThreshold: cfg.Signal.DefaultEntryThreshold,
		MinSupport:     cfg.Signal.DefaultMinSupport,
	})
	a.board = render.NewBoard(
		render.BoardConfig{Drawable: true, Placeholder: cfg.UI.ExplainPlaceholder},
		render.DefaultSteps(segmenter),
		render.NewSession(cfg.Backend.DefaultTimeframe),
		a.resolver, reg, logger.Named("render"))

	return a
}

// Board returns the region board.
func (a *App) Board() *render.Board { return a.board }

// Source returns the analysis source, cached when the cache is enabled.
func (a *App) Source() backend.Source { return a.source }

// Client returns the raw backend client.
func (a *App) Client() *backend.Client { return a.client }

// Resolver returns the explanation resolver.
func (a *App) Resolver() *explain.Resolver { return a.resolver }

// Metrics returns the metrics registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// CheckCache pings redis when the cache is enabled.
func (a *App) CheckCache(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Ping(ctx)
}

// Watch replaces the watched regions.
func (a *App) Watch(regions []config.WatchRegion) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watched = append([]config.WatchRegion(nil), regions...)
}

// Watched returns the watched regions.
func (a *App) Watched() []config.WatchRegion {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]config.WatchRegion(nil), a.watched...)
}

// SetInterval sets the refresh interval
func (a *App) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

// Start renders the watched regions and re-renders them every interval
// until ctx is done or Stop is called. A zero interval renders once.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	interval := a.interval
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Info("signalboard refresh loop starting",
		zap.Int("regions", len(a.Watched())),
		zap.Duration("interval", interval))

	a.RunOnce(ctx)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("signalboard refresh loop stopping")
			return ctx.Err()
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// Stop stops the refresh loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce refreshes every watched region. A region whose bundle did not
// change keeps its explanation; a failing region keeps its previous panels
// and does not stop the others.
func (a *App) RunOnce(ctx context.Context) {
	regions := a.Watched()
	if len(regions) == 0 {
		a.logger.Debug("no watched regions")
		return
	}

	for _, w := range regions {
		if ctx.Err() != nil {
			return
		}
		opts := render.Options{Context: core.RenderContext{Symbol: w.Symbol, Timeframe: w.Timeframe}}
		if _, _, err := a.board.Refresh(ctx, a.source, w.ID, a.cfg.Backend.DefaultLimit, opts); err != nil {
			a.logger.Warn("refreshing region failed", zap.String("region", w.ID), zap.Error(err))
		}
	}
}

// Close releases the cache connection.
func (a *App) Close() error {
	a.Stop()
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	return nil
}
