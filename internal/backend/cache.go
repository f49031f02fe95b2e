package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/newthinker/signalboard/internal/analysis"
)

// Store is a byte cache with expiry.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisConfig addresses a redis instance.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a Store backed by redis.
type RedisStore struct {
	cli *redis.Client
}

// NewRedisStore connects to redis lazily; the first command dials.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisStore{cli: rdb}
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisStore) Close() error {
	return r.cli.Close()
}

func (r *RedisStore) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cli.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, key, value, ttl).Err()
}

// CachedSource serves analysis bundles from a Store before asking the
// backend. Entries hold the response body as received, so a hit decodes
// exactly what a miss would. Cache failures never fail a fetch.
type CachedSource struct {
	next   RawSource
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps next with a short-lived cache.
func NewCachedSource(next RawSource, store Store, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{next: next, store: store, ttl: ttl, logger: logger}
}

func cacheKey(symbol, timeframe string, limit int) string {
	return fmt.Sprintf("signalboard:analysis:%s:%s:%d", symbol, timeframe, limit)
}

// Analysis implements Source.
func (c *CachedSource) Analysis(ctx context.Context, symbol, timeframe string, limit int) (*analysis.Payload, error) {
	key := cacheKey(symbol, timeframe, limit)

	if b, ok, err := c.store.GetBytes(ctx, key); err != nil {
		c.logger.Warn("analysis cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if p, err := analysis.Decode(bytes.NewReader(b)); err == nil {
			return p, nil
		}
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key))
	}

	b, err := c.next.AnalysisBytes(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	p, err := analysis.Decode(bytes.NewReader(b))
	if err != nil {
		c.logger.Warn("decoding analysis failed",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Error(err))
		return nil, err
	}

	if err := c.store.SetBytes(ctx, key, b, c.ttl); err != nil {
		c.logger.Warn("analysis cache write failed", zap.String("key", key), zap.Error(err))
	}
	return p, nil
}
