// Package gencache memoizes text-generation output in a local LRU backed by Redis.
package gencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain"
)

// KeyPrefix namespaces generation cache keys in Redis.
const KeyPrefix = "poisearch:gen:"

// store is the consumer interface for the remote cache level.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Generator is a domain.Generator that checks a local LRU, then Redis, then the inner generator.
type Generator struct {
	inner      domain.Generator
	store      store
	local      *expirable.LRU[string, string]
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Options configures the cache.
type Options struct {
	TTL     time.Duration
	LRUSize int
}

// New creates a caching decorator. s and cacheTotal may be nil.
// cacheTotal takes one label "result": hit_local, hit_remote, miss or invalidated.
func New(
	inner domain.Generator,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Generator {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.LRUSize <= 0 {
		opts.LRUSize = 1024
	}
	return &Generator{
		inner:      inner,
		store:      s,
		local:      expirable.NewLRU[string, string](opts.LRUSize, nil, opts.TTL),
		ttl:        opts.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	key := cacheKey(p)

	if out, ok := g.local.Get(key); ok {
		g.inc("hit_local")
		return out, nil
	}

	if out, ok := g.getRemote(ctx, key); ok {
		g.inc("hit_remote")
		g.local.Add(key, out)
		return out, nil
	}

	g.inc("miss")

	out, err := g.inner.Generate(ctx, p)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	g.local.Add(key, out)
	g.putRemote(ctx, key, out)
	return out, nil
}

// Invalidate implements domain.CacheInvalidator. Both levels are cleared.
func (g *Generator) Invalidate(ctx context.Context, p domain.Prompt) {
	key := cacheKey(p)
	g.local.Remove(key)
	g.inc("invalidated")

	if g.store == nil {
		return
	}
	if err := g.store.Del(ctx, key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		g.logger.Warn("Failed to invalidate generation cache", zap.String("key", key), zap.Error(err))
	}
}

// HealthCheck forwards to the inner generator when supported.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (g *Generator) inc(result string) {
	if g.cacheTotal != nil {
		g.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (g *Generator) getRemote(ctx context.Context, key string) (string, bool) {
	if g.store == nil {
		return "", false
	}
	data, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			g.logger.Warn("Failed to read generation cache", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (g *Generator) putRemote(ctx context.Context, key, out string) {
	if g.store == nil {
		return
	}
	if err := g.store.SetWithTTL(ctx, key, []byte(out), g.ttl); err != nil {
		g.logger.Warn("Failed to write generation cache", zap.String("key", key), zap.Error(err))
	}
}

// cacheKey hashes every prompt parameter that can change the output.
// Length prefixes keep field boundaries unambiguous.
func cacheKey(p domain.Prompt) string {
	h := sha256.New()
	for _, part := range []string{
		p.System,
		p.User,
		strconv.Itoa(p.MaxTokens),
		strconv.FormatFloat(p.Temperature, 'g', -1, 64),
	} {
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}
