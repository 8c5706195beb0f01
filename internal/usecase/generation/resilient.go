// Package generation decorates text generators with timeouts, retries and metrics.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/metrics"
)

// Kind labels what a generation call is used for.
type Kind string

const (
	// KindIntent is structured intent extraction.
	KindIntent Kind = "intent"
	// KindRewrite is query paraphrasing.
	KindRewrite Kind = "rewrite"
	// KindEnrich is offline POI metadata generation.
	KindEnrich Kind = "enrich"
)

type kindKey struct{}

// WithKind tags the context so metrics and logs carry the call kind.
func WithKind(ctx context.Context, k Kind) context.Context {
	return context.WithValue(ctx, kindKey{}, k)
}

func kindFrom(ctx context.Context) string {
	if k, ok := ctx.Value(kindKey{}).(Kind); ok {
		return string(k)
	}
	return "unknown"
}

// Options configures Resilient.
type Options struct {
	Timeout    time.Duration // per attempt, 0 = no extra deadline
	Retries    int           // additional attempts after the first
	RetryDelay time.Duration // base backoff delay
}

// Resilient wraps a Generator with a bounded per-attempt timeout and retries.
type Resilient struct {
	inner  domain.Generator
	opts   Options
	logger *zap.Logger
}

// NewResilient creates the decorator.
func NewResilient(inner domain.Generator, opts Options, logger *zap.Logger) *Resilient {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &Resilient{inner: inner, opts: opts, logger: logger}
}

// Generate implements domain.Generator.
func (r *Resilient) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	kind := kindFrom(ctx)
	log := logger.FromContext(ctx, r.logger)
	start := time.Now()

	var out string
	err := retry.Do(
		func() error {
			attemptCtx, cancel := r.attemptContext(ctx)
			defer cancel()

			res, err := r.inner.Generate(attemptCtx, p)
			if err != nil {
				return err
			}
			out = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.opts.Retries)+1),
		retry.Delay(r.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("Retrying generation",
				zap.String("kind", kind),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)

	metrics.GenerationRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "error").Inc()
		if !errors.Is(err, domain.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		}
		return "", err
	}

	metrics.GenerationRequestsTotal.WithLabelValues(kind, "success").Inc()
	return out, nil
}

// HealthCheck forwards to the inner generator when it supports health checks.
func (r *Resilient) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (r *Resilient) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}
