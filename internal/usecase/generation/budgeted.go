package generation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/metrics"
)

// Budgeted gates a Generator behind a call Budget.
type Budgeted struct {
	inner  domain.Generator
	budget *Budget
	logger *zap.Logger
}

// NewBudgeted creates the decorator.
func NewBudgeted(inner domain.Generator, budget *Budget, logger *zap.Logger) *Budgeted {
	return &Budgeted{inner: inner, budget: budget, logger: logger}
}

// Generate implements domain.Generator. Only successful calls are counted.
func (b *Budgeted) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	if err := b.budget.Check(); err != nil {
		kind := kindFrom(ctx)
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "rejected").Inc()
		logger.FromContext(ctx, b.logger).Debug("Generation rejected by budget", zap.String("kind", kind))
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	out, err := b.inner.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	b.budget.Record(ctx)
	return out, nil
}

// HealthCheck forwards to the inner generator when it supports health checks.
func (b *Budgeted) HealthCheck(ctx context.Context) error {
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
