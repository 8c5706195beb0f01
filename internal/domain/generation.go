package domain

import "context"

// Prompt is a single text-generation request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Generator is the shared prompt-to-text contract between layers.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CacheInvalidator drops a memoized result so the next identical prompt is
// generated again. Callers use it when a reply turns out to be unusable.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, p Prompt)
}
