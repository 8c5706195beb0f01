package health

import "context"

// DBPinger checks search backend availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// GenerationChecker checks text-generation provider availability.
type GenerationChecker interface {
	HealthCheck(ctx context.Context) error
}
