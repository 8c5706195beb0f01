package health

import (
	"context"
	"sync"
	"time"
)

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every component answered.
	Healthy Status = "ok"
	// Degraded means at least one component failed.
	Degraded Status = "degraded"
)

// CheckResult is a single component outcome.
type CheckResult string

const (
	// CheckOK is a passing check.
	CheckOK CheckResult = "ok"
	// CheckError is a failing check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentDatabase   = "database"
	ComponentGeneration = "generation"
)

// Report aggregates check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs health checks.
type Service struct {
	db         DBPinger
	generation GenerationChecker
	timeout    time.Duration
}

// New creates a Service. generation may be nil; timeout bounds each check (0 = none).
func New(db DBPinger, generation GenerationChecker, timeout time.Duration) *Service {
	return &Service{db: db, generation: generation, timeout: timeout}
}

// Check probes every component concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, 2)
	)
	run := func(name string, probe func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckOK
			if err := s.probe(ctx, probe); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}

	run(ComponentDatabase, s.db.Ping)
	if s.generation != nil {
		run(ComponentGeneration, s.generation.HealthCheck)
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return fn(ctx)
}
