package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	"github.com/kailas-cloud/poisearch/internal/domain/poi"
	"github.com/kailas-cloud/poisearch/internal/domain/search/request"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/metrics"
	"github.com/kailas-cloud/poisearch/internal/usecase/recall"
)

// Result is the outcome of one search.
type Result struct {
	Intent   intent.Intent
	Rewrites []string
	POIs     []poi.Candidate
}

// Service runs analyze/rewrite, plan, recall, merge and rank.
type Service struct {
	analyzer IntentAnalyzer
	rewriter QueryRewriter
	executor Executor
	ranker   Ranker
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a search service.
func New(a IntentAnalyzer, rw QueryRewriter, ex Executor, rk Ranker, logger *zap.Logger) *Service {
	return &Service{analyzer: a, rewriter: rw, executor: ex, ranker: rk, logger: logger}
}

// WithTimeout bounds every Search call by d. Zero disables the bound.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Search executes the full pipeline. Generation and backend failures degrade to
// fallbacks and empty lists; only a cancelled or expired context fails the call.
func (s *Service) Search(ctx context.Context, req request.Request) (Result, error) {
	log := logger.FromContext(ctx, s.logger)
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		in       intent.Intent
		rewrites []string
		g        errgroup.Group
	)
	g.Go(func() error {
		in = s.analyzer.Analyze(ctx, req.Query())
		return nil
	})
	g.Go(func() error {
		rewrites = s.rewriter.Rewrite(ctx, req.Query())
		return nil
	})
	_ = g.Wait()

	if rewrites == nil {
		rewrites = []string{}
	}
	res := Result{Intent: in, Rewrites: rewrites, POIs: []poi.Candidate{}}
	analyzed := time.Since(start)

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	if !in.HasSignal() && len(rewrites) == 0 {
		log.Debug("No recall signal, skipping backend", zap.String("query", req.Query()))
		return res, nil
	}
	tasks := recall.Plan(in, rewrites)

	lists := s.executor.Execute(ctx, tasks, recall.Scope{
		Origin:   req.Origin(),
		RadiusKm: req.RadiusKm(),
		Category: in.CategoryValue(),
	})
	merged := recall.Merge(lists)
	metrics.MergedCandidates.Observe(float64(len(merged)))

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	if len(merged) > 0 {
		res.POIs = s.ranker.Rank(merged, req.Origin(), in.SortPreference)
	}

	log.Debug("Search completed",
		zap.Int("tasks", len(tasks)),
		zap.Int("merged", len(merged)),
		zap.Int("returned", len(res.POIs)),
		zap.String("sort_preference", string(in.SortPreference)),
		zap.Duration("analysis", analyzed),
		zap.Duration("total", time.Since(start)),
	)
	return res, nil
}
