package recall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/poi"
	domrecall "github.com/kailas-cloud/poisearch/internal/domain/recall"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/metrics"
)

// Boosts are per-clause weights.
type Boosts struct {
	Phrase   float64
	Keyword  float64
	Info     float64
	Name     float64
	Address  float64
	Rewrite  float64
	Category float64
}

// DefaultBoosts mirrors the shipped configuration.
var DefaultBoosts = Boosts{
	Phrase:   5.0,
	Keyword:  2.0,
	Info:     1.5,
	Name:     1.5,
	Address:  1.2,
	Rewrite:  1.2,
	Category: 2.0,
}

// ExecutorConfig tunes sub-query dispatch.
type ExecutorConfig struct {
	Boosts         Boosts
	Size           int
	DedupPrecision int
	Timeout        time.Duration // per attempt, 0 = none
	Retries        int
	RetryDelay     time.Duration
	MaxParallel    int // 0 = unlimited
	Scorer         string
}

// Scope is the request-level context shared by every task.
type Scope struct {
	Origin   geo.Point
	RadiusKm float64
	Category string
}

// Executor runs sub-query tasks concurrently against a Searcher.
type Executor struct {
	searcher Searcher
	cfg      ExecutorConfig
	logger   *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(s Searcher, cfg ExecutorConfig, logger *zap.Logger) *Executor {
	if cfg.Size <= 0 {
		cfg.Size = 10
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 50 * time.Millisecond
	}
	return &Executor{searcher: s, cfg: cfg, logger: logger}
}

// Execute runs every task and returns one hit list per task, in task order.
// A failing task contributes an empty list and never affects its siblings.
func (e *Executor) Execute(ctx context.Context, tasks []domrecall.Task, scope Scope) [][]poi.Candidate {
	results := make([][]poi.Candidate, len(tasks))

	var g errgroup.Group
	if e.cfg.MaxParallel > 0 {
		g.SetLimit(e.cfg.MaxParallel)
	}
	for i := range tasks {
		g.Go(func() error {
			results[i] = e.run(ctx, tasks[i], scope)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Executor) run(ctx context.Context, task domrecall.Task, scope Scope) []poi.Candidate {
	log := logger.FromContext(ctx, e.logger)
	strategy := string(task.Strategy)
	start := time.Now()

	hits, err := e.search(ctx, task, scope)

	metrics.SubqueryDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SubqueriesTotal.WithLabelValues(strategy, "error").Inc()
		log.Warn("Recall sub-query failed",
			zap.String("strategy", strategy),
			zap.String("source", task.Source),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return []poi.Candidate{}
	}
	metrics.SubqueriesTotal.WithLabelValues(strategy, "success").Inc()

	out := e.dedup(hits)
	for i := range out {
		out[i].RecallSource = poi.NewProvenance(task.Source)
		out[i].SetDistanceFrom(scope.Origin)
	}

	log.Debug("Recall sub-query completed",
		zap.String("strategy", strategy),
		zap.String("source", task.Source),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(out)),
		zap.Duration("duration", time.Since(start)),
	)
	return out
}

func (e *Executor) search(ctx context.Context, task domrecall.Task, scope Scope) ([]poi.Candidate, error) {
	q, err := e.BuildQuery(task, scope)
	if err != nil {
		return nil, err
	}

	var hits []poi.Candidate
	err = retry.Do(
		func() error {
			attemptCtx, cancel := e.attemptContext(ctx)
			defer cancel()

			res, err := e.searcher.Search(attemptCtx, q)
			if err != nil {
				return err
			}
			hits = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(e.cfg.Retries)+1),
		retry.Delay(e.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
	)
	return hits, err
}

// retryable excludes errors another attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, db.ErrUnsatisfiable) && !errors.Is(err, db.ErrIndexNotFound)
}

func (e *Executor) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

// dedup drops repeated ids, then repeated content fingerprints. First wins.
func (e *Executor) dedup(hits []poi.Candidate) []poi.Candidate {
	out := make([]poi.Candidate, 0, len(hits))
	ids := make(map[string]struct{}, len(hits))
	prints := make(map[string]struct{}, len(hits))

	for i := range hits {
		if _, dup := ids[hits[i].ID]; dup {
			continue
		}
		ids[hits[i].ID] = struct{}{}

		if fp, ok := hits[i].Fingerprint(e.cfg.DedupPrecision); ok {
			if _, dup := prints[fp]; dup {
				continue
			}
			prints[fp] = struct{}{}
		}
		out = append(out, hits[i])
	}
	return out
}

// BuildQuery compiles a task into a geo-filtered boolean query.
func (e *Executor) BuildQuery(task domrecall.Task, scope Scope) (db.BoolQuery, error) {
	b := e.cfg.Boosts
	var should []db.Clause
	msm := 1

	switch task.Strategy {
	case domrecall.StrategyPhrases:
		for _, p := range task.Terms {
			should = append(should, db.Clause{Kind: db.ClausePhrase, Field: "key_phrases", Value: p, Boost: b.Phrase})
		}
		msm = aggregateMinMatch(len(task.Terms))
	case domrecall.StrategyKeywords:
		for _, k := range task.Terms {
			should = append(should, db.Clause{Kind: db.ClauseMatch, Field: "keywords", Value: k, Boost: b.Keyword})
		}
		msm = aggregateMinMatch(len(task.Terms))
	case domrecall.StrategyKeyInfo:
		should = append(should, db.Clause{Kind: db.ClauseMatch, Field: "key_info", Value: task.Text, Boost: b.Info})
	case domrecall.StrategyRewrite:
		should = append(should, textClauses(task.Text, b)...)
		should = append(should,
			db.Clause{Kind: db.ClauseAnyTag, Field: "amenity", Value: task.Text, Boost: 1.0},
			db.Clause{Kind: db.ClauseMatch, Field: "tags", Value: task.Text, Boost: 1.0},
		)
		msm = 2
	case domrecall.StrategyOriginal:
		should = append(should, textClauses(task.Text, b)...)
		msm = 2
	default:
		return db.BoolQuery{}, fmt.Errorf("unknown recall strategy %q", task.Strategy)
	}

	if scope.Category != "" {
		should = append(should, db.Clause{Kind: db.ClauseTerm, Field: "amenity", Value: scope.Category, Boost: b.Category})
	}

	return db.BoolQuery{
		Filter: db.GeoRadius{
			Field:    "location",
			Lat:      scope.Origin.Lat,
			Lon:      scope.Origin.Lon,
			RadiusKm: scope.RadiusKm,
		},
		Should:         should,
		MinShouldMatch: msm,
		Size:           e.cfg.Size,
		Scorer:         e.cfg.Scorer,
	}, nil
}

func textClauses(text string, b Boosts) []db.Clause {
	return []db.Clause{
		{Kind: db.ClauseMatch, Field: "name", Value: text, Boost: b.Name},
		{Kind: db.ClauseMatch, Field: "address", Value: text, Boost: b.Address},
		{Kind: db.ClauseMatch, Field: "rewrites", Value: text, Boost: b.Rewrite},
	}
}

func aggregateMinMatch(n int) int {
	if n > 1 {
		return 2
	}
	return 1
}
