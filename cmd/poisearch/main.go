package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/config"
	"github.com/kailas-cloud/poisearch/internal/db"
	dbRedis "github.com/kailas-cloud/poisearch/internal/db/redis"
	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/poisearch/internal/repository/budget"
	"github.com/kailas-cloud/poisearch/internal/repository/gencache"
	poirepo "github.com/kailas-cloud/poisearch/internal/repository/poi"
	chiTransport "github.com/kailas-cloud/poisearch/internal/transport/chi"
	"github.com/kailas-cloud/poisearch/internal/transport/httpgen"
	openaiGen "github.com/kailas-cloud/poisearch/internal/transport/openai"
	"github.com/kailas-cloud/poisearch/internal/usecase/analysis"
	"github.com/kailas-cloud/poisearch/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/poisearch/internal/usecase/health"
	"github.com/kailas-cloud/poisearch/internal/usecase/ranking"
	"github.com/kailas-cloud/poisearch/internal/usecase/recall"
	searchuc "github.com/kailas-cloud/poisearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/poisearch/internal/usecase/usage"
	"github.com/kailas-cloud/poisearch/internal/version"
)

const (
	healthProbeTimeout = 2 * time.Second

	// Budget counters outlive their period to absorb replica clock skew.
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting poisearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: "poisearch",
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	pois := poirepo.New(store, poirepo.Config{
		Index:     cfg.Search.Index,
		KeyPrefix: cfg.Search.KeyPrefix,
		Language:  cfg.Search.Language,
	})
	if cfg.Search.EnsureIndex {
		created, err := pois.EnsureIndex(ctx)
		if err != nil {
			logger.Fatal("Failed to ensure POI index", zap.Error(err))
		}
		logger.Info("POI index ready", zap.String("index", cfg.Search.Index), zap.Bool("created", created))
	}

	var budget *generation.Budget
	usageSvc := usageuc.New(nil)
	if b := cfg.Generation.Budget; b.Enabled() {
		budget = generation.NewBudget(generation.BudgetConfig{
			DailyLimit:   b.DailyLimit,
			MonthlyLimit: b.MonthlyLimit,
			Action:       generation.BudgetAction(b.Action),
		}, logger).WithStore(ctx, budgetrepo.New(store, budgetDailyTTL, budgetMonthlyTTL))
		usageSvc = usageuc.New(budget)
		logger.Info("Generation budget enabled",
			zap.Int64("daily_limit", b.DailyLimit),
			zap.Int64("monthly_limit", b.MonthlyLimit),
			zap.String("action", b.Action),
		)
	}

	gen := buildGenerator(cfg.Generation, budget, store, logger)

	params := analysis.Params{
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: *cfg.Generation.Temperature,
	}
	analyzer := analysis.NewAnalyzer(gen, params, logger)
	rewriter := analysis.NewRewriter(gen, params, logger)

	executor := recall.NewExecutor(pois, recall.ExecutorConfig{
		Boosts: recall.Boosts{
			Phrase:   cfg.Search.Boosts.Phrase,
			Keyword:  cfg.Search.Boosts.Keyword,
			Info:     cfg.Search.Boosts.Info,
			Name:     cfg.Search.Boosts.Name,
			Address:  cfg.Search.Boosts.Address,
			Rewrite:  cfg.Search.Boosts.Rewrite,
			Category: cfg.Search.Boosts.Category,
		},
		Size:           cfg.Search.Size,
		DedupPrecision: cfg.Search.DedupPrecision,
		Timeout:        time.Duration(cfg.Search.TimeoutMs) * time.Millisecond,
		Retries:        cfg.Search.Retries,
		MaxParallel:    cfg.Search.MaxParallel,
		Scorer:         cfg.Search.Scorer,
	}, logger)

	ranker := ranking.New(ranking.Config{
		DistSigma: cfg.Ranking.DistSigma,
		PopMax:    cfg.Ranking.PopMax,
		TopK:      cfg.Ranking.TopK,
		Base: ranking.Weights{
			Relevance:  *cfg.Ranking.Weights.Relevance,
			Distance:   *cfg.Ranking.Weights.Distance,
			Popularity: *cfg.Ranking.Weights.Popularity,
		},
	})

	searchSvc := searchuc.New(analyzer, rewriter, executor, ranker, logger).
		WithTimeout(time.Duration(cfg.Search.RequestTimeoutMs) * time.Millisecond)
	healthSvc := healthuc.New(store, newGenerationHealthChecker(gen), healthProbeTimeout)

	server := chiTransport.NewServer(searchSvc, pois, healthSvc, usageSvc, request.Limits{
		DefaultRadiusKm: cfg.Search.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Search.MaxRadiusKm,
	}, logger)
	router := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildGenerator assembles the decorator chain: provider -> Resilient -> Budgeted -> Cached.
// The cache sits outermost so a hit neither retries nor spends budget.
// budget may be nil.
func buildGenerator(
	cfg config.GenerationConfig,
	budget *generation.Budget,
	kv db.Store,
	logger *zap.Logger,
) domain.Generator {
	var base domain.Generator
	switch cfg.Provider {
	case "http":
		base = httpgen.New(cfg.BaseURL, httpgen.WithAPIKey(cfg.APIKey))
	default:
		base = openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
	}

	var gen domain.Generator = generation.NewResilient(base, generation.Options{
		Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		Retries: cfg.Retries,
	}, logger)

	if budget != nil {
		gen = generation.NewBudgeted(gen, budget, logger)
	}

	if !cfg.Cache.Enabled {
		return gen
	}
	return gencache.New(gen, kv, gencache.Options{
		TTL:     time.Duration(cfg.Cache.TTLSec) * time.Second,
		LRUSize: cfg.Cache.LRUSize,
	}, metrics.GenerationCacheTotal, logger)
}

// generationHealthChecker adapts domain.Generator to health.GenerationChecker.
type generationHealthChecker struct {
	gen domain.Generator
}

func newGenerationHealthChecker(gen domain.Generator) *generationHealthChecker {
	return &generationHealthChecker{gen: gen}
}

func (h *generationHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.gen.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("generation health check: %w", err)
		}
	}
	return nil
}
