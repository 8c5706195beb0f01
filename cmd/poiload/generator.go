package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/config"
	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/transport/httpgen"
	openaiGen "github.com/kailas-cloud/poisearch/internal/transport/openai"
	"github.com/kailas-cloud/poisearch/internal/usecase/analysis"
	"github.com/kailas-cloud/poisearch/internal/usecase/generation"
)

// newEnricher builds the provider from the generation section of the config.
// Load-time enrichment skips the query cache and the call budget.
func newEnricher(cfg config.GenerationConfig, logger *zap.Logger) *analysis.Enricher {
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

	gen := generation.NewResilient(base, generation.Options{
		Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		Retries: cfg.Retries,
	}, logger)

	return analysis.NewEnricher(gen, analysis.Params{
		MaxTokens:   cfg.MaxTokens,
		Temperature: *cfg.Temperature,
	}, logger)
}
