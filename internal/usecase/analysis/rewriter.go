package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/llmjson"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/usecase/generation"
)

// Rewriter produces paraphrases of a query for recall expansion.
type Rewriter struct {
	gen    domain.Generator
	params Params
	logger *zap.Logger
}

// NewRewriter creates a Rewriter.
func NewRewriter(gen domain.Generator, params Params, logger *zap.Logger) *Rewriter {
	return &Rewriter{gen: gen, params: params, logger: logger}
}

// Rewrite returns distinct non-empty paraphrases in model order, or an empty
// slice on any failure.
func (r *Rewriter) Rewrite(ctx context.Context, query string) []string {
	log := logger.FromContext(ctx, r.logger)
	ctx = generation.WithKind(ctx, generation.KindRewrite)

	prompt := domain.Prompt{
		System:      rewriteSystemPrompt,
		User:        query,
		MaxTokens:   r.params.MaxTokens,
		Temperature: r.params.Temperature,
	}
	out, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		log.Warn("Query rewriting failed, skipping expansions", zap.String("kind", string(generation.KindRewrite)), zap.Error(err))
		fallback(generation.KindRewrite)
		return []string{}
	}

	arr, err := llmjson.Extract(out, llmjson.Array)
	if err != nil {
		log.Warn("Rewrite response is not a JSON list, skipping expansions",
			zap.String("kind", string(generation.KindRewrite)),
			zap.Int("response_len", len(out)),
			zap.Error(err),
		)
		invalidate(ctx, r.gen, prompt)
		fallback(generation.KindRewrite)
		return []string{}
	}

	items := stringList(arr)
	seen := make(map[string]struct{}, len(items))
	rewrites := make([]string, 0, len(items))
	for _, s := range items {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		rewrites = append(rewrites, s)
	}
	return rewrites
}
