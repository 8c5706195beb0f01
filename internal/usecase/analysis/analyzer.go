// Package analysis turns a free-text query into structured intent and paraphrases
// via a text generator. Neither operation fails: generation or parse errors yield
// a typed fallback.
package analysis

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	"github.com/kailas-cloud/poisearch/internal/llmjson"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/metrics"
	"github.com/kailas-cloud/poisearch/internal/usecase/generation"
)

// Params are the generation parameters shared by both callers.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Analyzer extracts an intent.Intent from a query.
type Analyzer struct {
	gen    domain.Generator
	params Params
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(gen domain.Generator, params Params, logger *zap.Logger) *Analyzer {
	return &Analyzer{gen: gen, params: params, logger: logger}
}

// Analyze returns the intent for query, or intent.Default() on any failure.
func (a *Analyzer) Analyze(ctx context.Context, query string) intent.Intent {
	log := logger.FromContext(ctx, a.logger)
	ctx = generation.WithKind(ctx, generation.KindIntent)

	prompt := domain.Prompt{
		System:      intentSystemPrompt,
		User:        query,
		MaxTokens:   a.params.MaxTokens,
		Temperature: a.params.Temperature,
	}
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		log.Warn("Intent extraction failed, using default", zap.String("kind", string(generation.KindIntent)), zap.Error(err))
		fallback(generation.KindIntent)
		return intent.Default()
	}

	obj, err := llmjson.Extract(out, llmjson.Object)
	if err != nil {
		log.Warn("Intent response is not JSON, using default",
			zap.String("kind", string(generation.KindIntent)),
			zap.Int("response_len", len(out)),
			zap.Error(err),
		)
		invalidate(ctx, a.gen, prompt)
		fallback(generation.KindIntent)
		return intent.Default()
	}

	return decodeIntent(obj)
}

// decodeIntent reads an intent leniently: missing or mistyped keys take their defaults.
func decodeIntent(obj gjson.Result) intent.Intent {
	in := intent.Default()
	in.Category = optionalString(obj.Get("category"))
	in.LocationHint = optionalString(obj.Get("location_hint"))
	in.SortPreference = intent.ParseSortPreference(stringValue(obj.Get("sort_preference")))
	in.Keywords = stringList(obj.Get("keywords"))
	in.KeyPhrases = stringList(obj.Get("key_phrases"))
	in.KeyInfo = stringValue(obj.Get("key_info"))
	return in
}

func stringValue(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.Str)
}

func optionalString(r gjson.Result) *string {
	s := stringValue(r)
	if s == "" {
		return nil
	}
	return &s
}

// stringList keeps non-blank string items in order. Never returns nil.
func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	r.ForEach(func(_, item gjson.Result) bool {
		if s := stringValue(item); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// invalidate drops an unparseable reply from any cache in front of the
// provider so the fallback applies to this call only.
func invalidate(ctx context.Context, gen domain.Generator, p domain.Prompt) {
	if inv, ok := gen.(domain.CacheInvalidator); ok {
		inv.Invalidate(ctx, p)
	}
}

func fallback(kind generation.Kind) {
	metrics.GenerationRequestsTotal.WithLabelValues(string(kind), "fallback").Inc()
}
