package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	dompoi "github.com/kailas-cloud/poisearch/internal/domain/poi"
	"github.com/kailas-cloud/poisearch/internal/llmjson"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/usecase/generation"
)

// Enricher generates recall metadata for POIs at load time.
type Enricher struct {
	gen    domain.Generator
	params Params
	logger *zap.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(gen domain.Generator, params Params, logger *zap.Logger) *Enricher {
	return &Enricher{gen: gen, params: params, logger: logger}
}

// Enrich fills the keywords, key phrases, key info and rewrites that p lacks.
// Fields already present are kept. On failure p is returned unchanged with
// the error; a POI with nothing missing is returned without a generation call.
func (e *Enricher) Enrich(ctx context.Context, p dompoi.POI) (dompoi.POI, error) {
	if !needsEnrichment(p) {
		return p, nil
	}
	log := logger.FromContext(ctx, e.logger)
	ctx = generation.WithKind(ctx, generation.KindEnrich)

	prompt := domain.Prompt{
		System:      enrichSystemPrompt,
		User:        describePOI(p),
		MaxTokens:   e.params.MaxTokens,
		Temperature: e.params.Temperature,
	}
	out, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return p, fmt.Errorf("enrich %s: %w", p.ID, err)
	}

	obj, err := llmjson.Extract(out, llmjson.Object)
	if err != nil {
		invalidate(ctx, e.gen, prompt)
		return p, fmt.Errorf("enrich %s: %w", p.ID, err)
	}

	if len(p.Keywords) == 0 {
		p.Keywords = stringList(obj.Get("keywords"))
	}
	if len(p.KeyPhrases) == 0 {
		p.KeyPhrases = stringList(obj.Get("key_phrases"))
	}
	if p.KeyInfo == "" {
		p.KeyInfo = stringValue(obj.Get("key_info"))
	}
	if len(p.Rewrites) == 0 {
		p.Rewrites = stringList(obj.Get("rewrites"))
	}
	log.Debug("POI enriched",
		zap.String("id", p.ID),
		zap.Int("keywords", len(p.Keywords)),
		zap.Int("key_phrases", len(p.KeyPhrases)),
		zap.Int("rewrites", len(p.Rewrites)),
	)
	return p, nil
}

func needsEnrichment(p dompoi.POI) bool {
	return len(p.Keywords) == 0 || len(p.KeyPhrases) == 0 || p.KeyInfo == "" || len(p.Rewrites) == 0
}

// describePOI renders the fields a labeler needs, skipping empty ones.
func describePOI(p dompoi.POI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	category := p.Category
	if category == "" {
		category = p.Amenity
	}
	if category != "" {
		fmt.Fprintf(&b, "Category: %s\n", category)
	}
	if p.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", p.Address)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
