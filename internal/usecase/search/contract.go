package search

import (
	"context"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	"github.com/kailas-cloud/poisearch/internal/domain/poi"
	domrecall "github.com/kailas-cloud/poisearch/internal/domain/recall"
	"github.com/kailas-cloud/poisearch/internal/usecase/recall"
)

// IntentAnalyzer extracts structured intent. It never fails.
type IntentAnalyzer interface {
	Analyze(ctx context.Context, query string) intent.Intent
}

// QueryRewriter produces paraphrases. It never fails.
type QueryRewriter interface {
	Rewrite(ctx context.Context, query string) []string
}

// Executor runs sub-query tasks and returns one hit list per task.
type Executor interface {
	Execute(ctx context.Context, tasks []domrecall.Task, scope recall.Scope) [][]poi.Candidate
}

// Ranker orders merged candidates.
type Ranker interface {
	Rank(cands []poi.Candidate, origin geo.Point, pref intent.SortPreference) []poi.Candidate
}
