// Package recall plans, dispatches and merges the weighted sub-queries that
// gather search candidates.
package recall

import (
	"slices"

	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	domrecall "github.com/kailas-cloud/poisearch/internal/domain/recall"
)

// Plan derives the ordered sub-query tasks from intent and expansions.
// Order sets first-seen precedence in the merge: phrases, keywords, key info,
// then each rewrite. An intent without signal and no rewrites plans nothing.
func Plan(in intent.Intent, rewrites []string) []domrecall.Task {
	tasks := make([]domrecall.Task, 0, 3+len(rewrites))

	if len(in.KeyPhrases) > 0 {
		tasks = append(tasks, domrecall.Task{
			Strategy: domrecall.StrategyPhrases,
			Terms:    slices.Clone(in.KeyPhrases),
			Source:   domrecall.SourcePhrases,
		})
	}
	if len(in.Keywords) > 0 {
		tasks = append(tasks, domrecall.Task{
			Strategy: domrecall.StrategyKeywords,
			Terms:    slices.Clone(in.Keywords),
			Source:   domrecall.SourceKeywords,
		})
	}
	if in.KeyInfo != "" {
		tasks = append(tasks, domrecall.Task{
			Strategy: domrecall.StrategyKeyInfo,
			Text:     in.KeyInfo,
			Source:   domrecall.SourceInfo,
		})
	}
	for _, rw := range rewrites {
		tasks = append(tasks, domrecall.Task{
			Strategy: domrecall.StrategyRewrite,
			Text:     rw,
			Source:   domrecall.SourceRewrite,
		})
	}
	return tasks
}
