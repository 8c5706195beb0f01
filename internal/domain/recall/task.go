// Package recall defines the sub-query tasks dispatched during candidate recall.
package recall

// Strategy selects how a task's content is turned into backend clauses.
type Strategy string

const (
	// StrategyPhrases matches each key phrase exactly.
	StrategyPhrases Strategy = "phrases_agg"
	// StrategyKeywords matches each keyword.
	StrategyKeywords Strategy = "keywords_agg"
	// StrategyKeyInfo matches the intent summary.
	StrategyKeyInfo Strategy = "key_info"
	// StrategyRewrite matches one paraphrase across name, address and rewrites.
	StrategyRewrite Strategy = "rewrite"
	// StrategyOriginal matches the raw query. Reserved: the planner never emits it.
	StrategyOriginal Strategy = "original"
)

// Source tags recorded in candidate provenance.
const (
	SourcePhrases  = "analysis_phrases"
	SourceKeywords = "analysis_keywords"
	SourceInfo     = "analysis_info"
	SourceRewrite  = "rewriting"
	SourceOriginal = "original"
)

// Task is one weighted sub-query.
type Task struct {
	Strategy Strategy
	// Terms holds the list content of aggregate strategies.
	Terms []string
	// Text holds the single-string content of key_info, rewrite and original.
	Text   string
	Source string
}
