package analysis

import (
	"context"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/repository/gencache"
)

// seqGenerator returns its replies in order, repeating the last one.
type seqGenerator struct {
	replies []string
	calls   int
}

func (s *seqGenerator) Generate(context.Context, domain.Prompt) (string, error) {
	i := min(s.calls, len(s.replies)-1)
	s.calls++
	return s.replies[i], nil
}

func TestAnalyze_UnparseableReplyIsNotCached(t *testing.T) {
	inner := &seqGenerator{replies: []string{"sorry, I cannot help", `{"keywords":["coffee"]}`}}
	gen := gencache.New(inner, nil, gencache.Options{TTL: time.Hour, LRUSize: 16}, nil, zap.NewNop())
	a := NewAnalyzer(gen, params, zap.NewNop())

	first := a.Analyze(context.Background(), "coffee")
	if len(first.Keywords) != 0 {
		t.Fatalf("expected default intent first, got %v", first.Keywords)
	}

	second := a.Analyze(context.Background(), "coffee")
	if !reflect.DeepEqual(second.Keywords, []string{"coffee"}) {
		t.Errorf("keywords: got %v", second.Keywords)
	}

	// The good reply is cached from here on.
	third := a.Analyze(context.Background(), "coffee")
	if !reflect.DeepEqual(third.Keywords, []string{"coffee"}) {
		t.Errorf("keywords: got %v", third.Keywords)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", inner.calls)
	}
}

func TestRewrite_UnparseableReplyIsNotCached(t *testing.T) {
	inner := &seqGenerator{replies: []string{"no list here", `["espresso bar"]`}}
	gen := gencache.New(inner, nil, gencache.Options{TTL: time.Hour, LRUSize: 16}, nil, zap.NewNop())
	r := NewRewriter(gen, params, zap.NewNop())

	if got := r.Rewrite(context.Background(), "coffee"); len(got) != 0 {
		t.Fatalf("expected no rewrites first, got %v", got)
	}
	if got := r.Rewrite(context.Background(), "coffee"); !reflect.DeepEqual(got, []string{"espresso bar"}) {
		t.Errorf("rewrites: got %v", got)
	}
}
