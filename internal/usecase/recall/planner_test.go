package recall

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	domrecall "github.com/kailas-cloud/poisearch/internal/domain/recall"
)

func TestPlan_FullSignal(t *testing.T) {
	in := intent.Default()
	in.KeyPhrases = []string{"free wifi", "river view"}
	in.Keywords = []string{"coffee"}
	in.KeyInfo = "quiet cafe"

	tasks := Plan(in, []string{"affordable cafe", "budget coffee shop"})

	want := []domrecall.Task{
		{Strategy: domrecall.StrategyPhrases, Terms: []string{"free wifi", "river view"}, Source: "analysis_phrases"},
		{Strategy: domrecall.StrategyKeywords, Terms: []string{"coffee"}, Source: "analysis_keywords"},
		{Strategy: domrecall.StrategyKeyInfo, Text: "quiet cafe", Source: "analysis_info"},
		{Strategy: domrecall.StrategyRewrite, Text: "affordable cafe", Source: "rewriting"},
		{Strategy: domrecall.StrategyRewrite, Text: "budget coffee shop", Source: "rewriting"},
	}
	if !reflect.DeepEqual(tasks, want) {
		t.Errorf("plan mismatch:\ngot:  %+v\nwant: %+v", tasks, want)
	}
}

func TestPlan_NoSignal(t *testing.T) {
	if tasks := Plan(intent.Default(), nil); len(tasks) != 0 {
		t.Errorf("expected no tasks, got %+v", tasks)
	}
}

func TestPlan_RewritesOnly(t *testing.T) {
	tasks := Plan(intent.Default(), []string{"park"})
	if len(tasks) != 1 || tasks[0].Strategy != domrecall.StrategyRewrite {
		t.Fatalf("expected one rewrite task, got %+v", tasks)
	}
}

func TestPlan_NeverOriginal(t *testing.T) {
	in := intent.Default()
	in.Keywords = []string{"a"}
	in.KeyPhrases = []string{"b"}
	in.KeyInfo = "c"
	for _, task := range Plan(in, []string{"d"}) {
		if task.Strategy == domrecall.StrategyOriginal {
			t.Fatal("original strategy must not be planned")
		}
	}
}

func TestPlan_CopiesTerms(t *testing.T) {
	in := intent.Default()
	in.Keywords = []string{"coffee"}
	tasks := Plan(in, nil)

	in.Keywords[0] = "tea"
	if tasks[0].Terms[0] != "coffee" {
		t.Error("plan must not alias intent slices")
	}
}
