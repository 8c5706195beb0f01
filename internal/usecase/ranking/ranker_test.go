package ranking

import (
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	"github.com/kailas-cloud/poisearch/internal/domain/poi"
)

var origin = geo.Point{Lat: 31.2304, Lon: 121.4737}

// at returns a point roughly km kilometers north of origin.
func at(km float64) *geo.Point {
	return &geo.Point{Lat: origin.Lat + km/111.195, Lon: origin.Lon}
}

func TestWeights_SumToOne(t *testing.T) {
	r := New(DefaultConfig())
	for _, pref := range []intent.SortPreference{
		intent.SortRelevance, intent.SortDistance, intent.SortPopularity, "cheapest",
	} {
		if s := r.WeightsFor(pref).Sum(); math.Abs(s-1) > 1e-9 {
			t.Errorf("%s: weights sum to %v", pref, s)
		}
	}
}

func TestWeightsFor_UnknownIsBase(t *testing.T) {
	r := New(DefaultConfig())
	if r.WeightsFor("cheapest") != BaseWeights {
		t.Error("unknown preference must use base weights")
	}
}

func TestDistScore(t *testing.T) {
	if DistScore(0, 2) != 1 {
		t.Errorf("DistScore(0) = %v, want 1", DistScore(0, 2))
	}
	prev := 1.0
	for d := 0.5; d <= 10; d += 0.5 {
		s := DistScore(d, 2)
		if s >= prev {
			t.Fatalf("not strictly decreasing at d=%v: %v >= %v", d, s, prev)
		}
		prev = s
	}
	if got := DistScore(2, 2); math.Abs(got-math.Exp(-0.5)) > 1e-12 {
		t.Errorf("DistScore(sigma) = %v, want e^-0.5", got)
	}
}

func TestPopScore(t *testing.T) {
	tests := []struct {
		pop  int
		want float64
	}{
		{0, 0},
		{-5, 0},
		{100, 1},
		{500, 1},
		{9, math.Log(10) / math.Log(101)},
	}
	for _, tt := range tests {
		if got := PopScore(tt.pop, 100); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("PopScore(%d) = %v, want %v", tt.pop, got, tt.want)
		}
	}
}

func TestRank_Empty(t *testing.T) {
	got := New(DefaultConfig()).Rank(nil, origin, intent.SortRelevance)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestRank_RelevanceNormalization(t *testing.T) {
	r := New(Config{Base: Weights{Relevance: 1}})

	// max score below 1: divided by 1, not by the max.
	got := r.Rank([]poi.Candidate{{ID: "a", BackendScore: 0.5}}, origin, intent.SortRelevance)
	if math.Abs(got[0].FinalScore-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %v", got[0].FinalScore)
	}

	got = r.Rank([]poi.Candidate{{ID: "a", BackendScore: 8}, {ID: "b", BackendScore: 4}}, origin, intent.SortRelevance)
	if got[0].FinalScore != 1 || got[1].FinalScore != 0.5 {
		t.Errorf("expected 1 and 0.5, got %v and %v", got[0].FinalScore, got[1].FinalScore)
	}
}

func TestRank_MissingLocation(t *testing.T) {
	r := New(Config{Base: Weights{Distance: 1}})
	stale := 0.0
	got := r.Rank([]poi.Candidate{{ID: "a", DistanceKm: &stale}}, origin, intent.SortRelevance)

	if got[0].DistanceKm != nil {
		t.Error("distance must be nil without a location")
	}
	if got[0].FinalScore != 0 {
		t.Errorf("expected zero distance contribution, got %v", got[0].FinalScore)
	}
}

func TestRank_RecomputesDistance(t *testing.T) {
	wrong := 99.0
	got := New(DefaultConfig()).Rank([]poi.Candidate{{ID: "a", Location: at(1), DistanceKm: &wrong}}, origin, intent.SortRelevance)

	if d := *got[0].DistanceKm; math.Abs(d-1) > 0.01 {
		t.Errorf("expected ~1 km, got %v", d)
	}
}

func TestRank_TopKTruncation(t *testing.T) {
	cands := make([]poi.Candidate, 15)
	for i := range cands {
		cands[i] = poi.Candidate{ID: string(rune('a' + i)), BackendScore: float64(i)}
	}

	got := New(DefaultConfig()).Rank(cands, origin, intent.SortRelevance)

	if len(got) != 10 {
		t.Fatalf("expected 10, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].FinalScore > got[i-1].FinalScore {
			t.Fatalf("not descending at %d", i)
		}
	}
	if got[0].ID != "o" || got[9].ID != "f" {
		t.Errorf("expected o..f, got %s..%s", got[0].ID, got[9].ID)
	}
}

func TestRank_StableTies(t *testing.T) {
	cands := []poi.Candidate{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	got := New(DefaultConfig()).Rank(cands, origin, intent.SortRelevance)

	var order []string
	for _, c := range got {
		order = append(order, c.ID)
	}
	if !reflect.DeepEqual(order, []string{"x", "y", "z"}) {
		t.Errorf("ties must keep input order, got %v", order)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	cands := []poi.Candidate{{ID: "a", BackendScore: 1, Location: at(1)}}
	New(DefaultConfig()).Rank(cands, origin, intent.SortRelevance)

	if cands[0].FinalScore != 0 || cands[0].DistanceKm != nil {
		t.Errorf("input mutated: %+v", cands[0])
	}
}

func TestRank_DistanceDominance(t *testing.T) {
	cands := []poi.Candidate{
		{ID: "B", BackendScore: 100, Location: at(9), Popularity: 100},
		{ID: "A", BackendScore: 1, Location: at(0.1), Popularity: 0},
	}
	got := New(DefaultConfig()).Rank(cands, origin, intent.SortDistance)

	if got[0].ID != "A" {
		t.Fatalf("expected A first under distance weighting, got %s", got[0].ID)
	}
	if got[0].FinalScore < 0.79 || got[1].FinalScore > 0.21 {
		t.Errorf("unexpected scores: A=%v B=%v", got[0].FinalScore, got[1].FinalScore)
	}
}

func TestRank_PopularityPreference(t *testing.T) {
	cands := []poi.Candidate{
		{ID: "Y", BackendScore: 10, Location: at(0.5), Popularity: 2},
		{ID: "X", BackendScore: 6, Location: at(1.5), Popularity: 90},
	}
	got := New(DefaultConfig()).Rank(cands, origin, intent.SortPopularity)

	if got[0].ID != "X" {
		t.Errorf("expected X first under popularity weighting, got %s", got[0].ID)
	}
}
