// Package ranking scores merged candidates with a weighted blend of backend
// relevance, proximity and popularity.
package ranking

import (
	"math"
	"slices"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	"github.com/kailas-cloud/poisearch/internal/domain/poi"
)

// Weights blend the three component scores. Each profile sums to 1.
type Weights struct {
	Relevance  float64
	Distance   float64
	Popularity float64
}

// Sum returns the total weight.
func (w Weights) Sum() float64 { return w.Relevance + w.Distance + w.Popularity }

// Fixed weight profiles.
var (
	BaseWeights       = Weights{Relevance: 0.5, Distance: 0.3, Popularity: 0.2}
	DistanceWeights   = Weights{Relevance: 0.1, Distance: 0.8, Popularity: 0.1}
	PopularityWeights = Weights{Relevance: 0.1, Distance: 0.1, Popularity: 0.8}
)

// Config tunes the ranker.
type Config struct {
	DistSigma float64 // km
	PopMax    int
	TopK      int
	Base      Weights // used for relevance and unknown preferences
}

// DefaultConfig returns the shipped ranking settings.
func DefaultConfig() Config {
	return Config{DistSigma: 2.0, PopMax: 100, TopK: 10, Base: BaseWeights}
}

// Ranker computes final scores and orders candidates.
type Ranker struct {
	cfg Config
}

// New creates a Ranker. Non-positive settings take their defaults.
func New(cfg Config) *Ranker {
	def := DefaultConfig()
	if cfg.DistSigma <= 0 {
		cfg.DistSigma = def.DistSigma
	}
	if cfg.PopMax <= 0 {
		cfg.PopMax = def.PopMax
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Base == (Weights{}) {
		cfg.Base = def.Base
	}
	return &Ranker{cfg: cfg}
}

// WeightsFor returns the weight profile for a sort preference.
func (r *Ranker) WeightsFor(pref intent.SortPreference) Weights {
	switch pref {
	case intent.SortDistance:
		return DistanceWeights
	case intent.SortPopularity:
		return PopularityWeights
	default:
		return r.cfg.Base
	}
}

// Rank scores cands against origin and returns the top K by FinalScore,
// descending. Equal scores keep their input order. The input is not modified.
func (r *Ranker) Rank(cands []poi.Candidate, origin geo.Point, pref intent.SortPreference) []poi.Candidate {
	if len(cands) == 0 {
		return []poi.Candidate{}
	}

	w := r.WeightsFor(pref)
	maxScore := 0.0
	for i := range cands {
		maxScore = math.Max(maxScore, cands[i].BackendScore)
	}
	norm := math.Max(maxScore, 1.0)

	out := make([]poi.Candidate, len(cands))
	for i := range cands {
		c := cands[i].Clone()
		c.SetDistanceFrom(origin)

		rel := c.BackendScore / norm
		dist := 0.0
		if c.DistanceKm != nil {
			dist = DistScore(*c.DistanceKm, r.cfg.DistSigma)
		}
		pop := PopScore(c.Popularity, r.cfg.PopMax)

		c.FinalScore = w.Relevance*rel + w.Distance*dist + w.Popularity*pop
		out[i] = c
	}

	slices.SortStableFunc(out, func(a, b poi.Candidate) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		default:
			return 0
		}
	})

	if len(out) > r.cfg.TopK {
		out = out[:r.cfg.TopK]
	}
	return out
}

// DistScore is a Gaussian decay: 1 at d=0, strictly decreasing in d.
func DistScore(d, sigma float64) float64 {
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// PopScore log-normalizes popularity against popMax, clamped to [0,1].
func PopScore(popularity, popMax int) float64 {
	if popularity <= 0 || popMax <= 0 {
		return 0
	}
	s := math.Log1p(float64(popularity)) / math.Log1p(float64(popMax))
	return math.Min(s, 1)
}
