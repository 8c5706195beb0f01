package chi

import (
	"time"

	"github.com/kailas-cloud/poisearch/internal/domain/intent"
	dompoi "github.com/kailas-cloud/poisearch/internal/domain/poi"
	domusage "github.com/kailas-cloud/poisearch/internal/domain/usage"
	searchuc "github.com/kailas-cloud/poisearch/internal/usecase/search"
)

// SearchRequest is the POST /api/v1/search body.
type SearchRequest struct {
	Query    string   `json:"query"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	RadiusKm *float64 `json:"radius_km,omitempty"`
}

// SearchResponse is the search result envelope.
type SearchResponse struct {
	Intent   IntentResponse `json:"intent"`
	Rewrites []string       `json:"rewrites"`
	Results  []SearchHit    `json:"results"`
}

// IntentResponse mirrors intent.Intent with empty lists instead of null.
type IntentResponse struct {
	Category       *string  `json:"category"`
	LocationHint   *string  `json:"location_hint"`
	SortPreference string   `json:"sort_preference"`
	Keywords       []string `json:"keywords"`
	KeyPhrases     []string `json:"key_phrases"`
	KeyInfo        string   `json:"key_info"`
}

// SearchHit is one ranked POI.
type SearchHit struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	DistanceKm   *float64 `json:"distance_km"`
	Popularity   int      `json:"popularity"`
	Score        float64  `json:"score"`
	RecallSource []string `json:"recall_source"`
}

// POIResponse is a stored POI.
type POIResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Category   string   `json:"category,omitempty"`
	Amenity    string   `json:"amenity,omitempty"`
	Popularity int      `json:"popularity"`
	Address    string   `json:"address,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	KeyPhrases []string `json:"key_phrases,omitempty"`
	KeyInfo    string   `json:"key_info,omitempty"`
	Rewrites   []string `json:"rewrites,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// UsageResponse reports generation calls for one budget period.
// Limit and Remaining are null when the budget is unlimited.
type UsageResponse struct {
	Period      string    `json:"period"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Used        int64     `json:"used"`
	Limit       *int64    `json:"limit"`
	Remaining   *int64    `json:"remaining"`
	Exhausted   bool      `json:"exhausted"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func searchResultToResponse(res searchuc.Result) SearchResponse {
	hits := make([]SearchHit, len(res.POIs))
	for i := range res.POIs {
		c := &res.POIs[i]
		hits[i] = SearchHit{
			ID:           c.ID,
			Name:         c.Name,
			Category:     c.Category,
			DistanceKm:   c.DistanceKm,
			Popularity:   c.Popularity,
			Score:        c.FinalScore,
			RecallSource: c.RecallSource.Sorted(),
		}
	}
	return SearchResponse{
		Intent:   intentToResponse(res.Intent),
		Rewrites: nonNil(res.Rewrites),
		Results:  hits,
	}
}

func intentToResponse(in intent.Intent) IntentResponse {
	pref := in.SortPreference
	if pref == "" {
		pref = intent.SortRelevance
	}
	return IntentResponse{
		Category:       in.Category,
		LocationHint:   in.LocationHint,
		SortPreference: string(pref),
		Keywords:       nonNil(in.Keywords),
		KeyPhrases:     nonNil(in.KeyPhrases),
		KeyInfo:        in.KeyInfo,
	}
}

func poiToResponse(p dompoi.POI) POIResponse {
	return POIResponse{
		ID:         p.ID,
		Name:       p.Name,
		Lat:        p.Location.Lat,
		Lon:        p.Location.Lon,
		Category:   p.Category,
		Amenity:    p.Amenity,
		Popularity: p.Popularity,
		Address:    p.Address,
		Keywords:   p.Keywords,
		KeyPhrases: p.KeyPhrases,
		KeyInfo:    p.KeyInfo,
		Rewrites:   p.Rewrites,
		Tags:       p.Tags,
	}
}

func usageToResponse(r *domusage.Report) UsageResponse {
	resp := UsageResponse{
		Period:      string(r.Period()),
		PeriodStart: r.PeriodStart(),
		PeriodEnd:   r.PeriodEnd(),
		Used:        r.Used(),
		Exhausted:   r.Exhausted(),
	}
	if r.Limit() > 0 {
		limit, remaining := r.Limit(), r.Remaining()
		resp.Limit = &limit
		resp.Remaining = &remaining
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
