// Package intent describes the structured meaning extracted from a free-text query.
package intent

import "strings"

// SortPreference selects the ranking weight profile.
type SortPreference string

const (
	// SortRelevance favors backend text relevance (the default).
	SortRelevance SortPreference = "relevance"
	// SortDistance favors proximity to the requester.
	SortDistance SortPreference = "distance"
	// SortPopularity favors popular places.
	SortPopularity SortPreference = "popularity"
)

// ParseSortPreference normalizes s. Unknown or empty values map to SortRelevance.
func ParseSortPreference(s string) SortPreference {
	switch p := SortPreference(strings.ToLower(strings.TrimSpace(s))); p {
	case SortDistance, SortPopularity:
		return p
	default:
		return SortRelevance
	}
}

// Intent is the structured interpretation of a search query.
type Intent struct {
	Category       *string        `json:"category"`
	LocationHint   *string        `json:"location_hint"`
	SortPreference SortPreference `json:"sort_preference"`
	Keywords       []string       `json:"keywords"`
	KeyPhrases     []string       `json:"key_phrases"`
	KeyInfo        string         `json:"key_info"`
}

// Default returns the intent used when extraction fails.
func Default() Intent {
	return Intent{
		SortPreference: SortRelevance,
		Keywords:       []string{},
		KeyPhrases:     []string{},
	}
}

// CategoryValue returns the category or "" when absent.
func (i Intent) CategoryValue() string {
	if i.Category == nil {
		return ""
	}
	return *i.Category
}

// HasSignal reports whether the intent carries anything a recall strategy can use.
func (i Intent) HasSignal() bool {
	return len(i.Keywords) > 0 || len(i.KeyPhrases) > 0 || i.KeyInfo != ""
}
