package db

import (
	"errors"
	"fmt"
	"strings"
)

// ClauseKind selects how a clause value is matched.
type ClauseKind int

const (
	// ClauseMatch matches any analyzed token of the value against a TEXT field.
	ClauseMatch ClauseKind = iota
	// ClausePhrase matches the value as an exact phrase against a TEXT field.
	ClausePhrase
	// ClauseTerm matches the value exactly against a TAG field.
	ClauseTerm
	// ClauseAnyTag matches any token of the value against a TAG field.
	ClauseAnyTag
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseMatch:
		return "match"
	case ClausePhrase:
		return "phrase"
	case ClauseTerm:
		return "term"
	case ClauseAnyTag:
		return "any_tag"
	default:
		return fmt.Sprintf("ClauseKind(%d)", int(k))
	}
}

// Clause is one scored should-clause.
type Clause struct {
	Kind  ClauseKind
	Field string
	Value string
	Boost float64
}

// GeoRadius is a mandatory radius filter around a point.
type GeoRadius struct {
	Field    string
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// BoolQuery is a filtered disjunction of scored clauses.
// MinShouldMatch <= 1 means any clause may match.
type BoolQuery struct {
	IndexName      string
	Filter         GeoRadius
	Should         []Clause
	MinShouldMatch int
	Size           int
	ReturnFields   []string
	Scorer         string // FT.SEARCH SCORER, empty = server default
}

// ErrUnsatisfiable is returned for queries that can never match.
var ErrUnsatisfiable = errors.New("db: query cannot match")

// Validate checks that the query is well-formed and satisfiable.
func (q *BoolQuery) Validate() error {
	if q.IndexName == "" {
		return errors.New("db: index name is required")
	}
	if q.Filter.Field == "" {
		return errors.New("db: geo filter field is required")
	}
	if q.Filter.RadiusKm <= 0 {
		return errors.New("db: geo filter radius must be positive")
	}
	if len(q.Should) == 0 {
		return errors.New("db: at least one should-clause is required")
	}
	for i := range q.Should {
		if strings.TrimSpace(q.Should[i].Value) == "" {
			return fmt.Errorf("db: should-clause %d on %q has an empty value", i, q.Should[i].Field)
		}
	}
	if q.MinShouldMatch > len(q.Should) {
		return fmt.Errorf("%w: min_should_match %d over %d clauses",
			ErrUnsatisfiable, q.MinShouldMatch, len(q.Should))
	}
	if q.Size <= 0 {
		return errors.New("db: size must be positive")
	}
	return nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
