package recall

import (
	"context"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/poi"
)

// Searcher runs one boolean query and returns its hits as candidates.
type Searcher interface {
	Search(ctx context.Context, q db.BoolQuery) ([]poi.Candidate, error)
}
