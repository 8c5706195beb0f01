package recall

import "github.com/kailas-cloud/poisearch/internal/domain/poi"

// Merge joins per-task hit lists in dispatch order. The first occurrence of an
// id is kept as a copy; later occurrences only add their provenance tags.
func Merge(lists [][]poi.Candidate) []poi.Candidate {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	merged := make([]poi.Candidate, 0, total)
	index := make(map[string]int, total)
	for _, l := range lists {
		for i := range l {
			if at, seen := index[l[i].ID]; seen {
				merged[at].RecallSource.Union(l[i].RecallSource)
				continue
			}
			index[l[i].ID] = len(merged)
			merged = append(merged, l[i].Clone())
		}
	}
	return merged
}
