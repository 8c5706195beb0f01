package poi

import "sort"

// Provenance is the set of recall source tags that produced a candidate.
// The zero value is an empty set ready to use.
type Provenance struct {
	tags map[string]struct{}
}

// NewProvenance creates a set holding the given tags.
func NewProvenance(tags ...string) Provenance {
	var p Provenance
	for _, t := range tags {
		p.Add(t)
	}
	return p
}

// Add inserts tag. Adding an existing tag is a no-op.
func (p *Provenance) Add(tag string) {
	if p.tags == nil {
		p.tags = make(map[string]struct{}, 1)
	}
	p.tags[tag] = struct{}{}
}

// Has reports whether tag is in the set.
func (p Provenance) Has(tag string) bool {
	_, ok := p.tags[tag]
	return ok
}

// Len returns the number of tags.
func (p Provenance) Len() int { return len(p.tags) }

// Union adds every tag of other to p.
func (p *Provenance) Union(other Provenance) {
	for t := range other.tags {
		p.Add(t)
	}
}

// Clone returns an independent copy.
func (p Provenance) Clone() Provenance {
	var c Provenance
	c.Union(p)
	return c
}

// Sorted returns the tags in lexical order.
func (p Provenance) Sorted() []string {
	out := make([]string, 0, len(p.tags))
	for t := range p.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
