package core

import mapset "github.com/deckarep/golang-set/v2"

// VisitedRegistry is the set of reference identities already claimed
// during one walk. It only grows.
type VisitedRegistry struct {
	seen mapset.Set[string]
}

func NewVisitedRegistry() *VisitedRegistry {
	return &VisitedRegistry{seen: mapset.NewSet[string]()}
}

// MarkAndCheck records identity and reports whether this call was the
// first to see it. Exactly one caller wins per identity.
func (r *VisitedRegistry) MarkAndCheck(identity string) bool {
	return r.seen.Add(identity)
}

func (r *VisitedRegistry) Len() int {
	return r.seen.Cardinality()
}
