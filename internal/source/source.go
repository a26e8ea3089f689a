// Package source defines the adapter contract for external people-data
// lookups and the concrete adapters behind it. Adapters are a closed set:
// the planner emits Name values and the dispatcher resolves them through the
// Registry, so an unknown name is a programming error, not runtime input.
package source

import (
	"context"

	"deepsearch/internal/search/models"
)

// Name identifies one source adapter.
type Name string

const (
	// Enrich is the primary keyed enrichment lookup (email/phone/name).
	Enrich Name = "enrich"
	// Identify resolves first/last name plus region into scored matches.
	Identify Name = "identify"
	// NameSearch runs a structured people search on name and location.
	NameSearch Name = "name_search"
	// WebSearch scrapes a search engine for public profile links.
	WebSearch Name = "web_search"
	// Handle looks a username up on code-hosting profiles.
	Handle Name = "handle"
)

// Result is what one adapter returns: loose evidence plus zero or more
// candidate hypotheses. Adapters never pre-merge candidates.
type Result struct {
	Evidences  []models.EvidenceItem
	Candidates []models.IdentityCandidate
}

// Adapter is a pluggable external-data lookup. Fetch must not panic and
// should convert internal failures into an empty Result plus an error; the
// dispatcher treats any error as an empty result for that adapter only.
type Adapter interface {
	Name() Name
	Fetch(ctx context.Context, query models.Query) (Result, error)
}

// CostUSD estimates the marginal API cost of invoking an adapter once, used
// for the per-job cost metric. Scraping and free APIs cost nothing.
func CostUSD(name Name) float64 {
	switch name {
	case Enrich, Identify, NameSearch:
		return 0.03
	default:
		return 0
	}
}

// Registry resolves adapter names to concrete adapters. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	adapters map[Name]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[Name]Adapter, len(adapters))}
	for _, a := range adapters {
		reg.adapters[a.Name()] = a
	}
	return reg
}

// Resolve returns the adapter registered under name.
func (r *Registry) Resolve(name Name) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names lists registered adapters, for diagnostics.
func (r *Registry) Names() []Name {
	out := make([]Name, 0, len(r.adapters))
	for n := range r.adapters {
		out = append(out, n)
	}
	return out
}
