// CLAUDE:SUMMARY Source adapter contract and the immutable adapter registry.
// Package source implements the per-dataset adapters that fetch and
// normalize upstream data, and the combinators they share (fallback chains,
// the rate-limited HTTP client, the World Bank API client).
//
// An adapter is pure except for network I/O. It converts units, folds
// remainders into a rest bucket, and fails loudly — it never swallows an
// upstream error to produce a default payload, because callers rely on
// failure to know a refresh did not happen.
package source

import (
	"context"
	"sort"

	"github.com/hazyhaar/worldpulse/fact"
)

// Hint carries optional context into a fetch. Probe-aware adapters use
// KnownYear to target the newest known data year; zero means unknown.
type Hint struct {
	KnownYear int
}

// Adapter fetches and normalizes one dataset.
type Adapter interface {
	Slug() string
	Fetch(ctx context.Context, hint Hint) (*fact.Payload, error)
}

// Registry is an immutable slug → adapter table, constructed once at
// startup and injected into the orchestrators.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a Registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Slug()] = a
	}
	return &Registry{adapters: m}
}

// Lookup returns the adapter for a slug.
func (r *Registry) Lookup(slug string) (Adapter, bool) {
	a, ok := r.adapters[slug]
	return a, ok
}

// Slugs returns all registered slugs, sorted.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.adapters))
	for s := range r.adapters {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}
