// CLAUDE:SUMMARY Watchdog probe contract: cheap checks that detect new annual data without a full fetch.
// Package probe implements the watchdog side of the pipeline. A probe
// answers one question per dataset: has the upstream published a newer
// data year than the one we already ingested?
//
// Probes never return an error to the caller. A failed check is recorded
// inside the Result so the daily batch can settle every probe and report
// partial failures instead of aborting.
package probe

import (
	"context"
	"sort"
	"time"
)

// Result is the outcome of one probe check.
type Result struct {
	Slug         string
	Changed      bool
	PreviousYear int
	DetectedYear int
	// Method is a human-readable account of which signal fired (or why
	// nothing did). It ends up in logs and the watchdog API response.
	Method    string
	CheckedAt time.Time
	Err       error
}

// ErrString renders Err for log and API surfaces.
func (r Result) ErrString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Probe checks one dataset for newer source data.
type Probe interface {
	Slug() string
	Check(ctx context.Context, previousYear int) Result
}

// Set is an immutable slug → probe table. Datasets without an annual
// release cadence simply have no probe.
type Set struct {
	probes map[string]Probe
}

// NewSet builds a Set from the given probes.
func NewSet(probes ...Probe) *Set {
	m := make(map[string]Probe, len(probes))
	for _, p := range probes {
		m[p.Slug()] = p
	}
	return &Set{probes: m}
}

// Lookup returns the probe for a slug.
func (s *Set) Lookup(slug string) (Probe, bool) {
	p, ok := s.probes[slug]
	return p, ok
}

// All returns every probe, ordered by slug for deterministic batches.
func (s *Set) All() []Probe {
	out := make([]Probe, 0, len(s.probes))
	for _, p := range s.probes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug() < out[j].Slug() })
	return out
}
