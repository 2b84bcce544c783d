// CLAUDE:SUMMARY Normalized payload contract shared by adapters, the snapshot store, and rendering consumers.
// Package fact defines the normalized payload every source adapter produces
// and the canonical fingerprint used for change detection.
//
// The payload is the only contract between the ingestion pipeline and the
// dot-grid rendering side: a display unit, a per-dot value, a total, and an
// ordered category breakdown.
package fact

import (
	"fmt"
	"math"
)

// Category is one bucket of a payload breakdown. Order is significant and
// chosen by the adapter.
type Category struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Payload is a normalized fact: unit conversion, totals, and remainder
// folding all happen inside the adapter, never downstream.
type Payload struct {
	UnitLabel  string     `json:"unitLabel"`
	DotValue   float64    `json:"dotValue"`
	Total      float64    `json:"total"`
	Categories []Category `json:"categories"`
	Notes      string     `json:"notes,omitempty"`
}

// Validate checks the shape contract callers rely on after any fetch,
// primary or fallback.
func (p *Payload) Validate() error {
	if p.UnitLabel == "" {
		return fmt.Errorf("fact: payload missing unitLabel")
	}
	if p.Total <= 0 {
		return fmt.Errorf("fact: payload total must be positive, got %v", p.Total)
	}
	if p.DotValue <= 0 {
		return fmt.Errorf("fact: payload dotValue must be positive, got %v", p.DotValue)
	}
	if len(p.Categories) == 0 {
		return fmt.Errorf("fact: payload has no categories")
	}
	for i, c := range p.Categories {
		if c.Key == "" {
			return fmt.Errorf("fact: category %d missing key", i)
		}
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return fmt.Errorf("fact: category %q has non-finite value", c.Key)
		}
	}
	return nil
}

// FoldRemainder appends a rest bucket so the categories sum to total.
// A remainder below 0.5% of total is treated as rounding noise and dropped
// rather than producing a sliver bucket; a negative remainder is an adapter
// bug and left alone for Validate to surface downstream.
func FoldRemainder(categories []Category, total float64, key, label string) []Category {
	var sum float64
	for _, c := range categories {
		sum += c.Value
	}
	rest := total - sum
	if rest <= total*0.005 {
		return categories
	}
	return append(categories, Category{Key: key, Label: label, Value: rest})
}
