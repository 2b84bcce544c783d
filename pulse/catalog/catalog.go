// CLAUDE:SUMMARY Dataset catalog: built-in definitions, YAML overrides, idempotent seeding.
// Package catalog defines which datasets the pipeline tracks. The built-in
// catalog covers the production datasets; deployments can override it with
// a YAML file.
package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/worldpulse/horosafe"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
)

// Entry declares one dataset and its rendering grid.
type Entry struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	RefreshRate string `yaml:"refresh_rate"`
	GridTitle   string `yaml:"grid_title"`
	DotsPerRow  int    `yaml:"dots_per_row"`
}

var validRates = map[string]bool{
	store.RateHourly: true,
	store.RateDaily:  true,
	store.RateWeekly: true,
	store.RateManual: true,
}

func (e Entry) validate() error {
	if err := horosafe.ValidateSlug(e.Slug); err != nil {
		return err
	}
	if e.Name == "" {
		return fmt.Errorf("catalog: %s: name is required", e.Slug)
	}
	if !validRates[e.RefreshRate] {
		return fmt.Errorf("catalog: %s: invalid refresh_rate %q", e.Slug, e.RefreshRate)
	}
	return nil
}

// Builtin returns the production catalog.
func Builtin() []Entry {
	return []Entry{
		{
			Slug:        "co2-emissions",
			Name:        "Global CO2 emissions",
			RefreshRate: store.RateManual,
			GridTitle:   "Annual CO2 emissions by country",
			DotsPerRow:  10,
		},
		{
			Slug:        "military-spending",
			Name:        "World military spending",
			RefreshRate: store.RateWeekly,
			GridTitle:   "Military expenditure by country",
			DotsPerRow:  10,
		},
		{
			Slug:        "world-population",
			Name:        "World population",
			RefreshRate: store.RateWeekly,
			GridTitle:   "Population by region",
			DotsPerRow:  10,
		},
		{
			Slug:        "bitcoin-price",
			Name:        "Bitcoin price",
			RefreshRate: store.RateHourly,
			GridTitle:   "Bitcoin spot price",
			DotsPerRow:  10,
		},
		{
			Slug:        "renewable-capacity",
			Name:        "Renewable power capacity",
			RefreshRate: store.RateManual,
			GridTitle:   "Installed renewable capacity by region",
			DotsPerRow:  10,
		},
	}
}

// LoadFile reads a catalog override from a YAML file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Seed inserts missing datasets and their grids. Existing datasets are
// left untouched so operator edits (rates, enabled flags) survive
// restarts. Returns how many datasets were created.
func Seed(ctx context.Context, st *store.Store, entries []Entry) (int, error) {
	created := 0
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return created, err
		}
		existing, err := st.GetDataset(ctx, e.Slug)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		d := &store.Dataset{
			Slug:        e.Slug,
			Name:        e.Name,
			RefreshRate: e.RefreshRate,
			Enabled:     true,
		}
		if err := st.InsertDataset(ctx, d); err != nil {
			return created, fmt.Errorf("catalog: insert %s: %w", e.Slug, err)
		}
		dots := e.DotsPerRow
		if dots <= 0 {
			dots = 10
		}
		title := e.GridTitle
		if title == "" {
			title = e.Name
		}
		g := &store.Grid{
			DatasetID:  d.ID,
			Title:      title,
			DotsPerRow: dots,
		}
		if err := st.InsertGrid(ctx, g); err != nil {
			return created, fmt.Errorf("catalog: insert grid for %s: %w", e.Slug, err)
		}
		created++
	}
	return created, nil
}
