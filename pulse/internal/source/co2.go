// CLAUDE:SUMMARY CO2 emissions adapter over the Our World in Data annual CSV, with a mirror fallback.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/jszwec/csvutil"

	"github.com/hazyhaar/worldpulse/fact"
)

const (
	// DefaultCO2URL is the canonical Global Carbon Budget CSV published by
	// Our World in Data.
	DefaultCO2URL = "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.csv"
	// DefaultCO2MirrorURL is OWID's object-storage mirror of the same file.
	DefaultCO2MirrorURL = "https://nyc3.digitaloceanspaces.com/owid-public/data/co2/owid-co2-data.csv"

	// The full dataset CSV runs tens of megabytes.
	co2MaxBytes = 96 << 20

	worldISO = "OWID_WRL"
)

// co2Row is the subset of CSV columns the adapter needs. csvutil ignores
// the remaining columns and decodes empty cells as zero values.
type co2Row struct {
	Country string  `csv:"country"`
	ISO     string  `csv:"iso_code"`
	Year    int     `csv:"year"`
	CO2     float64 `csv:"co2"` // million tonnes
}

// CO2Emissions reports annual fossil CO2 emissions in gigatonnes, broken
// down by the top emitting countries.
type CO2Emissions struct {
	client  *Client
	primary string
	mirror  string
	topN    int
	logger  *slog.Logger
}

// NewCO2Emissions builds the adapter. Empty URLs select the defaults.
func NewCO2Emissions(client *Client, logger *slog.Logger, primary, mirror string) *CO2Emissions {
	if primary == "" {
		primary = DefaultCO2URL
	}
	if mirror == "" {
		mirror = DefaultCO2MirrorURL
	}
	return &CO2Emissions{
		client:  client,
		primary: primary,
		mirror:  mirror,
		topN:    10,
		logger:  logger,
	}
}

func (a *CO2Emissions) Slug() string { return "co2-emissions" }

func (a *CO2Emissions) Fetch(ctx context.Context, hint Hint) (*fact.Payload, error) {
	return fetchFirst(ctx, a.logger, []Variant{
		{Name: "owid-github", Fetch: func(ctx context.Context) (*fact.Payload, error) {
			return a.fetchFrom(ctx, a.primary, hint)
		}},
		{Name: "owid-mirror", Fetch: func(ctx context.Context) (*fact.Payload, error) {
			return a.fetchFrom(ctx, a.mirror, hint)
		}},
	})
}

func (a *CO2Emissions) fetchFrom(ctx context.Context, url string, hint Hint) (*fact.Payload, error) {
	body, err := a.client.GetBytes(ctx, url, co2MaxBytes)
	if err != nil {
		return nil, err
	}
	return a.normalize(body, hint)
}

func (a *CO2Emissions) normalize(body []byte, hint Hint) (*fact.Payload, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// countries[iso] holds the value for the chosen year; worldByYear
	// drives year selection because the aggregate row lags individual
	// countries during the annual release.
	worldByYear := make(map[int]float64)
	type point struct {
		iso, name string
		year      int
		value     float64
	}
	var points []point

	for {
		var row co2Row
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if row.CO2 <= 0 {
			continue
		}
		switch {
		case row.ISO == worldISO:
			worldByYear[row.Year] = row.CO2
		case len(row.ISO) == 3:
			points = append(points, point{iso: row.ISO, name: row.Country, year: row.Year, value: row.CO2})
		}
	}

	year := 0
	for y := range worldByYear {
		if y > year {
			year = y
		}
	}
	if year == 0 {
		return nil, fmt.Errorf("%w: no world total in CSV", ErrMalformedResponse)
	}
	if hint.KnownYear > year {
		a.logger.Warn("csv lags behind detected source year",
			slog.Int("csv_year", year), slog.Int("known_year", hint.KnownYear))
	}

	var emitters []point
	for _, p := range points {
		if p.year == year {
			emitters = append(emitters, p)
		}
	}
	sort.Slice(emitters, func(i, j int) bool { return emitters[i].value > emitters[j].value })
	if len(emitters) > a.topN {
		emitters = emitters[:a.topN]
	}

	// Mt -> Gt.
	total := worldByYear[year] / 1000
	categories := make([]fact.Category, 0, a.topN+1)
	for _, e := range emitters {
		categories = append(categories, fact.Category{
			Key:   e.iso,
			Label: e.name,
			Value: e.value / 1000,
		})
	}
	categories = fact.FoldRemainder(categories, total, "rest", "Rest of world")

	payload := &fact.Payload{
		UnitLabel:  "gigatonnes CO2",
		DotValue:   0.1,
		Total:      total,
		Categories: categories,
		Notes:      fmt.Sprintf("Global Carbon Budget via Our World in Data, %d", year),
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return payload, nil
}
