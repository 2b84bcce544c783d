// CLAUDE:SUMMARY Generic World Bank indicator breakdown adapter (military spending, population).
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/worldpulse/fact"
)

// entry pairs a World Bank country/aggregate code with its display label.
// Slice order fixes the category order in the payload.
type entry struct {
	Code  string
	Key   string
	Label string
}

// IndicatorAdapter builds a payload from one World Bank indicator: a fixed
// set of country/region codes for the breakdown plus the WLD aggregate for
// the total. It picks the newest year in the query window where the world
// total is published.
type IndicatorAdapter struct {
	slug      string
	indicator string
	entries   []entry
	divisor   float64
	unitLabel string
	dotValue  float64
	notesFmt  string
	restKey   string
	restLabel string

	wb  *WorldBank
	now func() time.Time
}

func (a *IndicatorAdapter) Slug() string { return a.slug }

// Fetch queries the indicator over a trailing window and normalizes the
// newest complete year. hint.KnownYear widens the window backward when the
// watchdog has already pinned a data year.
func (a *IndicatorAdapter) Fetch(ctx context.Context, hint Hint) (*fact.Payload, error) {
	to := a.now().Year()
	from := to - 5
	if hint.KnownYear > 0 && hint.KnownYear < from {
		from = hint.KnownYear
	}

	codes := make([]string, 0, len(a.entries)+1)
	for _, e := range a.entries {
		codes = append(codes, e.Code)
	}
	codes = append(codes, "WLD")

	obs, err := a.wb.Indicator(ctx, strings.Join(codes, ";"), a.indicator, from, to)
	if err != nil {
		return nil, err
	}

	year := latestWorldYear(obs)
	if year == 0 {
		return nil, fmt.Errorf("%w: no world total for %s in %d:%d", ErrMalformedResponse, a.indicator, from, to)
	}
	values := ValuesForYear(obs, year)

	categories := make([]fact.Category, 0, len(a.entries)+1)
	for _, e := range a.entries {
		v, ok := values[e.Code]
		if !ok {
			continue
		}
		categories = append(categories, fact.Category{Key: e.Key, Label: e.Label, Value: v / a.divisor})
	}
	total := values["WLD"] / a.divisor
	categories = fact.FoldRemainder(categories, total, a.restKey, a.restLabel)

	payload := &fact.Payload{
		UnitLabel:  a.unitLabel,
		DotValue:   a.dotValue,
		Total:      total,
		Categories: categories,
		Notes:      fmt.Sprintf(a.notesFmt, year),
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return payload, nil
}

// latestWorldYear returns the newest year with a non-null WLD observation.
func latestWorldYear(obs []Observation) int {
	latest := 0
	for _, o := range obs {
		if o.Country == "WLD" && o.Value != nil && o.Year > latest {
			latest = o.Year
		}
	}
	return latest
}

// NewMilitarySpending reports world military expenditure in USD billions,
// broken down by the largest spenders (SIPRI data republished by the World
// Bank as MS.MIL.XPND.CD, current USD).
func NewMilitarySpending(wb *WorldBank) *IndicatorAdapter {
	return &IndicatorAdapter{
		slug:      "military-spending",
		indicator: "MS.MIL.XPND.CD",
		entries: []entry{
			{"USA", "usa", "United States"},
			{"CHN", "china", "China"},
			{"RUS", "russia", "Russia"},
			{"IND", "india", "India"},
			{"SAU", "saudi-arabia", "Saudi Arabia"},
			{"GBR", "uk", "United Kingdom"},
			{"DEU", "germany", "Germany"},
			{"UKR", "ukraine", "Ukraine"},
			{"FRA", "france", "France"},
			{"JPN", "japan", "Japan"},
		},
		divisor:   1e9,
		unitLabel: "USD billions",
		dotValue:  10,
		notesFmt:  "SIPRI via World Bank, %d",
		restKey:   "rest",
		restLabel: "Rest of world",
		wb:        wb,
		now:       time.Now,
	}
}

// NewWorldPopulation reports world population in billions, broken down by
// World Bank regions (SP.POP.TOTL).
func NewWorldPopulation(wb *WorldBank) *IndicatorAdapter {
	return &IndicatorAdapter{
		slug:      "world-population",
		indicator: "SP.POP.TOTL",
		entries: []entry{
			{"EAS", "east-asia-pacific", "East Asia & Pacific"},
			{"SAS", "south-asia", "South Asia"},
			{"SSF", "sub-saharan-africa", "Sub-Saharan Africa"},
			{"ECS", "europe-central-asia", "Europe & Central Asia"},
			{"LCN", "latin-america", "Latin America & Caribbean"},
			{"MEA", "middle-east-north-africa", "Middle East & North Africa"},
			{"NAC", "north-america", "North America"},
		},
		divisor:   1e9,
		unitLabel: "billions of people",
		dotValue:  0.1,
		notesFmt:  "World Bank SP.POP.TOTL, %d",
		restKey:   "rest",
		restLabel: "Other regions",
		wb:        wb,
		now:       time.Now,
	}
}
