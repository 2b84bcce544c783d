// CLAUDE:SUMMARY Typed client for the World Bank indicator API (v2, JSON).
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// DefaultWorldBankBase is the production World Bank API host.
const DefaultWorldBankBase = "https://api.worldbank.org"

// WorldBank queries the v2 indicator API. The response format is a
// two-element JSON array: [metadata, observations].
type WorldBank struct {
	client *Client
	base   string
}

// NewWorldBank builds a WorldBank client on top of a shared Client.
// base is the API host; empty means DefaultWorldBankBase.
func NewWorldBank(client *Client, base string) *WorldBank {
	if base == "" {
		base = DefaultWorldBankBase
	}
	return &WorldBank{client: client, base: base}
}

// Observation is one country/year data point. Value is nil when the API
// reports null (year not yet published).
type Observation struct {
	Country string
	Year    int
	Value   *float64
}

// wire types for the v2 JSON format.
type wbRef struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type wbPoint struct {
	Country wbRef    `json:"country"`
	Date    string   `json:"date"`
	Value   *float64 `json:"value"`
}

// Indicator fetches indicator values for the given countries over the
// inclusive year range [from, to]. countries is a semicolon-joined list of
// ISO codes (or aggregates like "WLD").
func (w *WorldBank) Indicator(ctx context.Context, countries, indicator string, from, to int) ([]Observation, error) {
	u := fmt.Sprintf("%s/v2/country/%s/indicator/%s?%s",
		w.base,
		url.PathEscape(countries),
		url.PathEscape(indicator),
		url.Values{
			"format":   {"json"},
			"date":     {fmt.Sprintf("%d:%d", from, to)},
			"per_page": {"2000"},
		}.Encode())

	var raw []json.RawMessage
	if err := w.client.GetJSON(ctx, u, &raw); err != nil {
		return nil, err
	}
	// [metadata, points]. An error response is a one-element array with a
	// message object instead.
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: worldbank returned %d top-level elements", ErrMalformedResponse, len(raw))
	}
	var points []wbPoint
	if err := json.Unmarshal(raw[1], &points); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	obs := make([]Observation, 0, len(points))
	for _, p := range points {
		var year int
		if _, err := fmt.Sscanf(p.Date, "%d", &year); err != nil {
			continue
		}
		obs = append(obs, Observation{Country: p.Country.ID, Year: year, Value: p.Value})
	}
	return obs, nil
}

// LatestYear returns the newest year across obs that has at least one
// non-null value, or 0 if none do.
func LatestYear(obs []Observation) int {
	latest := 0
	for _, o := range obs {
		if o.Value != nil && o.Year > latest {
			latest = o.Year
		}
	}
	return latest
}

// ValuesForYear returns country → value for all non-null observations in
// the given year.
func ValuesForYear(obs []Observation, year int) map[string]float64 {
	m := make(map[string]float64)
	for _, o := range obs {
		if o.Year == year && o.Value != nil {
			m[o.Country] = *o.Value
		}
	}
	return m
}
