package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(WithHTTPClient(srv.Client()))
}

// WHAT: non-2xx statuses map to ErrUpstreamUnavailable.
// WHY: the refresh orchestrator branches on this sentinel for its status
// taxonomy, so the mapping must hold for every adapter.
func TestClient_StatusMapsToUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetBytes(context.Background(), srv.URL, 1<<20)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

// WHAT: broken JSON maps to ErrMalformedResponse.
func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "{not json")
	}))
	defer srv.Close()

	var out map[string]any
	err := testClient(srv).GetJSON(context.Background(), srv.URL, &out)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	client := NewClient()
	wb := NewWorldBank(client, "")
	reg := NewRegistry(NewMilitarySpending(wb), NewWorldPopulation(wb))

	if _, ok := reg.Lookup("military-spending"); !ok {
		t.Fatal("military-spending not registered")
	}
	if _, ok := reg.Lookup("no-such-dataset"); ok {
		t.Fatal("unexpected adapter for unknown slug")
	}
	slugs := reg.Slugs()
	if len(slugs) != 2 || slugs[0] != "military-spending" || slugs[1] != "world-population" {
		t.Fatalf("unexpected slugs: %v", slugs)
	}
}

const wbMilitaryBody = `[
  {"page": 1, "pages": 1, "per_page": 2000, "total": 6},
  [
    {"country": {"id": "WLD", "value": "World"}, "date": "2024", "value": null},
    {"country": {"id": "WLD", "value": "World"}, "date": "2023", "value": 2400000000000},
    {"country": {"id": "USA", "value": "United States"}, "date": "2023", "value": 900000000000},
    {"country": {"id": "CHN", "value": "China"}, "date": "2023", "value": 300000000000},
    {"country": {"id": "USA", "value": "United States"}, "date": "2022", "value": 880000000000},
    {"country": {"id": "RUS", "value": "Russia"}, "date": "2023", "value": null}
  ]
]`

// WHAT: the indicator adapter picks the newest year with a published world
// total, converts units, and folds the remainder.
// WHY: upstream publishes null placeholders for the current year; selecting
// it would produce a zero-total payload.
func TestIndicatorAdapter_PicksNewestCompleteYear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, wbMilitaryBody)
	}))
	defer srv.Close()

	a := NewMilitarySpending(NewWorldBank(testClient(srv), srv.URL))
	a.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	payload, err := a.Fetch(context.Background(), Hint{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload.Total != 2400 {
		t.Fatalf("total = %v, want 2400 (USD billions)", payload.Total)
	}
	if payload.Notes != "SIPRI via World Bank, 2023" {
		t.Fatalf("notes = %q", payload.Notes)
	}
	// usa, china, rest — RUS was null and must be absent, the remainder
	// folded into a rest bucket.
	if len(payload.Categories) != 3 {
		t.Fatalf("got %d categories: %+v", len(payload.Categories), payload.Categories)
	}
	if payload.Categories[0].Key != "usa" || payload.Categories[0].Value != 900 {
		t.Fatalf("unexpected first category: %+v", payload.Categories[0])
	}
	rest := payload.Categories[2]
	if rest.Key != "rest" || rest.Value != 2400-900-300 {
		t.Fatalf("unexpected rest bucket: %+v", rest)
	}
}

// WHAT: a one-element top-level array (the API's error shape) is rejected
// as malformed rather than treated as an empty result.
func TestWorldBank_ErrorShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"message":[{"id":"120","value":"Invalid indicator"}]}]`)
	}))
	defer srv.Close()

	wb := NewWorldBank(testClient(srv), srv.URL)
	_, err := wb.Indicator(context.Background(), "WLD", "BOGUS", 2020, 2024)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

// WHAT: the price chain falls through a dead exchange and a malformed one
// to the last healthy exchange.
// WHY: fallback order must not mask which upstream actually served the
// data, so the notes carry the exchange name.
func TestBitcoinPrice_FallbackChain(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()
	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"data":{"amount":"not-a-price","currency":"USD"}}`)
	}))
	defer malformed.Close()
	kraken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"error":[],"result":{"XXBTZUSD":{"c":["64250.5","1.2"]}}}`)
	}))
	defer kraken.Close()

	a := NewBitcoinPrice(NewClient(), testLogger(), dead.URL, malformed.URL, kraken.URL)
	payload, err := a.Fetch(context.Background(), Hint{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload.Total != 64250.5 {
		t.Fatalf("total = %v, want 64250.5", payload.Total)
	}
	if payload.Notes != "Spot price via Kraken" {
		t.Fatalf("notes = %q", payload.Notes)
	}
}

// WHAT: when every exchange fails, the error wraps ErrAllFallbacksExhausted
// and the last underlying cause.
func TestBitcoinPrice_AllFail(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	a := NewBitcoinPrice(NewClient(), testLogger(), dead.URL, dead.URL, dead.URL)
	_, err := a.Fetch(context.Background(), Hint{})
	if !errors.Is(err, ErrAllFallbacksExhausted) {
		t.Fatalf("expected ErrAllFallbacksExhausted, got %v", err)
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected wrapped ErrUpstreamUnavailable, got %v", err)
	}
}

const co2CSV = `country,iso_code,year,co2,co2_per_capita
World,OWID_WRL,2022,37100,
World,OWID_WRL,2023,37400,4.6
China,CHN,2023,11400,8.0
United States,USA,2023,4900,14.9
India,IND,2023,2800,2.0
Asia,,2023,22000,
China,CHN,2022,11300,7.9
`

// WHAT: CSV normalization keeps country rows, drops aggregates without an
// ISO code, selects the newest world year, and converts Mt to Gt.
func TestCO2_Normalize(t *testing.T) {
	a := NewCO2Emissions(NewClient(), testLogger(), "", "")
	payload, err := a.normalize([]byte(co2CSV), Hint{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if payload.Total != 37.4 {
		t.Fatalf("total = %v, want 37.4", payload.Total)
	}
	if payload.Notes != "Global Carbon Budget via Our World in Data, 2023" {
		t.Fatalf("notes = %q", payload.Notes)
	}
	// CHN, USA, IND sorted by value, then the rest bucket. The "Asia"
	// aggregate has no ISO code and must not appear.
	if len(payload.Categories) != 4 {
		t.Fatalf("got %d categories: %+v", len(payload.Categories), payload.Categories)
	}
	if payload.Categories[0].Key != "CHN" || payload.Categories[0].Value != 11.4 {
		t.Fatalf("unexpected first category: %+v", payload.Categories[0])
	}
	if payload.Categories[3].Key != "rest" {
		t.Fatalf("expected rest bucket last, got %+v", payload.Categories[3])
	}
}

// WHAT: a CSV without a world total is malformed, not a zero payload.
func TestCO2_NoWorldRow(t *testing.T) {
	a := NewCO2Emissions(NewClient(), testLogger(), "", "")
	_, err := a.normalize([]byte("country,iso_code,year,co2\nChina,CHN,2023,11400\n"), Hint{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

// WHAT: the CO2 chain falls back to the mirror when the primary URL is
// down and the resulting payloads are identical in content.
func TestCO2_MirrorFallback(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, co2CSV)
	}))
	defer mirror.Close()

	a := NewCO2Emissions(testClient(mirror), testLogger(), dead.URL, mirror.URL)
	payload, err := a.Fetch(context.Background(), Hint{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload.Total != 37.4 {
		t.Fatalf("total = %v, want 37.4", payload.Total)
	}
}

const renewablesHTML = `<html><head><title>Statistics</title></head><body>
<h2>Renewable capacity by region, 2024</h2>
<table>
  <tr><th>Region</th><th>Capacity (MW)</th></tr>
  <tr><td>Asia</td><td>2,100,000</td></tr>
  <tr><td>Europe</td><td>800,000</td></tr>
  <tr><td>North America</td><td>550,000</td></tr>
  <tr><td>World</td><td>3,870,000</td></tr>
</table>
</body></html>`

// WHAT: the scrape parses comma-grouped megawatt cells, converts to GW,
// uses the World row as the total, and picks the year out of the heading.
func TestRenewables_Normalize(t *testing.T) {
	a := NewRenewableCapacity(NewClient(), "")
	payload, err := a.normalize([]byte(renewablesHTML))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if payload.Total != 3870 {
		t.Fatalf("total = %v, want 3870", payload.Total)
	}
	if payload.Categories[0].Key != "asia" || payload.Categories[0].Value != 2100 {
		t.Fatalf("unexpected first category: %+v", payload.Categories[0])
	}
	if payload.Categories[2].Key != "north-america" {
		t.Fatalf("unexpected third category: %+v", payload.Categories[2])
	}
	// 3870 - 3450 = 420 GW of unlisted regions must be folded.
	last := payload.Categories[len(payload.Categories)-1]
	if last.Key != "rest" || last.Value != 420 {
		t.Fatalf("unexpected rest bucket: %+v", last)
	}
	if payload.Notes != "IRENA renewable capacity statistics, 2024" {
		t.Fatalf("notes = %q", payload.Notes)
	}
}

// WHAT: a page without a World row fails loudly instead of guessing a
// total from partial rows.
func TestRenewables_MissingWorldRow(t *testing.T) {
	a := NewRenewableCapacity(NewClient(), "")
	_, err := a.normalize([]byte(`<table><tr><td>Asia</td><td>2,100,000</td></tr></table>`))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
