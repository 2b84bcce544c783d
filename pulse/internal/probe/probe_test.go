package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/worldpulse/pulse/internal/source"
)

func githubServer(t *testing.T, message, date string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[{"commit":{"message":%q,"committer":{"date":%q}}}]`, message, date)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func commitProbeAt(srv *httptest.Server, releaseMonth time.Month, now time.Time) *CommitProbe {
	p := NewCommitProbe("co2-emissions", "owid", "co2-data", "owid-co2-data.csv", releaseMonth,
		WithGitHubBase(srv.URL), WithHTTPClient(srv.Client()))
	p.now = func() time.Time { return now }
	return p
}

// WHAT: an explicit year in the commit message past the known data year
// flags change immediately.
func TestCommitProbe_ExplicitYearWins(t *testing.T) {
	srv := githubServer(t, "Add 2025 preliminary data", "2025-02-10T09:00:00Z")
	p := commitProbeAt(srv, time.October, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	res := p.Check(context.Background(), 2024)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Changed || res.DetectedYear != 2025 {
		t.Fatalf("changed=%v detected=%d, want changed with 2025", res.Changed, res.DetectedYear)
	}
	if res.Method != "commit message mentions 2025" {
		t.Fatalf("method = %q", res.Method)
	}
}

// WHAT: a commit naming the already-known year still flags change when it
// lands inside the publisher's annual release window.
// WHY: "Update data through 2024" pushed in November 2024 is the 2024
// release landing, not a repeat of something already ingested.
func TestCommitProbe_ReleaseWindowCatchesSameYearMention(t *testing.T) {
	srv := githubServer(t, "Update data through 2024", "2024-11-15T12:00:00Z")
	p := commitProbeAt(srv, time.November, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))

	res := p.Check(context.Background(), 2024)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Changed {
		t.Fatal("expected release-window signal to fire")
	}
	if res.DetectedYear != 2024 {
		t.Fatalf("detected = %d, want 2024", res.DetectedYear)
	}
	if res.Method != "commit dated 2024-11-15 inside annual release window" {
		t.Fatalf("method = %q", res.Method)
	}
}

// WHAT: a commit dated past the known data year flags change even outside
// the release window.
func TestCommitProbe_NewerCommitYear(t *testing.T) {
	srv := githubServer(t, "Fix typo", "2025-01-05T08:00:00Z")
	p := commitProbeAt(srv, time.October, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	res := p.Check(context.Background(), 2024)
	if !res.Changed || res.DetectedYear != 2025 {
		t.Fatalf("changed=%v detected=%d, want changed with 2025", res.Changed, res.DetectedYear)
	}
}

// WHAT: an off-season maintenance commit produces no signal.
func TestCommitProbe_NoSignal(t *testing.T) {
	srv := githubServer(t, "Refactor build scripts", "2024-03-10T08:00:00Z")
	p := commitProbeAt(srv, time.October, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	res := p.Check(context.Background(), 2024)
	if res.Changed {
		t.Fatalf("unexpected change: %+v", res)
	}
	if res.Method != "no release signal in latest commit" {
		t.Fatalf("method = %q", res.Method)
	}
}

// WHAT: upstream failure is captured inside the result, never returned.
// WHY: the daily batch settles all probes; one dead API must not abort
// the rest or be mistaken for "no change".
func TestCommitProbe_ErrorCaptured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	p := commitProbeAt(srv, time.October, time.Now())

	res := p.Check(context.Background(), 2024)
	if res.Err == nil {
		t.Fatal("expected captured error")
	}
	if res.Changed {
		t.Fatal("a failed probe must not report change")
	}
}

func TestMaxMentionedYear(t *testing.T) {
	cases := []struct {
		message string
		want    int
	}{
		{"Update data through 2024", 2024},
		{"Fix 2023 typo in 2024 data", 2024},
		{"Back to 1999 formats", 0},
		{"Bump version 1.2.3", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := maxMentionedYear(tc.message); got != tc.want {
			t.Errorf("maxMentionedYear(%q) = %d, want %d", tc.message, got, tc.want)
		}
	}
}

func wbYearServer(t *testing.T, latestYear int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[{"page":1},[
			{"country":{"id":"WLD","value":"World"},"date":"%d","value":null},
			{"country":{"id":"WLD","value":"World"},"date":"%d","value":2400000000000},
			{"country":{"id":"WLD","value":"World"},"date":"%d","value":2200000000000}
		]]`, latestYear+1, latestYear, latestYear-1)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func yearScanAt(srv *httptest.Server, now time.Time) *YearScanProbe {
	wb := source.NewWorldBank(source.NewClient(source.WithHTTPClient(srv.Client())), srv.URL)
	p := NewYearScanProbe("military-spending", wb, "WLD", "MS.MIL.XPND.CD")
	p.now = func() time.Time { return now }
	return p
}

// WHAT: the year scan flags change when the newest non-null year advances
// past the known one, ignoring null placeholders for the current year.
func TestYearScanProbe_DetectsAdvance(t *testing.T) {
	srv := wbYearServer(t, 2024)
	p := yearScanAt(srv, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	res := p.Check(context.Background(), 2023)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Changed || res.DetectedYear != 2024 {
		t.Fatalf("changed=%v detected=%d, want changed with 2024", res.Changed, res.DetectedYear)
	}
}

// WHAT: an unchanged latest year reports the year without flagging change.
func TestYearScanProbe_NoAdvance(t *testing.T) {
	srv := wbYearServer(t, 2024)
	p := yearScanAt(srv, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	res := p.Check(context.Background(), 2024)
	if res.Changed {
		t.Fatalf("unexpected change: %+v", res)
	}
	if res.DetectedYear != 2024 {
		t.Fatalf("detected = %d, want 2024", res.DetectedYear)
	}
}

// WHAT: a dead indicator API is captured in the result.
func TestYearScanProbe_ErrorCaptured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"message":"oops"}]`)
	}))
	defer srv.Close()
	p := yearScanAt(srv, time.Now())

	res := p.Check(context.Background(), 2023)
	if res.Err == nil {
		t.Fatal("expected captured error")
	}
	if res.Changed {
		t.Fatal("a failed probe must not report change")
	}
}

func TestSet_AllSorted(t *testing.T) {
	wb := source.NewWorldBank(source.NewClient(), "")
	set := NewSet(
		NewYearScanProbe("world-population", wb, "WLD", "SP.POP.TOTL"),
		NewYearScanProbe("military-spending", wb, "WLD", "MS.MIL.XPND.CD"),
	)
	all := set.All()
	if len(all) != 2 || all[0].Slug() != "military-spending" || all[1].Slug() != "world-population" {
		t.Fatalf("unexpected order: %v, %v", all[0].Slug(), all[1].Slug())
	}
	if _, ok := set.Lookup("bitcoin-price"); ok {
		t.Fatal("unexpected probe for fast-moving dataset")
	}
}
