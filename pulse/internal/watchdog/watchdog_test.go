package watchdog

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/worldpulse/pulse/internal/probe"
	"github.com/hazyhaar/worldpulse/pulse/internal/refresh"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
)

// stubProbe satisfies probe.Probe with a canned result (or panic).
type stubProbe struct {
	slug   string
	result probe.Result
	panics bool
}

func (p *stubProbe) Slug() string { return p.slug }

func (p *stubProbe) Check(_ context.Context, prevYear int) probe.Result {
	if p.panics {
		panic("probe blew up")
	}
	r := p.result
	r.Slug = p.slug
	r.PreviousYear = prevYear
	r.CheckedAt = time.Now().UTC()
	return r
}

// stubRefresher records RunOne invocations.
type stubRefresher struct {
	calls []refresh.Options
	slugs []string
	err   error
}

func (r *stubRefresher) RunOne(_ context.Context, slug string, opts refresh.Options) (refresh.Outcome, error) {
	r.slugs = append(r.slugs, slug)
	r.calls = append(r.calls, opts)
	if r.err != nil {
		return refresh.Outcome{}, r.err
	}
	return refresh.Outcome{Slug: slug, Status: store.StatusRefreshed, Changed: true}, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON")
	if err := store.ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewStore(db)
}

func seed(t *testing.T, st *store.Store, slug, rate string, year int) {
	t.Helper()
	d := &store.Dataset{Slug: slug, Name: slug, RefreshRate: rate, Enabled: true}
	if year > 0 {
		y := int64(year)
		d.LatestSourceYear = &y
	}
	if err := st.InsertDataset(context.Background(), d); err != nil {
		t.Fatalf("insert dataset %s: %v", slug, err)
	}
}

func newOrchestrator(st *store.Store, set *probe.Set, r Refresher) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, set, r, logger)
}

// WHAT: a batch settles every probe — one failing and one panicking probe
// do not stop the changed one from triggering its refresh, and every
// probed dataset gets its watchdog timestamp moved.
func TestRunAll_SettlesEverything(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seed(t, st, "co2-emissions", store.RateManual, 2023)
	seed(t, st, "military-spending", store.RateWeekly, 2023)
	seed(t, st, "world-population", store.RateWeekly, 2023)
	seed(t, st, "bitcoin-price", store.RateHourly, 0) // fast: not probed

	set := probe.NewSet(
		&stubProbe{slug: "co2-emissions", result: probe.Result{Changed: true, DetectedYear: 2024, Method: "commit message mentions 2024"}},
		&stubProbe{slug: "military-spending", result: probe.Result{Err: errors.New("api down"), Method: "indicator year scan failed"}},
		&stubProbe{slug: "world-population", panics: true},
	)
	r := &stubRefresher{}

	summary, err := newOrchestrator(st, set, r).RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if summary.Checked != 3 {
		t.Fatalf("checked = %d, want 3", summary.Checked)
	}
	if summary.Changed != 1 || summary.Refreshes != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Errors != 2 {
		t.Fatalf("errors = %d, want 2 (failure + panic)", summary.Errors)
	}

	if len(r.slugs) != 1 || r.slugs[0] != "co2-emissions" {
		t.Fatalf("refresher called for %v, want [co2-emissions]", r.slugs)
	}
	opts := r.calls[0]
	if !opts.FromWatchdog || opts.SourceYear != 2024 || opts.Trigger != refresh.TriggerWatchdog {
		t.Fatalf("unexpected refresh options: %+v", opts)
	}

	for _, slug := range []string{"co2-emissions", "military-spending", "world-population"} {
		d, err := st.GetDataset(ctx, slug)
		if err != nil {
			t.Fatalf("get %s: %v", slug, err)
		}
		if d.LastWatchdogAt == nil {
			t.Errorf("%s: watchdog timestamp not moved", slug)
		}
	}
}

// WHAT: a failed probe never reports change downstream.
func TestRunAll_FailedProbeNoRefresh(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seed(t, st, "military-spending", store.RateWeekly, 2023)

	set := probe.NewSet(&stubProbe{
		slug:   "military-spending",
		result: probe.Result{Err: errors.New("api down")},
	})
	r := &stubRefresher{}

	summary, err := newOrchestrator(st, set, r).RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if summary.Refreshes != 0 || len(r.slugs) != 0 {
		t.Fatalf("refresh triggered by failed probe: %+v", summary)
	}
}

// WHAT: a refresh failure after a positive probe surfaces in the check.
// WHY: the detected year must not be advanced silently when ingestion
// failed; the next daily run will detect the change again.
func TestRunAll_RefreshFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seed(t, st, "co2-emissions", store.RateManual, 2023)

	set := probe.NewSet(&stubProbe{
		slug:   "co2-emissions",
		result: probe.Result{Changed: true, DetectedYear: 2024, Method: "commit message mentions 2024"},
	})
	r := &stubRefresher{err: errors.New("store locked")}

	summary, err := newOrchestrator(st, set, r).RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	chk := summary.Checks[0]
	if chk.Error != "store locked" || chk.Refresh != nil {
		t.Fatalf("unexpected check: %+v", chk)
	}
	d, _ := st.GetDataset(ctx, "co2-emissions")
	if d.LatestSourceYear == nil || *d.LatestSourceYear != 2023 {
		t.Fatalf("latest_source_year = %v, want unchanged 2023", d.LatestSourceYear)
	}
}

// WHAT: RunOne rejects datasets without a probe and unknown slugs.
func TestRunOne_Errors(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seed(t, st, "bitcoin-price", store.RateHourly, 0)

	o := newOrchestrator(st, probe.NewSet(), &stubRefresher{})
	if _, err := o.RunOne(ctx, "bitcoin-price"); err == nil {
		t.Fatal("expected error for dataset without probe")
	}
	if _, err := o.RunOne(ctx, "nope"); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

// WHAT: RunOne passes the stored year to the probe and settles the result.
func TestRunOne_ProbesWithStoredYear(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seed(t, st, "military-spending", store.RateWeekly, 2023)

	set := probe.NewSet(&stubProbe{
		slug:   "military-spending",
		result: probe.Result{Changed: true, DetectedYear: 2024, Method: "latest published year for MS.MIL.XPND.CD advanced to 2024"},
	})
	r := &stubRefresher{}

	chk, err := newOrchestrator(st, set, r).RunOne(ctx, "military-spending")
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if chk.PreviousYear != 2023 || chk.DetectedYear != 2024 || !chk.Changed {
		t.Fatalf("unexpected check: %+v", chk)
	}
	if chk.Refresh == nil || chk.Refresh.Status != store.StatusRefreshed {
		t.Fatalf("expected triggered refresh, got %+v", chk.Refresh)
	}
}
