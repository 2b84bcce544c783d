// CLAUDE:SUMMARY Daily watchdog orchestrator: concurrent probe fan-out, settle-all, gate-bypassing refresh on change.
// Package watchdog runs the daily probe batch over slow-moving datasets.
// Every probe settles — success, failure, or panic — before any outcome is
// reported, and a probe that detects fresh source data triggers an
// immediate refresh that bypasses the rate gate.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/worldpulse/pulse/internal/probe"
	"github.com/hazyhaar/worldpulse/pulse/internal/refresh"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
)

// defaultProbeTimeout bounds one probe check.
const defaultProbeTimeout = 30 * time.Second

// ErrNoProbe marks on-demand checks for datasets that have no probe.
var ErrNoProbe = errors.New("watchdog: no probe for dataset")

// Refresher is the slice of the refresh orchestrator the watchdog needs.
type Refresher interface {
	RunOne(ctx context.Context, slug string, opts refresh.Options) (refresh.Outcome, error)
}

// Check is the reported outcome of one probe, plus the refresh it
// triggered, if any.
type Check struct {
	Slug         string           `json:"slug"`
	Changed      bool             `json:"changed"`
	PreviousYear int              `json:"previous_year,omitempty"`
	DetectedYear int              `json:"detected_year,omitempty"`
	Method       string           `json:"method"`
	CheckedAt    time.Time        `json:"checked_at"`
	Error        string           `json:"error,omitempty"`
	Refresh      *refresh.Outcome `json:"refresh,omitempty"`
}

// Summary aggregates a watchdog batch.
type Summary struct {
	Checks    []Check `json:"checks"`
	Checked   int     `json:"checked"`
	Changed   int     `json:"changed"`
	Errors    int     `json:"errors"`
	Refreshes int     `json:"refreshes"`
}

func (s *Summary) observe(c Check) {
	s.Checks = append(s.Checks, c)
	s.Checked++
	if c.Changed {
		s.Changed++
	}
	if c.Error != "" {
		s.Errors++
	}
	if c.Refresh != nil {
		s.Refreshes++
	}
}

// Orchestrator runs the probe set against the store.
type Orchestrator struct {
	store     *store.Store
	probes    *probe.Set
	refresher Refresher
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProbeTimeout overrides the per-probe deadline.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New builds an Orchestrator.
func New(st *store.Store, probes *probe.Set, refresher Refresher, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		probes:    probes,
		refresher: refresher,
		logger:    logger,
		timeout:   defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll probes every slow-moving enabled dataset that has a probe. The
// fan-out is concurrent; persistence is sequential after all probes have
// settled, so a slow probe delays but never loses its peers' results.
func (o *Orchestrator) RunAll(ctx context.Context) (*Summary, error) {
	datasets, err := o.store.ListSlowDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	type job struct {
		p        probe.Probe
		prevYear int
	}
	var jobs []job
	for _, d := range datasets {
		p, ok := o.probes.Lookup(d.Slug)
		if !ok {
			continue
		}
		jobs = append(jobs, job{p: p, prevYear: yearOf(d)})
	}

	results := make([]probe.Result, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			results[i] = o.check(ctx, j.p, j.prevYear)
		}(i, j)
	}
	wg.Wait()

	summary := &Summary{}
	for _, res := range results {
		summary.observe(o.settle(ctx, res))
	}

	o.logger.Info("watchdog batch done",
		slog.Int("checked", summary.Checked),
		slog.Int("changed", summary.Changed),
		slog.Int("errors", summary.Errors),
		slog.Int("refreshes", summary.Refreshes))
	return summary, nil
}

// RunOne probes a single dataset on demand. Datasets without a probe are a
// caller error, matching the trigger API's 404 semantics.
func (o *Orchestrator) RunOne(ctx context.Context, slug string) (Check, error) {
	d, err := o.store.GetDataset(ctx, slug)
	if err != nil {
		return Check{}, err
	}
	if d == nil {
		return Check{}, fmt.Errorf("%w: %s", store.ErrUnknownDataset, slug)
	}
	p, ok := o.probes.Lookup(slug)
	if !ok {
		return Check{}, fmt.Errorf("%w: %s", ErrNoProbe, slug)
	}
	return o.settle(ctx, o.check(ctx, p, yearOf(d))), nil
}

// check runs one probe under its deadline. A panicking probe is recorded
// as an error result, not allowed to kill the batch.
func (o *Orchestrator) check(ctx context.Context, p probe.Probe, prevYear int) (res probe.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = probe.Result{
				Slug:         p.Slug(),
				PreviousYear: prevYear,
				CheckedAt:    time.Now().UTC(),
				Method:       "probe panicked",
				Err:          fmt.Errorf("probe panicked: %v", r),
			}
		}
	}()
	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return p.Check(cctx, prevYear)
}

// settle persists one probe result: the watchdog timestamp always moves,
// and a detected change triggers a gate-bypassing refresh carrying the
// detected year.
func (o *Orchestrator) settle(ctx context.Context, res probe.Result) Check {
	chk := Check{
		Slug:         res.Slug,
		Changed:      res.Changed,
		PreviousYear: res.PreviousYear,
		DetectedYear: res.DetectedYear,
		Method:       res.Method,
		CheckedAt:    res.CheckedAt,
		Error:        res.ErrString(),
	}

	if err := o.store.TouchWatchdog(ctx, res.Slug); err != nil {
		o.logger.Error("watchdog touch failed",
			slog.String("dataset", res.Slug),
			slog.String("error", err.Error()))
	}

	if res.Err != nil {
		o.logger.Warn("probe failed",
			slog.String("dataset", res.Slug),
			slog.String("error", res.Err.Error()))
		return chk
	}
	if !res.Changed {
		o.logger.Info("probe unchanged",
			slog.String("dataset", res.Slug),
			slog.String("method", res.Method))
		return chk
	}

	o.logger.Info("probe detected change",
		slog.String("dataset", res.Slug),
		slog.Int("previous_year", res.PreviousYear),
		slog.Int("detected_year", res.DetectedYear),
		slog.String("method", res.Method))

	out, err := o.refresher.RunOne(ctx, res.Slug, refresh.Options{
		FromWatchdog: true,
		Trigger:      refresh.TriggerWatchdog,
		SourceYear:   res.DetectedYear,
	})
	if err != nil {
		chk.Error = err.Error()
		return chk
	}
	chk.Refresh = &out
	return chk
}

func yearOf(d *store.Dataset) int {
	if d.LatestSourceYear == nil {
		return 0
	}
	return int(*d.LatestSourceYear)
}
