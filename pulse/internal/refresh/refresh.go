// CLAUDE:SUMMARY Refresh orchestrator: rate gating, adapter invocation, status aggregation, attempt logging.
// Package refresh drives dataset refreshes. It owns the policy side of the
// pipeline — which datasets are due, what counts as too recent, how long an
// adapter may run — and delegates fetching to source adapters and
// persistence to the store.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/worldpulse/pulse/internal/source"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
)

// Trigger kinds recorded in the refresh log.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerWatchdog = "watchdog"
)

// defaultAdapterTimeout bounds one adapter invocation, fallback chain
// included.
const defaultAdapterTimeout = 2 * time.Minute

// Rate-gate thresholds. A dataset is due when its last refresh is older
// than the threshold for its rate class; manual datasets are never due on
// their own.
var gateThresholds = map[string]time.Duration{
	store.RateHourly: 30 * time.Minute,
	store.RateDaily:  16 * time.Hour,
	store.RateWeekly: 96 * time.Hour,
}

// Options controls a single refresh attempt.
type Options struct {
	// Force bypasses the rate gate (operator-triggered refresh).
	Force bool
	// FromWatchdog bypasses the rate gate because a probe already
	// established that the source changed.
	FromWatchdog bool
	// Trigger is recorded in the refresh log. Empty means TriggerSchedule.
	Trigger string
	// SourceYear, when positive, is the probe-detected data year to
	// persist alongside the payload.
	SourceYear int
}

// Outcome is the result of one dataset refresh attempt.
type Outcome struct {
	Slug       string `json:"slug"`
	Status     string `json:"status"`
	Changed    bool   `json:"changed,omitempty"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Hash       string `json:"hash,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Summary aggregates a batch run.
type Summary struct {
	Outcomes  []Outcome `json:"outcomes"`
	Refreshed int       `json:"refreshed"`
	Unchanged int       `json:"unchanged"`
	Errors    int       `json:"errors"`
	Skipped   int       `json:"skipped"`
	NoFetcher int       `json:"no_fetcher"`
}

func (s *Summary) observe(out Outcome) {
	s.Outcomes = append(s.Outcomes, out)
	switch out.Status {
	case store.StatusRefreshed:
		s.Refreshed++
	case store.StatusUnchanged:
		s.Unchanged++
	case store.StatusError:
		s.Errors++
	case store.StatusSkipped:
		s.Skipped++
	case store.StatusNoFetcher:
		s.NoFetcher++
	}
}

// Orchestrator runs refreshes against one store and one adapter registry.
type Orchestrator struct {
	store    *store.Store
	registry *source.Registry
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAdapterTimeout overrides the per-adapter deadline.
func WithAdapterTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New builds an Orchestrator.
func New(st *store.Store, reg *source.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		registry: reg,
		logger:   logger,
		timeout:  defaultAdapterTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll refreshes every enabled dataset sequentially, isolating failures:
// one broken adapter never stops the batch. force bypasses rate gating for
// all of them.
func (o *Orchestrator) RunAll(ctx context.Context, force bool) (*Summary, error) {
	datasets, err := o.store.ListEnabledDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	trigger := TriggerSchedule
	if force {
		trigger = TriggerManual
	}

	summary := &Summary{}
	for _, d := range datasets {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.observe(o.refresh(ctx, d, Options{Force: force, Trigger: trigger}))
	}

	o.logger.Info("refresh batch done",
		slog.Int("refreshed", summary.Refreshed),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("errors", summary.Errors),
		slog.Int("skipped", summary.Skipped),
		slog.Int("no_fetcher", summary.NoFetcher))
	return summary, nil
}

// RunOne refreshes a single dataset. Unknown slugs are an error (the
// caller asked for something that does not exist); everything downstream
// of that is reported inside the Outcome.
func (o *Orchestrator) RunOne(ctx context.Context, slug string, opts Options) (Outcome, error) {
	d, err := o.store.GetDataset(ctx, slug)
	if err != nil {
		return Outcome{}, err
	}
	if d == nil {
		return Outcome{}, fmt.Errorf("%w: %s", store.ErrUnknownDataset, slug)
	}
	if !d.Enabled && !opts.Force {
		return Outcome{Slug: slug, Status: store.StatusSkipped, Error: "dataset disabled"}, nil
	}
	return o.refresh(ctx, d, opts), nil
}

func (o *Orchestrator) refresh(ctx context.Context, d *store.Dataset, opts Options) Outcome {
	start := o.now()
	out := Outcome{Slug: d.Slug}
	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerSchedule
	}

	defer func() {
		out.DurationMs = o.now().Sub(start).Milliseconds()
		o.record(ctx, out, trigger)
	}()

	if !opts.Force && !opts.FromWatchdog && !o.due(d, start) {
		out.Status = store.StatusSkipped
		return out
	}

	adapter, ok := o.registry.Lookup(d.Slug)
	if !ok {
		out.Status = store.StatusNoFetcher
		return out
	}

	hint := source.Hint{KnownYear: opts.SourceYear}
	if hint.KnownYear == 0 && d.LatestSourceYear != nil {
		hint.KnownYear = int(*d.LatestSourceYear)
	}

	fctx, cancel := context.WithTimeout(ctx, o.timeout)
	payload, err := adapter.Fetch(fctx, hint)
	cancel()
	if err != nil {
		out.Status = store.StatusError
		out.Error = err.Error()
		o.logger.Error("refresh failed",
			slog.String("dataset", d.Slug),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		return out
	}

	res, err := o.store.AcceptPayload(ctx, d.Slug, payload, store.AcceptOptions{SourceYear: opts.SourceYear})
	if err != nil {
		out.Status = store.StatusError
		out.Error = err.Error()
		o.logger.Error("snapshot acceptance failed",
			slog.String("dataset", d.Slug),
			slog.String("error", err.Error()))
		return out
	}

	out.Changed = res.Changed
	out.SnapshotID = res.SnapshotID
	out.Hash = res.Hash
	if res.Changed {
		out.Status = store.StatusRefreshed
	} else {
		out.Status = store.StatusUnchanged
	}
	o.logger.Info("refresh done",
		slog.String("dataset", d.Slug),
		slog.String("status", out.Status),
		slog.String("trigger", trigger))
	return out
}

// due reports whether the dataset's rate class makes it eligible now.
func (o *Orchestrator) due(d *store.Dataset, now time.Time) bool {
	threshold, refreshable := gateThresholds[d.RefreshRate]
	if !refreshable {
		// manual (or unknown) rate: only force and watchdog get through.
		return false
	}
	if d.LastRefreshedAt == nil {
		return true
	}
	last := time.UnixMilli(*d.LastRefreshedAt)
	return now.Sub(last) >= threshold
}

// record writes the attempt to the refresh log. Log-write failures are
// logged and swallowed; history is best effort.
func (o *Orchestrator) record(ctx context.Context, out Outcome, trigger string) {
	entry := &store.RefreshLogEntry{
		DatasetSlug:  out.Slug,
		TriggerKind:  trigger,
		Status:       out.Status,
		SourceHash:   out.Hash,
		ErrorMessage: out.Error,
		DurationMs:   out.DurationMs,
	}
	if err := o.store.InsertRefreshLog(ctx, entry); err != nil {
		o.logger.Error("refresh log write failed",
			slog.String("dataset", out.Slug),
			slog.String("error", err.Error()))
	}
}
