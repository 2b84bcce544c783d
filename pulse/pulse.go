// CLAUDE:SUMMARY Public facade: wires store, adapters, probes, orchestrators, and the scheduler into one Service.
// Package pulse tracks external data sources for dot-grid visualizations:
// it refreshes datasets on rate-classed cadences, detects content changes
// by canonical fingerprint, keeps an append-only snapshot history, and runs
// a daily watchdog that spots new annual data releases early.
package pulse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/worldpulse/pulse/catalog"
	"github.com/hazyhaar/worldpulse/pulse/internal/probe"
	"github.com/hazyhaar/worldpulse/pulse/internal/refresh"
	"github.com/hazyhaar/worldpulse/pulse/internal/scheduler"
	"github.com/hazyhaar/worldpulse/pulse/internal/source"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
	"github.com/hazyhaar/worldpulse/pulse/internal/watchdog"
)

// Service is the assembled pipeline.
type Service struct {
	store     *store.Store
	refresher *refresh.Orchestrator
	watchdog  *watchdog.Orchestrator
	scheduler *scheduler.Scheduler
	cfg       *Config
	logger    *slog.Logger

	registry *source.Registry
	probes   *probe.Set
}

// Option customizes Service construction.
type Option func(*Service)

// WithRegistry replaces the default adapter registry (tests inject stub
// adapters through this).
func WithRegistry(reg *source.Registry) Option {
	return func(s *Service) { s.registry = reg }
}

// WithProbes replaces the default probe set.
func WithProbes(set *probe.Set) Option {
	return func(s *Service) { s.probes = set }
}

// New assembles a Service on an already-opened database. The schema is not
// applied here; call Init before Run.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...Option) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		store:  store.NewStore(db),
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = source.NewDefaultRegistry(logger)
	}
	if s.probes == nil {
		client := source.NewClient()
		s.probes = probe.NewDefaultSet(source.NewWorldBank(client, ""), cfg.GitHubToken)
	}

	var refresherOpts []refresh.Option
	if cfg.AdapterTimeout > 0 {
		refresherOpts = append(refresherOpts, refresh.WithAdapterTimeout(cfg.AdapterTimeout))
	}
	s.refresher = refresh.New(s.store, s.registry, logger, refresherOpts...)

	var watchdogOpts []watchdog.Option
	if cfg.ProbeTimeout > 0 {
		watchdogOpts = append(watchdogOpts, watchdog.WithProbeTimeout(cfg.ProbeTimeout))
	}
	s.watchdog = watchdog.New(s.store, s.probes, s.refresher, logger, watchdogOpts...)

	s.scheduler = scheduler.New(
		func(ctx context.Context) { s.RefreshAll(ctx, false) },
		func(ctx context.Context) { s.WatchdogAll(ctx) },
		scheduler.Config{
			RefreshInterval:  cfg.RefreshInterval,
			WatchdogInterval: cfg.WatchdogInterval,
		},
		logger,
	)
	return s
}

// Init applies the schema and seeds the dataset catalog. Idempotent.
func (s *Service) Init(ctx context.Context) error {
	if err := store.ApplySchema(s.store.DB); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	entries := catalog.Builtin()
	if s.cfg.CatalogPath != "" {
		loaded, err := catalog.LoadFile(s.cfg.CatalogPath)
		if err != nil {
			return err
		}
		entries = loaded
	}
	created, err := catalog.Seed(ctx, s.store, entries)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if created > 0 {
		s.logger.Info("catalog seeded", slog.Int("created", created))
	}
	return nil
}

// Run blocks driving the scheduled batches until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.scheduler.Run(ctx)
}

// RefreshAll refreshes every enabled dataset. force bypasses rate gating.
func (s *Service) RefreshAll(ctx context.Context, force bool) (*RefreshSummary, error) {
	return s.refresher.RunAll(ctx, force)
}

// RefreshOne refreshes a single dataset on demand.
func (s *Service) RefreshOne(ctx context.Context, slug string, force bool) (RefreshOutcome, error) {
	return s.refresher.RunOne(ctx, slug, refresh.Options{
		Force:   force,
		Trigger: refresh.TriggerManual,
	})
}

// WatchdogAll runs the probe batch once.
func (s *Service) WatchdogAll(ctx context.Context) (*WatchdogSummary, error) {
	return s.watchdog.RunAll(ctx)
}

// WatchdogOne probes a single dataset on demand.
func (s *Service) WatchdogOne(ctx context.Context, slug string) (WatchdogCheck, error) {
	return s.watchdog.RunOne(ctx, slug)
}

// Datasets lists every dataset.
func (s *Service) Datasets(ctx context.Context) ([]*Dataset, error) {
	return s.store.ListDatasets(ctx)
}

// Dataset returns one dataset with its current payload and grids.
func (s *Service) Dataset(ctx context.Context, slug string) (*DatasetDetail, error) {
	d, err := s.store.GetDataset(ctx, slug)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, slug)
	}

	detail := &DatasetDetail{Dataset: d}
	if snap, err := s.store.LatestSnapshot(ctx, slug); err == nil && snap != nil {
		detail.Snapshot = snap
		var p Payload
		if err := json.Unmarshal([]byte(snap.PayloadJSON), &p); err == nil {
			detail.Payload = &p
		}
	}
	grids, err := s.store.ListGrids(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	detail.Grids = grids
	return detail, nil
}

// History lists the most recent refresh attempts for a dataset.
func (s *Service) History(ctx context.Context, slug string, limit int) ([]*RefreshLogEntry, error) {
	d, err := s.store.GetDataset(ctx, slug)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, slug)
	}
	return s.store.RefreshHistory(ctx, slug, limit)
}

// SetEnabled toggles scheduled processing for a dataset.
func (s *Service) SetEnabled(ctx context.Context, slug string, enabled bool) error {
	d, err := s.store.GetDataset(ctx, slug)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("%w: %s", ErrUnknownDataset, slug)
	}
	return s.store.SetEnabled(ctx, slug, enabled)
}
