// CLAUDE:SUMMARY Two-cadence ticker loop: periodic refresh batches plus the daily watchdog batch.
// Package scheduler owns the long-running loop. It knows nothing about
// datasets or probes; it just fires the two injected batch functions on
// their cadences and stops cleanly on context cancellation.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultRefreshInterval  = 30 * time.Minute
	DefaultWatchdogInterval = 24 * time.Hour
)

// BatchFunc runs one batch. Implementations handle their own errors; the
// scheduler never inspects outcomes.
type BatchFunc func(ctx context.Context)

// Config sets the two cadences. Zero values select the defaults.
type Config struct {
	RefreshInterval  time.Duration
	WatchdogInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = DefaultWatchdogInterval
	}
	return c
}

// Scheduler drives the refresh and watchdog batches.
type Scheduler struct {
	refresh  BatchFunc
	watchdog BatchFunc
	cfg      Config
	logger   *slog.Logger
}

// New builds a Scheduler.
func New(refresh, watchdog BatchFunc, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refresh:  refresh,
		watchdog: watchdog,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. Both batches fire once at startup so
// a restarted process converges immediately instead of waiting out a full
// interval; the refresh batch's own rate gate keeps the startup run from
// hammering upstreams.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		slog.Duration("refresh_interval", s.cfg.RefreshInterval),
		slog.Duration("watchdog_interval", s.cfg.WatchdogInterval))

	s.refresh(ctx)
	s.watchdog(ctx)

	refreshTicker := time.NewTicker(s.cfg.RefreshInterval)
	defer refreshTicker.Stop()
	watchdogTicker := time.NewTicker(s.cfg.WatchdogInterval)
	defer watchdogTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-refreshTicker.C:
			s.refresh(ctx)
		case <-watchdogTicker.C:
			s.watchdog(ctx)
		}
	}
}
