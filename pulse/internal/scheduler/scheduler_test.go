package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WHAT: both batches run once at startup, then keep firing on their own
// cadences until the context is cancelled.
func TestRun_FiresBothCadences(t *testing.T) {
	var refreshes, watchdogs atomic.Int64
	s := New(
		func(context.Context) { refreshes.Add(1) },
		func(context.Context) { watchdogs.Add(1) },
		Config{RefreshInterval: 10 * time.Millisecond, WatchdogInterval: 25 * time.Millisecond},
		testLogger(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	// Startup run plus several ticks; exact counts depend on timing, the
	// floor does not.
	if got := refreshes.Load(); got < 3 {
		t.Fatalf("refresh batches = %d, want at least 3", got)
	}
	if got := watchdogs.Load(); got < 2 {
		t.Fatalf("watchdog batches = %d, want at least 2", got)
	}
}

// WHAT: zero-value config falls back to the production cadences.
func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.RefreshInterval != DefaultRefreshInterval {
		t.Fatalf("refresh interval = %v", cfg.RefreshInterval)
	}
	if cfg.WatchdogInterval != DefaultWatchdogInterval {
		t.Fatalf("watchdog interval = %v", cfg.WatchdogInterval)
	}
}
