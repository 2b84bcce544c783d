package pulse

import (
	"github.com/hazyhaar/worldpulse/fact"
	"github.com/hazyhaar/worldpulse/pulse/internal/refresh"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
	"github.com/hazyhaar/worldpulse/pulse/internal/watchdog"
)

// Re-exported types so callers never import the internal packages.
type (
	Dataset         = store.Dataset
	Snapshot        = store.Snapshot
	Grid            = store.Grid
	RefreshLogEntry = store.RefreshLogEntry

	Payload  = fact.Payload
	Category = fact.Category

	RefreshOutcome  = refresh.Outcome
	RefreshSummary  = refresh.Summary
	WatchdogCheck   = watchdog.Check
	WatchdogSummary = watchdog.Summary
)

// Refresh rate classes.
const (
	RateHourly = store.RateHourly
	RateDaily  = store.RateDaily
	RateWeekly = store.RateWeekly
	RateManual = store.RateManual
)

// Refresh outcome statuses.
const (
	StatusRefreshed = store.StatusRefreshed
	StatusUnchanged = store.StatusUnchanged
	StatusError     = store.StatusError
	StatusSkipped   = store.StatusSkipped
	StatusNoFetcher = store.StatusNoFetcher
)

// Trigger kinds recorded in refresh history.
const (
	TriggerSchedule = refresh.TriggerSchedule
	TriggerManual   = refresh.TriggerManual
	TriggerWatchdog = refresh.TriggerWatchdog
)

// DatasetDetail combines a dataset with its current snapshot payload and
// grids, for the read API.
type DatasetDetail struct {
	Dataset  *Dataset  `json:"dataset"`
	Payload  *Payload  `json:"payload,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Grids    []*Grid   `json:"grids,omitempty"`
}
