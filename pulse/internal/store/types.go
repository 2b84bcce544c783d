// CLAUDE:SUMMARY Store data types: Dataset, Snapshot, Grid, RefreshLogEntry, refresh-rate and status enums.
package store

// Refresh rate classes. They drive the orchestrator's rate gating; the
// store only persists them.
const (
	RateHourly = "hourly"
	RateDaily  = "daily"
	RateWeekly = "weekly"
	RateManual = "manual"
)

// Per-dataset refresh outcome statuses.
const (
	StatusRefreshed = "refreshed"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
	StatusSkipped   = "skipped_too_recent"
	StatusNoFetcher = "no_fetcher"
)

// Dataset is the persistent tracking record for one external metric.
type Dataset struct {
	ID               string  `json:"id"`
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	RefreshRate      string  `json:"refresh_rate"`
	Enabled          bool    `json:"enabled"`
	LastRefreshedAt  *int64  `json:"last_refreshed_at,omitempty"`
	LastWatchdogAt   *int64  `json:"last_watchdog_at,omitempty"`
	LatestSourceYear *int64  `json:"latest_source_year,omitempty"`
	LatestSnapshotID *string `json:"latest_snapshot_id,omitempty"`
	CreatedAt        int64   `json:"created_at"`
	UpdatedAt        int64   `json:"updated_at"`
}

// Snapshot is one immutable, content-addressed capture of a dataset's
// normalized payload.
type Snapshot struct {
	ID          string `json:"id"`
	DatasetID   string `json:"dataset_id"`
	PayloadJSON string `json:"payload_json"`
	SourceHash  string `json:"source_hash"`
	CollectedAt int64  `json:"collected_at"`
}

// Grid is a downstream rendering record tied to a dataset. The pipeline
// only advances SnapshotID.
type Grid struct {
	ID         string  `json:"id"`
	DatasetID  string  `json:"dataset_id"`
	Title      string  `json:"title"`
	SnapshotID *string `json:"snapshot_id,omitempty"`
	DotsPerRow int     `json:"dots_per_row"`
	UpdatedAt  int64   `json:"updated_at"`
}

// RefreshLogEntry is one refresh attempt record.
type RefreshLogEntry struct {
	ID           string `json:"id"`
	DatasetSlug  string `json:"dataset_slug"`
	TriggerKind  string `json:"trigger_kind"`
	Status       string `json:"status"`
	SourceHash   string `json:"source_hash"`
	ErrorMessage string `json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`
	RanAt        int64  `json:"ran_at"`
}
