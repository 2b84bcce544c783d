// CLAUDE:SUMMARY SQLite schema for datasets, append-only snapshots, grids, and the refresh log.
package store

import "database/sql"

// Schema is the complete pulse schema. Snapshots are append-only: the
// pipeline inserts and points at them, never updates or deletes.
const Schema = `
-- Tracked datasets, one per logical metric
CREATE TABLE IF NOT EXISTS datasets (
    id                 TEXT PRIMARY KEY,
    slug               TEXT NOT NULL UNIQUE,
    name               TEXT NOT NULL,
    refresh_rate       TEXT NOT NULL DEFAULT 'weekly',
    enabled            INTEGER NOT NULL DEFAULT 1,
    last_refreshed_at  INTEGER,
    last_watchdog_at   INTEGER,
    latest_source_year INTEGER,
    latest_snapshot_id TEXT,
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_datasets_rate ON datasets(refresh_rate, enabled);

-- Immutable payload captures
CREATE TABLE IF NOT EXISTS snapshots (
    id           TEXT PRIMARY KEY,
    dataset_id   TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
    payload_json TEXT NOT NULL,
    source_hash  TEXT NOT NULL,
    collected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_dataset ON snapshots(dataset_id, collected_at DESC);

-- Downstream consumer records (dot-grid rendering configs). The pipeline
-- only ever moves snapshot_id forward; everything else belongs to the
-- gallery side.
CREATE TABLE IF NOT EXISTS grids (
    id           TEXT PRIMARY KEY,
    dataset_id   TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
    title        TEXT NOT NULL DEFAULT '',
    snapshot_id  TEXT,
    dots_per_row INTEGER NOT NULL DEFAULT 10,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grids_dataset ON grids(dataset_id);

-- Refresh attempt log (observability)
CREATE TABLE IF NOT EXISTS refresh_log (
    id            TEXT PRIMARY KEY,
    dataset_slug  TEXT NOT NULL,
    trigger_kind  TEXT NOT NULL DEFAULT 'schedule',
    status        TEXT NOT NULL,
    source_hash   TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    ran_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_log_slug ON refresh_log(dataset_slug, ran_at DESC);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
