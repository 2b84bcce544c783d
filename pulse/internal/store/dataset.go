// CLAUDE:SUMMARY Dataset CRUD, slow-dataset listing for the watchdog, and freshness/year mutators.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/worldpulse/idgen"
)

const datasetColumns = `id, slug, name, refresh_rate, enabled,
	last_refreshed_at, last_watchdog_at, latest_source_year, latest_snapshot_id,
	created_at, updated_at`

// InsertDataset adds a new dataset record.
func (s *Store) InsertDataset(ctx context.Context, d *Dataset) error {
	now := time.Now().UnixMilli()
	if d.ID == "" {
		d.ID = idgen.Prefixed("ds_", s.newID)()
	}
	if d.RefreshRate == "" {
		d.RefreshRate = RateWeekly
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	if d.UpdatedAt == 0 {
		d.UpdatedAt = now
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO datasets (id, slug, name, refresh_rate, enabled,
		last_refreshed_at, last_watchdog_at, latest_source_year, latest_snapshot_id,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Slug, d.Name, d.RefreshRate, d.Enabled,
		d.LastRefreshedAt, d.LastWatchdogAt, d.LatestSourceYear, d.LatestSnapshotID,
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetDataset retrieves a dataset by slug, or nil if absent.
func (s *Store) GetDataset(ctx context.Context, slug string) (*Dataset, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE slug = ?`, slug)
	return scanDataset(row)
}

// ListDatasets returns all datasets ordered by slug.
func (s *Store) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	return s.listDatasets(ctx,
		`SELECT `+datasetColumns+` FROM datasets ORDER BY slug`)
}

// ListEnabledDatasets returns enabled datasets ordered by slug.
func (s *Store) ListEnabledDatasets(ctx context.Context) ([]*Dataset, error) {
	return s.listDatasets(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE enabled = 1 ORDER BY slug`)
}

// ListSlowDatasets returns enabled datasets whose refresh rate implies
// infrequent underlying updates (weekly, manual). These are the watchdog's
// candidates.
func (s *Store) ListSlowDatasets(ctx context.Context) ([]*Dataset, error) {
	return s.listDatasets(ctx,
		`SELECT `+datasetColumns+` FROM datasets
		WHERE enabled = 1 AND refresh_rate IN (?, ?) ORDER BY slug`,
		RateWeekly, RateManual)
}

func (s *Store) listDatasets(ctx context.Context, query string, args ...any) ([]*Dataset, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDatasetRows(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// SetEnabled flips a dataset's enabled flag.
func (s *Store) SetEnabled(ctx context.Context, slug string, enabled bool) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE datasets SET enabled = ?, updated_at = ? WHERE slug = ?`,
		enabled, now, slug)
	return err
}

// TouchWatchdog records that a watchdog probe ran for this dataset,
// regardless of its outcome.
func (s *Store) TouchWatchdog(ctx context.Context, slug string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE datasets SET last_watchdog_at = ?, updated_at = ? WHERE slug = ?`,
		now, now, slug)
	return err
}

// AdvanceSourceYear moves latest_source_year forward. It is monotonic:
// a lower year than the stored one is a no-op, never a regression.
func (s *Store) AdvanceSourceYear(ctx context.Context, slug string, year int) error {
	if year <= 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE datasets SET
		latest_source_year = CASE
			WHEN latest_source_year IS NULL OR ? > latest_source_year THEN ?
			ELSE latest_source_year END,
		updated_at = ?
		WHERE slug = ?`,
		year, year, now, slug)
	return err
}

func scanDataset(row *sql.Row) (*Dataset, error) {
	var d Dataset
	var enabled int
	err := row.Scan(
		&d.ID, &d.Slug, &d.Name, &d.RefreshRate, &enabled,
		&d.LastRefreshedAt, &d.LastWatchdogAt, &d.LatestSourceYear, &d.LatestSnapshotID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	d.Enabled = enabled != 0
	return &d, nil
}

func scanDatasetRows(rows *sql.Rows) (*Dataset, error) {
	var d Dataset
	var enabled int
	err := rows.Scan(
		&d.ID, &d.Slug, &d.Name, &d.RefreshRate, &enabled,
		&d.LastRefreshedAt, &d.LastWatchdogAt, &d.LatestSourceYear, &d.LatestSnapshotID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	d.Enabled = enabled != 0
	return &d, nil
}
