// CLAUDE:SUMMARY Change detector and snapshot acceptance: fingerprint compare, append-only insert, final pointer update, grid propagation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/worldpulse/dbopen"
	"github.com/hazyhaar/worldpulse/fact"
	"github.com/hazyhaar/worldpulse/idgen"
)

// AcceptOptions carries the context of a payload acceptance.
type AcceptOptions struct {
	// SourceYear, when positive, advances latest_source_year even if the
	// payload content is hash-identical to the current snapshot (a probe's
	// year signal is trusted over content equality).
	SourceYear int
}

// AcceptResult reports what AcceptPayload did.
type AcceptResult struct {
	Changed    bool   `json:"changed"`
	SnapshotID string `json:"snapshot_id"`
	Hash       string `json:"hash"`
}

// AcceptPayload is the change-detection entry point. It fingerprints the
// payload, compares against the dataset's current latest snapshot, and
// either bumps freshness (identical content) or appends a new snapshot and
// moves the latest pointer.
//
// Ordering contract: the snapshot row is inserted before the dataset
// pointer moves. If the pointer update fails the orphaned snapshot is
// acceptable collateral; the dataset never points at a snapshot that does
// not exist.
func (s *Store) AcceptPayload(ctx context.Context, slug string, p *fact.Payload, opts AcceptOptions) (*AcceptResult, error) {
	d, err := s.GetDataset(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("dataset not found: %s", slug)
	}

	hash, err := fact.Fingerprint(p)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()

	// Compare against the fingerprint of the current latest snapshot.
	prevHash, err := s.latestHash(ctx, d)
	if err != nil {
		return nil, err
	}
	if prevHash == hash {
		if err := s.touchRefreshed(ctx, slug, opts.SourceYear, now); err != nil {
			return nil, err
		}
		return &AcceptResult{Changed: false, SnapshotID: deref(d.LatestSnapshotID), Hash: hash}, nil
	}

	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	snapID := idgen.Prefixed("snap_", s.newID)()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO snapshots (id, dataset_id, payload_json, source_hash, collected_at)
		VALUES (?, ?, ?, ?, ?)`,
		snapID, d.ID, string(payloadJSON), hash, now)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	// Pointer update and grid propagation are the final step, atomic from
	// the caller's perspective.
	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE datasets SET latest_snapshot_id = ?, last_refreshed_at = ?,
			latest_source_year = CASE
				WHEN ? > 0 AND (latest_source_year IS NULL OR ? > latest_source_year) THEN ?
				ELSE latest_source_year END,
			updated_at = ?
			WHERE id = ?`,
			snapID, now, opts.SourceYear, opts.SourceYear, opts.SourceYear, now, d.ID); err != nil {
			return fmt.Errorf("update dataset pointer: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE grids SET snapshot_id = ?, updated_at = ? WHERE dataset_id = ?`,
			snapID, now, d.ID); err != nil {
			return fmt.Errorf("propagate to grids: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AcceptResult{Changed: true, SnapshotID: snapID, Hash: hash}, nil
}

// latestHash returns the source_hash of the dataset's latest snapshot, or
// "" when no snapshot exists yet.
func (s *Store) latestHash(ctx context.Context, d *Dataset) (string, error) {
	if d.LatestSnapshotID == nil {
		return "", nil
	}
	var hash string
	err := s.DB.QueryRowContext(ctx,
		`SELECT source_hash FROM snapshots WHERE id = ?`, *d.LatestSnapshotID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest snapshot hash: %w", err)
	}
	return hash, nil
}

// touchRefreshed bumps last_refreshed_at and, when year > 0, advances
// latest_source_year monotonically.
func (s *Store) touchRefreshed(ctx context.Context, slug string, year int, now int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE datasets SET last_refreshed_at = ?,
		latest_source_year = CASE
			WHEN ? > 0 AND (latest_source_year IS NULL OR ? > latest_source_year) THEN ?
			ELSE latest_source_year END,
		updated_at = ?
		WHERE slug = ?`,
		now, year, year, year, now, slug)
	return err
}

// GetSnapshot returns a snapshot by ID, or nil.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, dataset_id, payload_json, source_hash, collected_at
		FROM snapshots WHERE id = ?`, id)
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.DatasetID, &snap.PayloadJSON, &snap.SourceHash, &snap.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return &snap, nil
}

// LatestSnapshot returns the dataset's current snapshot, or nil when none
// has been accepted yet.
func (s *Store) LatestSnapshot(ctx context.Context, slug string) (*Snapshot, error) {
	d, err := s.GetDataset(ctx, slug)
	if err != nil {
		return nil, err
	}
	if d == nil || d.LatestSnapshotID == nil {
		return nil, nil
	}
	return s.GetSnapshot(ctx, *d.LatestSnapshotID)
}

// CountSnapshots returns the number of snapshots stored for a dataset.
func (s *Store) CountSnapshots(ctx context.Context, slug string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots
		WHERE dataset_id = (SELECT id FROM datasets WHERE slug = ?)`, slug).Scan(&count)
	return count, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
