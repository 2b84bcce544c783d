package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/worldpulse/idgen"
)

// InsertRefreshLog records a refresh attempt.
func (s *Store) InsertRefreshLog(ctx context.Context, entry *RefreshLogEntry) error {
	if entry.ID == "" {
		entry.ID = idgen.Prefixed("log_", s.newID)()
	}
	if entry.TriggerKind == "" {
		entry.TriggerKind = "schedule"
	}
	if entry.RanAt == 0 {
		entry.RanAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO refresh_log (id, dataset_slug, trigger_kind, status,
		source_hash, error_message, duration_ms, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DatasetSlug, entry.TriggerKind, entry.Status,
		entry.SourceHash, entry.ErrorMessage, entry.DurationMs, entry.RanAt,
	)
	return err
}

// RefreshHistory returns refresh log entries for a dataset, newest first.
func (s *Store) RefreshHistory(ctx context.Context, slug string, limit int) ([]*RefreshLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, dataset_slug, trigger_kind, status, source_hash,
		error_message, duration_ms, ran_at
		FROM refresh_log WHERE dataset_slug = ?
		ORDER BY ran_at DESC LIMIT ?`, slug, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*RefreshLogEntry
	for rows.Next() {
		var e RefreshLogEntry
		if err := rows.Scan(&e.ID, &e.DatasetSlug, &e.TriggerKind, &e.Status,
			&e.SourceHash, &e.ErrorMessage, &e.DurationMs, &e.RanAt); err != nil {
			return nil, fmt.Errorf("scan refresh log: %w", err)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
