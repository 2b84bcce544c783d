package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/worldpulse/idgen"
)

// InsertGrid adds a downstream rendering record for a dataset. The gallery
// side owns everything about grids except snapshot_id, which the pipeline
// advances on snapshot acceptance.
func (s *Store) InsertGrid(ctx context.Context, g *Grid) error {
	if g.ID == "" {
		g.ID = idgen.Prefixed("grid_", s.newID)()
	}
	if g.DotsPerRow <= 0 {
		g.DotsPerRow = 10
	}
	if g.UpdatedAt == 0 {
		g.UpdatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO grids (id, dataset_id, title, snapshot_id, dots_per_row, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.DatasetID, g.Title, g.SnapshotID, g.DotsPerRow, g.UpdatedAt)
	return err
}

// ListGrids returns the grids tied to a dataset.
func (s *Store) ListGrids(ctx context.Context, datasetID string) ([]*Grid, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, dataset_id, title, snapshot_id, dots_per_row, updated_at
		FROM grids WHERE dataset_id = ? ORDER BY id`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grids []*Grid
	for rows.Next() {
		var g Grid
		if err := rows.Scan(&g.ID, &g.DatasetID, &g.Title, &g.SnapshotID, &g.DotsPerRow, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan grid: %w", err)
		}
		grids = append(grids, &g)
	}
	return grids, rows.Err()
}
