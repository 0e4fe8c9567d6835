package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nick-dorsch/tracker/internal/persist"
	"github.com/nick-dorsch/tracker/pkg/models"
)

// Save replaces the contents of the items table with items in one
// transaction. Row position keeps the slice order for Load.
func (db *DB) Save(ctx context.Context, items []*models.Task) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	for pos, t := range items {
		if err := insertItem(ctx, tx, t, pos); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, exec executor, t *models.Task, pos int) error {
	var start sql.NullString
	if t.Scheduled() {
		start = sql.NullString{String: t.StartTime.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	var epicID sql.NullInt64
	if t.Kind == models.KindSubTask {
		epicID = sql.NullInt64{Int64: int64(t.EpicID), Valid: true}
	}

	query := `
		INSERT INTO items (id, kind, name, description, status, duration_ns, start_time, epic_id, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		t.ID, string(t.Kind), t.Name, t.Description, string(t.Status),
		int64(t.Duration), start, epicID, pos,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item %d: %w", t.ID, err)
	}
	return nil
}

// Load returns every stored item in saved order.
func (db *DB) Load(ctx context.Context) ([]*models.Task, error) {
	query := `
		SELECT id, kind, name, description, status, duration_ns, start_time, epic_id
		FROM items
		ORDER BY position ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Task
	for rows.Next() {
		var (
			id         int
			kind       string
			status     string
			durationNS int64
			start      sql.NullString
			epicID     sql.NullInt64
		)
		t := &models.Task{}
		if err := rows.Scan(&id, &kind, &t.Name, &t.Description, &status, &durationNS, &start, &epicID); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		k, ok := models.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("item %d: %w: %q", id, persist.ErrUnknownKind, kind)
		}
		st, ok := models.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("item %d: invalid status %q", id, status)
		}
		t.ID = id
		t.Kind = k
		t.Status = st
		t.Duration = time.Duration(durationNS)
		if start.Valid {
			st, err := time.Parse(time.RFC3339Nano, start.String)
			if err != nil {
				return nil, fmt.Errorf("item %d: invalid start time %q: %w", id, start.String, err)
			}
			t.StartTime = &st
		}
		if epicID.Valid {
			t.EpicID = int(epicID.Int64)
		}
		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// Stats reports stored item counts by kind.
func (db *DB) Stats(ctx context.Context) (map[models.Kind]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM items GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		stats[models.Kind(kind)] = n
	}
	return stats, rows.Err()
}

var _ persist.Backend = (*DB)(nil)
