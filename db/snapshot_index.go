package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SnapshotIndex maps session ids to the feature-config snapshot file that
// mentions them, so lookups skip the substring scan over every snapshot.
type SnapshotIndex struct {
	db *DB
}

// NewSnapshotIndex wraps an open database.
func NewSnapshotIndex(d *DB) *SnapshotIndex {
	return &SnapshotIndex{db: d}
}

// SnapshotEntry is one indexed session.
type SnapshotEntry struct {
	Path      string
	IndexedAt time.Time
}

// Lookup returns the indexed snapshot for a session, or nil.
func (x *SnapshotIndex) Lookup(ctx context.Context, sessionID string) (*SnapshotEntry, error) {
	entry, err := SelectOne(ctx, x.db,
		`SELECT snapshot_path, indexed_at FROM feature_config_index WHERE session_id = ?`,
		[]any{sessionID},
		func(row *sql.Row) (SnapshotEntry, error) {
			var e SnapshotEntry
			var at int64
			err := row.Scan(&e.Path, &at)
			e.IndexedAt = time.UnixMilli(at)
			return e, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to look up snapshot index: %w", err)
	}
	return entry, nil
}

// Put records (or replaces) the snapshot path for a session.
func (x *SnapshotIndex) Put(ctx context.Context, sessionID, path string) error {
	_, err := x.db.Run(ctx, `
		INSERT INTO feature_config_index (session_id, snapshot_path, indexed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			snapshot_path = excluded.snapshot_path,
			indexed_at = excluded.indexed_at
	`, sessionID, path, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to update snapshot index: %w", err)
	}
	return nil
}

// Forget drops one session from the index.
func (x *SnapshotIndex) Forget(ctx context.Context, sessionID string) error {
	if _, err := x.db.Run(ctx, `DELETE FROM feature_config_index WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to forget session: %w", err)
	}
	return nil
}

// ForgetPath drops every session that pointed at a snapshot file.
func (x *SnapshotIndex) ForgetPath(ctx context.Context, path string) error {
	if _, err := x.db.Run(ctx, `DELETE FROM feature_config_index WHERE snapshot_path = ?`, path); err != nil {
		return fmt.Errorf("failed to forget snapshot: %w", err)
	}
	return nil
}

// Len returns the number of indexed sessions.
func (x *SnapshotIndex) Len(ctx context.Context) (int64, error) {
	return x.db.Count(ctx, `SELECT COUNT(*) FROM feature_config_index`)
}
