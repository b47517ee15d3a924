package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Feature-config snapshot index keyed by session id",
		Up:          migration001_snapshotIndex,
	})
}

func migration001_snapshotIndex(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS feature_config_index (
			session_id    TEXT PRIMARY KEY,
			snapshot_path TEXT NOT NULL,
			indexed_at    INTEGER NOT NULL
		)
	`); err != nil {
		return err
	}

	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_feature_config_index_path
		ON feature_config_index(snapshot_path)
	`)
	return err
}
