package db

import (
	"context"
	"database/sql"
	"errors"
)

func (d *DB) logQuery(kind, query string, args []any) {
	if !d.logQueries {
		return
	}
	logger.Debug().
		Str("kind", kind).
		Str("sql", query).
		Interface("args", args).
		Msg("db query")
}

// SelectOne scans a single row. A query with no rows returns (nil, nil).
func SelectOne[T any](ctx context.Context, d *DB, query string, args []any, scan func(*sql.Row) (T, error)) (*T, error) {
	d.logQuery("get", query, args)

	result, err := scan(d.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Run executes a statement that returns no rows.
func (d *DB) Run(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.logQuery("run", query, args)
	return d.conn.ExecContext(ctx, query, args...)
}

// Count runs a COUNT query.
func (d *DB) Count(ctx context.Context, query string, args ...any) (int64, error) {
	d.logQuery("count", query, args)

	var n int64
	if err := d.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
