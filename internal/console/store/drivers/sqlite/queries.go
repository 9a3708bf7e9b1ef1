package sqlite

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type changeRow struct {
	Seq       int64
	Key       string
	Value     string
	Deleted   bool
	Origin    string
	CreatedAt int64
}

const getValue = `SELECT value FROM kv WHERE key = ?`

func (q *Queries) GetValue(ctx context.Context, key string) (string, error) {
	var v string
	err := q.db.QueryRowContext(ctx, getValue, key).Scan(&v)
	return v, err
}

const upsertValue = `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) UpsertValue(ctx context.Context, key, value string, at int64) error {
	_, err := q.db.ExecContext(ctx, upsertValue, key, value, at)
	return err
}

const deleteValue = `DELETE FROM kv WHERE key = ?`

func (q *Queries) DeleteValue(ctx context.Context, key string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteValue, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllValues = `DELETE FROM kv`

func (q *Queries) DeleteAllValues(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllValues)
	return err
}

const listKeys = `SELECT key FROM kv ORDER BY key`

func (q *Queries) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

const insertChange = `
INSERT INTO changes (key, value, deleted, origin, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertChange(ctx context.Context, c changeRow) error {
	_, err := q.db.ExecContext(ctx, insertChange, c.Key, c.Value, c.Deleted, c.Origin, c.CreatedAt)
	return err
}

const listChangesAfter = `
SELECT seq, key, value, deleted, origin, created_at FROM changes
WHERE seq > ? ORDER BY seq LIMIT ?`

func (q *Queries) ListChangesAfter(ctx context.Context, seq int64, limit int) ([]changeRow, error) {
	rows, err := q.db.QueryContext(ctx, listChangesAfter, seq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []changeRow
	for rows.Next() {
		var c changeRow
		if err := rows.Scan(&c.Seq, &c.Key, &c.Value, &c.Deleted, &c.Origin, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const latestChangeSeq = `SELECT COALESCE(MAX(seq), 0) FROM changes`

func (q *Queries) LatestChangeSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := q.db.QueryRowContext(ctx, latestChangeSeq).Scan(&seq)
	return seq, err
}

const deleteChangesBefore = `DELETE FROM changes WHERE created_at < ?`

func (q *Queries) DeleteChangesBefore(ctx context.Context, before int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteChangesBefore, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
