package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL of the snapshot table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Snapshot struct {
	QueryKey  string
	Endpoint  string
	Payload   []byte
	FetchedAt int64
}

const upsertSnapshot = `
INSERT INTO snapshots (query_key, endpoint, payload, fetched_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(query_key) DO UPDATE SET
    payload = excluded.payload,
    fetched_at = excluded.fetched_at
`

func (q *Queries) UpsertSnapshot(ctx context.Context, arg Snapshot) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.QueryKey, arg.Endpoint, arg.Payload, arg.FetchedAt)
	return err
}

const getSnapshot = `
SELECT query_key, endpoint, payload, fetched_at FROM snapshots WHERE query_key = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, key string) (Snapshot, error) {
	var s Snapshot
	err := q.db.QueryRowContext(ctx, getSnapshot, key).Scan(&s.QueryKey, &s.Endpoint, &s.Payload, &s.FetchedAt)
	return s, err
}

const listSnapshots = `
SELECT query_key, endpoint, length(payload), fetched_at FROM snapshots ORDER BY query_key
`

type ListSnapshotsRow struct {
	QueryKey  string
	Endpoint  string
	Size      int64
	FetchedAt int64
}

func (q *Queries) ListSnapshots(ctx context.Context) ([]ListSnapshotsRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListSnapshotsRow
	for rows.Next() {
		var i ListSnapshotsRow
		if err := rows.Scan(&i.QueryKey, &i.Endpoint, &i.Size, &i.FetchedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSnapshotsBefore = `
DELETE FROM snapshots WHERE fetched_at < ?
`

func (q *Queries) DeleteSnapshotsBefore(ctx context.Context, before int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSnapshotsBefore, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteSnapshot = `
DELETE FROM snapshots WHERE query_key = ?
`

func (q *Queries) DeleteSnapshot(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshot, key)
	return err
}
