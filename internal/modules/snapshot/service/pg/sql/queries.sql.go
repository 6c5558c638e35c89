package sql

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const countSnapshots = `-- name: CountSnapshots :one
SELECT count(*) FROM snapshots WHERE account_id = $1
`

func (q *Queries) CountSnapshots(ctx context.Context, db DBTX, accountID string) (int64, error) {
	row := db.QueryRow(ctx, countSnapshots, accountID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteCurrencies = `-- name: DeleteCurrencies :exec
DELETE FROM currency_snapshots WHERE snapshot_id = $1
`

func (q *Queries) DeleteCurrencies(ctx context.Context, db DBTX, snapshotID int64) error {
	_, err := db.Exec(ctx, deleteCurrencies, snapshotID)
	return err
}

const deleteOlderThan = `-- name: DeleteOlderThan :execrows
DELETE FROM snapshots WHERE bucket_ts < $1
`

func (q *Queries) DeleteOlderThan(ctx context.Context, db DBTX, bucketTs time.Time) (int64, error) {
	result, err := db.Exec(ctx, deleteOlderThan, bucketTs)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type InsertCurrenciesParams struct {
	SnapshotID int64
	Ccy        string
	Bal        float64
	AvailBal   float64
	FrozenBal  float64
	Eq         float64
	EqUsd      float64
}

// InsertCurrencies: COPY FROM, одна команда на весь набор валют снапшота.
func (q *Queries) InsertCurrencies(ctx context.Context, db DBTX, arg []*InsertCurrenciesParams) (int64, error) {
	return db.CopyFrom(ctx,
		pgx.Identifier{"currency_snapshots"},
		[]string{"snapshot_id", "ccy", "bal", "avail_bal", "frozen_bal", "eq", "eq_usd"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			a := arg[i]
			return []any{a.SnapshotID, a.Ccy, a.Bal, a.AvailBal, a.FrozenBal, a.Eq, a.EqUsd}, nil
		}),
	)
}

const upsertSnapshot = `-- name: UpsertSnapshot :one
INSERT INTO snapshots (account_id, bucket_ts, total_equity, available, frozen, margin_used, unrealized_pnl)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (account_id, bucket_ts) DO UPDATE SET
    total_equity   = EXCLUDED.total_equity,
    available      = EXCLUDED.available,
    frozen         = EXCLUDED.frozen,
    margin_used    = EXCLUDED.margin_used,
    unrealized_pnl = EXCLUDED.unrealized_pnl
RETURNING id
`

type UpsertSnapshotParams struct {
	AccountID     string
	BucketTs      time.Time
	TotalEquity   float64
	Available     float64
	Frozen        float64
	MarginUsed    float64
	UnrealizedPnl float64
}

func (q *Queries) UpsertSnapshot(ctx context.Context, db DBTX, arg *UpsertSnapshotParams) (int64, error) {
	row := db.QueryRow(ctx, upsertSnapshot,
		arg.AccountID,
		arg.BucketTs,
		arg.TotalEquity,
		arg.Available,
		arg.Frozen,
		arg.MarginUsed,
		arg.UnrealizedPnl,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}
