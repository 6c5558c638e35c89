package pg

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/internal/modules/snapshot/service/pg/sql"
	"portfolio_monitor/pkg/db"
	"portfolio_monitor/pkg/tracing"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store: снапшоты баланса в Postgres.
type Store struct {
	db  db.TxManager
	sql *sql.Queries
}

func NewStore(tx db.TxManager) *Store {
	return &Store{
		db:  tx,
		sql: sql.New(),
	}
}

// EnsureSchema накатывает DDL (идемпотентно, CREATE ... IF NOT EXISTS).
func (s *Store) EnsureSchema(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.EnsureSchema: %w", err)
		}
	}()
	for _, stmt := range splitStatements(schema) {
		if _, err = s.db.Conn().Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSnapshot: одна транзакция - строка снапшота по (account_id, bucket_ts) + полная замена валют.
func (s *Store) UpsertSnapshot(ctx context.Context, rec models.SnapshotRecord) (id int64, err error) {
	span, ctx := tracing.StartSpan(ctx, "pg.UpsertSnapshot")
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.UpsertSnapshot: %w", err)
		}
		tracing.FinishSpan(span, err)
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		id, err = s.sql.UpsertSnapshot(ctxTx, tx, &sql.UpsertSnapshotParams{
			AccountID:     rec.AccountID,
			BucketTs:      rec.BucketTS,
			TotalEquity:   rec.TotalEquity,
			Available:     rec.Available,
			Frozen:        rec.Frozen,
			MarginUsed:    rec.MarginUsed,
			UnrealizedPnl: rec.UnrealizedPnl,
		})
		if err != nil {
			return err
		}
		if err = s.sql.DeleteCurrencies(ctxTx, tx, id); err != nil {
			return err
		}
		if len(rec.Currencies) == 0 {
			return nil
		}

		rows := make([]*sql.InsertCurrenciesParams, 0, len(rec.Currencies))
		for _, c := range rec.Currencies {
			rows = append(rows, &sql.InsertCurrenciesParams{
				SnapshotID: id,
				Ccy:        c.Ccy,
				Bal:        c.Bal,
				AvailBal:   c.AvailBal,
				FrozenBal:  c.FrozenBal,
				Eq:         c.Eq,
				EqUsd:      c.EqUsd,
			})
		}
		_, err = s.sql.InsertCurrencies(ctxTx, tx, rows)
		return err
	})
	return id, err
}

// DeleteSnapshotsOlderThan: валюты уходят каскадом.
func (s *Store) DeleteSnapshotsOlderThan(ctx context.Context, cutoff time.Time) (n int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.DeleteSnapshotsOlderThan: %w", err)
		}
	}()
	return s.sql.DeleteOlderThan(ctx, s.db.Conn(), cutoff.UTC())
}

func (s *Store) CountSnapshots(ctx context.Context, accountID string) (n int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.CountSnapshots: %w", err)
		}
	}()
	return s.sql.CountSnapshots(ctx, s.db.Conn(), accountID)
}

// ListSnapshots: записи аккаунта в [from, to] по возрастанию времени. Нулевые границы = без ограничения.
func (s *Store) ListSnapshots(ctx context.Context, accountID string, from, to time.Time, withCurrencies bool) (out []models.SnapshotRecord, err error) {
	span, ctx := tracing.StartSpan(ctx, "pg.ListSnapshots")
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListSnapshots: %w", err)
		}
		tracing.FinishSpan(span, err)
	}()

	query, args, err := listSnapshotsQuery(accountID, from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SnapshotRecord, error) {
		var r models.SnapshotRecord
		err := row.Scan(&r.ID, &r.AccountID, &r.BucketTS, &r.TotalEquity, &r.Available,
			&r.Frozen, &r.MarginUsed, &r.UnrealizedPnl)
		r.BucketTS = r.BucketTS.UTC()
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if !withCurrencies || len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(out))
	byID := make(map[int64]int, len(out))
	for i, r := range out {
		ids = append(ids, r.ID)
		byID[r.ID] = i
		out[i].Currencies = []models.CurrencySnapshot{}
	}

	query, args, err = currenciesQuery(ids)
	if err != nil {
		return nil, err
	}
	rows, err = s.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			snapshotID int64
			c          models.CurrencySnapshot
		)
		if err = rows.Scan(&snapshotID, &c.Ccy, &c.Bal, &c.AvailBal, &c.FrozenBal, &c.Eq, &c.EqUsd); err != nil {
			return nil, err
		}
		if i, ok := byID[snapshotID]; ok {
			out[i].Currencies = append(out[i].Currencies, c)
		}
	}
	return out, rows.Err()
}

func listSnapshotsQuery(accountID string, from, to time.Time) (string, []any, error) {
	q := psql.
		Select("id", "account_id", "bucket_ts", "total_equity", "available", "frozen", "margin_used", "unrealized_pnl").
		From("snapshots").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("bucket_ts ASC")
	if !from.IsZero() {
		q = q.Where(sq.GtOrEq{"bucket_ts": from.UTC()})
	}
	if !to.IsZero() {
		q = q.Where(sq.LtOrEq{"bucket_ts": to.UTC()})
	}
	return q.ToSql()
}

func currenciesQuery(snapshotIDs []int64) (string, []any, error) {
	return psql.
		Select("snapshot_id", "ccy", "bal", "avail_bal", "frozen_bal", "eq", "eq_usd").
		From("currency_snapshots").
		Where(sq.Eq{"snapshot_id": snapshotIDs}).
		OrderBy("snapshot_id ASC", "eq_usd DESC").
		ToSql()
}

func splitStatements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
