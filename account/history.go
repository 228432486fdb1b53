// Copyright 2023-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package account

import (
	"context"
	"time"

	"github.com/jackc/pgsql"
	"github.com/jackc/pgx/v4"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/valuation"
	"github.com/rs/zerolog/log"
)

const historyColumns = `"id", "datetime", "timestamp", "net_liquidation", "principal", "fx_rate", "stock_value", "option_value", "etf_value", "crypto_value", "cash"`

// DbHistoryStore persists valuation history in the valuation_history
// table. It implements valuation.HistoryStore. The table is append-only;
// the primary key is the blake3 hash of the minute bucket, which makes
// concurrent same-minute writers collapse to a single row.
type DbHistoryStore struct{}

// AppendIfAbsent inserts the entry unless its minute bucket already
// exists. Returns true when a new row was written.
func (s *DbHistoryStore) AppendIfAbsent(ctx context.Context, entry *valuation.HistoryEntry) (bool, error) {
	subLog := log.With().Str("Datetime", entry.Datetime).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return false, err
	}

	sql := `INSERT INTO valuation_history (` + historyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT ON CONSTRAINT valuation_history_pkey DO NOTHING`

	tag, err := trx.Exec(ctx, sql, entry.ID, entry.Datetime, entry.Timestamp, entry.NetLiquidation,
		entry.Principal, entry.FxRate, entry.StockValue, entry.OptionValue, entry.ETFValue,
		entry.CryptoValue, entry.Cash)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", sql).Msg("could not append history entry")
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		return false, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// ListAll returns the full history ordered by timestamp ascending
func (s *DbHistoryStore) ListAll(ctx context.Context) ([]*valuation.HistoryEntry, error) {
	sql := `SELECT ` + historyColumns + ` FROM valuation_history ORDER BY "timestamp" ASC`
	return s.query(ctx, sql)
}

// ListRange returns the history entries between since and until,
// inclusive, ordered by timestamp ascending
func (s *DbHistoryStore) ListRange(ctx context.Context, since time.Time, until time.Time) ([]*valuation.HistoryEntry, error) {
	stmt := &pgsql.SelectStatement{}
	for _, col := range []string{"id", "datetime", "timestamp", "net_liquidation", "principal", "fx_rate",
		"stock_value", "option_value", "etf_value", "crypto_value", "cash"} {
		stmt.Select(pgx.Identifier{col}.Sanitize())
	}
	stmt.From("valuation_history")
	stmt.Where(`"timestamp" >= ?`, since.Unix())
	stmt.Where(`"timestamp" <= ?`, until.Unix())
	stmt.Order(`"timestamp" ASC`)

	sql, args := pgsql.Build(stmt)
	return s.query(ctx, sql, args...)
}

func (s *DbHistoryStore) query(ctx context.Context, sql string, args ...interface{}) ([]*valuation.HistoryEntry, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	rows, err := trx.Query(ctx, sql, args...)
	if err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("could not query valuation history")
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		return nil, err
	}

	entries := make([]*valuation.HistoryEntry, 0, 100)
	for rows.Next() {
		entry := &valuation.HistoryEntry{}
		err := rows.Scan(&entry.ID, &entry.Datetime, &entry.Timestamp, &entry.NetLiquidation,
			&entry.Principal, &entry.FxRate, &entry.StockValue, &entry.OptionValue, &entry.ETFValue,
			&entry.CryptoValue, &entry.Cash)
		if err != nil {
			log.Warn().Stack().Err(err).Str("Query", sql).Msg("history entry scan failed")
			continue
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("history query read failed")
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	return entries, nil
}
