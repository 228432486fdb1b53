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
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/valuation"
	"github.com/rs/zerolog/log"
)

// DbPeakStore persists the peak/trough ratchet in the account_peaks
// table. It implements valuation.PeakStore.
type DbPeakStore struct{}

// UpdatePeak applies the ratchet update inside a row lock so overlapping
// valuation cycles serialize instead of clobbering each other's peaks.
// The row is written only when apply reports a change.
func (s *DbPeakStore) UpdatePeak(ctx context.Context, accountID string, apply func(*valuation.AccountInfo) bool) (*valuation.AccountInfo, error) {
	subLog := log.With().Str("AccountID", accountID).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	selectSQL := `SELECT max_value, min_value, max_drawdown_pct FROM account_peaks WHERE account_id=$1 FOR UPDATE`

	info := &valuation.AccountInfo{}
	err = trx.QueryRow(ctx, selectSQL, accountID).Scan(&info.MaxValue, &info.MinValue, &info.MaxDrawdownPercent)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		subLog.Error().Stack().Err(err).Str("Query", selectSQL).Msg("could not load peak state")
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if !apply(info) {
		// nothing changed; release the row lock
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return info, nil
	}

	upsertSQL := `INSERT INTO account_peaks ("account_id", "max_value", "min_value", "max_drawdown_pct") VALUES ($1, $2, $3, $4)
	ON CONFLICT ON CONSTRAINT account_peaks_pkey
	DO UPDATE SET max_value=$2, min_value=$3, max_drawdown_pct=$4`

	_, err = trx.Exec(ctx, upsertSQL, accountID, info.MaxValue, info.MinValue, info.MaxDrawdownPercent)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", upsertSQL).Msg("could not save peak state")
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return nil, err
	}

	return info, nil
}
