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

// Package account persists the durable valuation state: broker snapshots,
// the per-account peak/trough ratchet, the minute-resolution valuation
// history and the last known FX rates.
package account

import (
	"context"
	"errors"
	"os"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/valuation"
	"github.com/rs/zerolog/log"
)

// DbSnapshotStore reads and writes broker snapshots in the
// account_snapshots table. The snapshot document itself is stored as
// jsonb; Load always returns the most recent one.
type DbSnapshotStore struct{}

func (s *DbSnapshotStore) Load(ctx context.Context) (*valuation.AccountSnapshot, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not begin transaction")
		return nil, err
	}

	sql := `SELECT snapshot FROM account_snapshots ORDER BY created DESC LIMIT 1`

	var doc pgtype.JSONB
	err = trx.QueryRow(ctx, sql).Scan(&doc)
	if err != nil {
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, valuation.ErrNoSnapshot
		}
		log.Error().Stack().Err(err).Str("Query", sql).Msg("could not load account snapshot")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	snapshot := &valuation.AccountSnapshot{}
	if err := json.Unmarshal(doc.Bytes, snapshot); err != nil {
		log.Error().Stack().Err(err).Msg("could not unmarshal account snapshot")
		return nil, err
	}

	return snapshot, nil
}

// Save persists a broker snapshot. Snapshots are immutable; re-saving an
// id replaces the stored document.
func (s *DbSnapshotStore) Save(ctx context.Context, snapshot *valuation.AccountSnapshot) error {
	subLog := log.With().Str("SnapshotID", snapshot.ID).Logger()

	doc, err := json.Marshal(snapshot)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not marshal account snapshot")
		return err
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin transaction")
		return err
	}

	sql := `INSERT INTO account_snapshots ("id", "created", "snapshot") VALUES ($1, $2, $3)
	ON CONFLICT ON CONSTRAINT account_snapshots_pkey
	DO UPDATE SET created=$2, snapshot=$3`

	_, err = trx.Exec(ctx, sql, snapshot.ID, snapshot.Timestamp, doc)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", sql).Msg("could not save account snapshot")
		if rollbackErr := trx.Rollback(ctx); rollbackErr != nil {
			log.Error().Stack().Err(rollbackErr).Msg("could not rollback transaction")
		}
		return err
	}

	return trx.Commit(ctx)
}

// FileSnapshotStore loads a broker snapshot from a JSON export on disk;
// used when running valuations against a file instead of the database.
type FileSnapshotStore struct {
	Path string
}

func (s *FileSnapshotStore) Load(_ context.Context) (*valuation.AccountSnapshot, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, valuation.ErrNoSnapshot
		}
		log.Error().Stack().Err(err).Str("Path", s.Path).Msg("could not read snapshot file")
		return nil, err
	}

	snapshot := &valuation.AccountSnapshot{}
	if err := json.Unmarshal(raw, snapshot); err != nil {
		log.Error().Stack().Err(err).Str("Path", s.Path).Msg("could not unmarshal snapshot file")
		return nil, err
	}

	if snapshot.Timestamp.IsZero() {
		if info, err := os.Stat(s.Path); err == nil {
			snapshot.Timestamp = info.ModTime()
		}
	}

	return snapshot, nil
}
