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

package cmd

import (
	"context"
	"os"
	"time"

	"github.com/ledgerglass/lg-api/account"
	"github.com/ledgerglass/lg-api/common"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/valuation"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Import a broker snapshot file into the database",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		common.SetupLogging()

		// setup database
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not read snapshot file")
		}

		var snapshot valuation.AccountSnapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not parse snapshot file")
		}
		if snapshot.Timestamp.IsZero() {
			snapshot.Timestamp = time.Now()
		}

		store := &account.DbSnapshotStore{}
		if err := store.Save(ctx, &snapshot); err != nil {
			log.Fatal().Err(err).Msg("could not save snapshot")
		}

		log.Info().
			Str("ID", snapshot.ID).
			Int("NumAccounts", len(snapshot.Accounts)).
			Int("NumPositions", len(snapshot.Positions)).
			Msg("imported snapshot")
	},
}
