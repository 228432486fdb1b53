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
	"fmt"
	"time"

	"github.com/ledgerglass/lg-api/account"
	"github.com/ledgerglass/lg-api/common"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/valuation"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var historyStartDate string

func init() {
	historyCmd.Flags().StringVarP(&historyStartDate, "start", "s", "", "only plot entries on or after this date (2006-01-02)")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Plot the recorded net liquidation series",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		common.SetupLogging()

		// setup database
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}

		store := &account.DbHistoryStore{}

		var entries []*valuation.HistoryEntry
		var err error
		if historyStartDate != "" {
			startDate, parseErr := time.Parse("2006-01-02", historyStartDate)
			if parseErr != nil {
				log.Fatal().Err(parseErr).Str("InputStr", historyStartDate).Msg("could not parse start date - expected format 2006-01-02")
			}
			entries, err = store.ListRange(ctx, startDate, time.Now())
		} else {
			entries, err = store.ListAll(ctx)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("could not load valuation history")
		}

		entries = valuation.SortDedup(entries)
		if len(entries) == 0 {
			fmt.Println("no history recorded yet")
			return
		}

		series := make([]float64, 0, len(entries))
		for _, e := range entries {
			series = append(series, e.NetLiquidation)
		}

		caption := fmt.Sprintf("net liquidation %s .. %s", entries[0].Datetime, entries[len(entries)-1].Datetime)
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(16),
			asciigraph.Width(100),
			asciigraph.Caption(caption)))

		stats := valuation.ComputeHistoryStats(entries)
		fmt.Printf("\nmean daily return: %.4f%%  volatility: %.4f%%  total return: %.2f%%\n",
			stats.MeanDailyReturn*100, stats.Volatility*100, stats.TotalReturn*100)
	},
}
