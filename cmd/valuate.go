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
	"os"

	"github.com/ledgerglass/lg-api/common"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/marketclock"
	"github.com/ledgerglass/lg-api/valuation"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(valuateCmd)
}

var valuateCmd = &cobra.Command{
	Use:   "valuate",
	Short: "Run a single valuation cycle and print the result",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		common.SetupLogging()
		common.SetupCache()

		// setup database
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}

		if err := marketclock.LoadMarketHolidays(); err != nil {
			log.Fatal().Err(err).Msg("could not load market holidays")
		}

		tz := common.GetDisplayTimezone()
		valuator := buildValuator(tz)

		data, err := valuator.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("valuation cycle failed")
		}

		printSummary(data)
		printPositions(data.Positions)
		printAllocation(data.Allocation)
	},
}

func printSummary(data *valuation.PortfolioData) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.Append([]string{"Net Liquidation", fmt.Sprintf("%.2f", data.NetLiquidation)})
	table.Append([]string{"Cash", fmt.Sprintf("%.2f", data.Cash)})
	table.Append([]string{"Principal", fmt.Sprintf("%.2f", data.Principal)})
	table.Append([]string{"Unrealized P&L", fmt.Sprintf("%.2f", data.TotalUPnL)})
	table.Append([]string{"Theta", fmt.Sprintf("%.2f", data.TotalTheta)})
	table.Append([]string{"Utilization", fmt.Sprintf("%.2f%%", data.Utilization*100)})
	if data.AccountInfo != nil {
		table.Append([]string{"Max Drawdown", fmt.Sprintf("%.2f%%", data.AccountInfo.MaxDrawdownPercent)})
	}
	table.Render()
	fmt.Println()
}

func printPositions(positions []*valuation.Position) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Class", "Qty", "Price", "Value", "UPnL", "DTE"})
	table.SetBorder(false)

	for _, pos := range positions {
		dte := ""
		if pos.DaysToExpiry > 0 {
			dte = fmt.Sprintf("%d", pos.DaysToExpiry)
		}
		table.Append([]string{
			pos.Symbol,
			pos.SecType,
			fmt.Sprintf("%.0f", pos.Quantity),
			fmt.Sprintf("%.2f", pos.Price),
			fmt.Sprintf("%.2f", pos.MarketValue),
			fmt.Sprintf("%.2f", pos.UnrealizedPnL),
			dte,
		})
	}

	table.Render()
	fmt.Println()
}

func printAllocation(allocation []*valuation.AssetAllocation) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Class", "Value", "Percent"})
	table.SetBorder(false)

	for _, alloc := range allocation {
		table.Append([]string{
			string(alloc.Class),
			fmt.Sprintf("%.2f", alloc.MarketValue),
			fmt.Sprintf("%.2f%%", alloc.ValuePct),
		})
	}

	table.Render()
}
