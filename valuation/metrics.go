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

package valuation

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// HistoryStats summarizes the recorded net-liquidation series for trend
// display
type HistoryStats struct {
	MeanDailyReturn float64 `json:"meanDailyReturn"`
	Volatility      float64 `json:"volatility"`
	TotalReturn     float64 `json:"totalReturn"`
}

// dailyCloses collapses minute entries to the last reading of each
// calendar day
func dailyCloses(entries []*HistoryEntry) []float64 {
	var closes []float64
	lastDay := ""
	for _, e := range SortDedup(entries) {
		day := e.Datetime[:10]
		if day == lastDay {
			closes[len(closes)-1] = e.NetLiquidation
		} else {
			closes = append(closes, e.NetLiquidation)
			lastDay = day
		}
	}
	return closes
}

// ComputeHistoryStats derives mean daily return and volatility from the
// history series. Fewer than two daily closes yields zeroes.
func ComputeHistoryStats(entries []*HistoryEntry) *HistoryStats {
	closes := dailyCloses(entries)
	if len(closes) < 2 {
		return &HistoryStats{}
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) == 0 {
		return &HistoryStats{}
	}

	stats := &HistoryStats{
		MeanDailyReturn: stat.Mean(returns, nil),
		Volatility:      stat.StdDev(returns, nil),
	}
	if closes[0] != 0 {
		stats.TotalReturn = closes[len(closes)-1]/closes[0] - 1
	}
	if math.IsNaN(stats.Volatility) {
		stats.Volatility = 0
	}
	return stats
}

// Utilization is the share of net liquidation deployed outside cash
func Utilization(netLiquidation, cash float64) float64 {
	if netLiquidation == 0 {
		return 0
	}
	return (netLiquidation - cash) / netLiquidation
}

// TotalTheta sums converted theta across option positions
func TotalTheta(positions []*Position) float64 {
	var theta float64
	for _, p := range positions {
		if p.IsOption() {
			theta += p.Theta
		}
	}
	return theta
}
