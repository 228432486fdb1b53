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

import "math"

// AccountInfo is the persisted peak-tracking state for an account. It is
// the only durable state the valuation engine owns; updates must run
// inside the store's per-account critical section because two concurrent
// writers observing the same stale peak can un-ratchet the drawdown.
type AccountInfo struct {
	MaxValue           float64 `json:"max_value"`
	MinValue           float64 `json:"min_value"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
}

// round2 keeps stored monetary values at 2 decimal places so repeated
// updates do not accumulate float drift
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Update applies one net-liquidation reading to the peak tracker and
// reports whether any field changed. A new peak resets the trough, so
// drawdown is always measured from the most recent peak forward.
// MaxDrawdownPercent is a monotone ratchet: it only ever moves toward more
// negative and is never reset.
func (a *AccountInfo) Update(netLiquidation float64) bool {
	v := round2(netLiquidation)
	changed := false

	switch {
	case a.MaxValue == 0 || v > a.MaxValue:
		a.MaxValue = v
		a.MinValue = v
		changed = true
	case a.MinValue == 0 || v < a.MinValue:
		a.MinValue = v
		changed = true
	}

	current := a.CurrentDrawdown()
	if current < a.MaxDrawdownPercent {
		a.MaxDrawdownPercent = current
		changed = true
	}

	return changed
}

// CurrentDrawdown is the decline from the most recent peak to the trough
// observed since, as a percentage <= 0
func (a *AccountInfo) CurrentDrawdown() float64 {
	if a.MaxValue == 0 {
		return 0
	}
	return round2((a.MinValue - a.MaxValue) / a.MaxValue * 100)
}
