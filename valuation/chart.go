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

// donutRadius matches the front-end SVG donut; arc lengths are expressed
// against its circumference
const donutRadius = 80

// DonutCircumference is exported so the presentation layer can scale arcs
var DonutCircumference = 2 * math.Pi * donutRadius

// ChartSegment is one arc of the allocation donut
type ChartSegment struct {
	Name   string  `json:"name"`
	Pct    float64 `json:"pct"`
	Color  string  `json:"color"`
	Arc    float64 `json:"arc"`
	Offset float64 `json:"offset"`
	Value  float64 `json:"value"`
}

var segmentColors = map[AssetClass]string{
	ClassCash:   "#d4d4d4",
	ClassStock:  "#a3a3a3",
	ClassOption: "#737373",
	ClassETF:    "#8b8b8b",
	ClassCrypto: "#5c5c5c",
}

// ChartSegments derives the allocation donut segments from a breakdown.
// Zero-value classes are skipped; a non-positive net liquidation yields no
// segments at all.
func ChartSegments(b *AssetBreakdown) []*ChartSegment {
	if b.TotalMarketValue <= 0 {
		return nil
	}

	values := []struct {
		class AssetClass
		value float64
	}{
		{ClassCash, b.Cash},
		{ClassStock, b.Stock.MarketValue},
		{ClassOption, b.Option.MarketValue},
		{ClassETF, b.ETF.MarketValue},
		{ClassCrypto, b.Crypto.MarketValue},
	}

	segments := make([]*ChartSegment, 0, len(values))
	offset := 0.0
	for _, v := range values {
		pct := v.value / b.TotalMarketValue * 100
		if pct <= 0 {
			continue
		}
		arc := pct / 100 * DonutCircumference
		segments = append(segments, &ChartSegment{
			Name:   string(v.class),
			Pct:    pct,
			Color:  segmentColors[v.class],
			Arc:    arc,
			Offset: offset,
			Value:  v.value,
		})
		offset += arc
	}

	return segments
}
