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

package valuation_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ledgerglass/lg-api/valuation"
)

var _ = Describe("Position valuator", func() {
	var (
		quotes map[string]*valuation.Quote
		now    time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)
		quotes = map[string]*valuation.Quote{
			"AAPL": {Symbol: "AAPL", Bid: 109, Ask: 111},
			"NVDA": {Symbol: "NVDA", Bid: 199, Ask: 201},
			"NVDA260320C00200000": {
				Symbol: "NVDA260320C00200000",
				Bid:    5.9,
				Ask:    6.1,
				Greeks: &valuation.Greeks{Delta: 0.55, Gamma: 0.012, Theta: -0.08},
			},
		}
	})

	Describe("when pricing a stock position", func() {
		var pos *valuation.Position

		BeforeEach(func() {
			raw := &valuation.RawPosition{Symbol: "AAPL", SecType: valuation.SecTypeStock, Quantity: 10, AvgCost: 100}
			pos = valuation.PricePosition(raw, quotes, now, time.UTC)
		})

		It("should use the mid price", func() {
			Expect(pos.Price).Should(BeNumerically("~", 110, 1e-9))
		})

		It("should compute market value", func() {
			Expect(pos.MarketValue).Should(BeNumerically("~", 1100, 1e-9))
		})

		It("should compute unrealized P&L", func() {
			Expect(pos.UnrealizedPnL).Should(BeNumerically("~", 100, 1e-9))
		})

		It("should compute percent change", func() {
			Expect(pos.PercentChange).Should(BeNumerically("~", 10, 1e-9))
		})

		It("should use quantity as delta", func() {
			Expect(pos.Delta).Should(BeNumerically("~", 10, 1e-9))
		})
	})

	Describe("when pricing an option position", func() {
		var pos *valuation.Position

		BeforeEach(func() {
			raw := &valuation.RawPosition{
				Symbol:   "NVDA",
				SecType:  valuation.SecTypeOption,
				Quantity: 2,
				AvgCost:  500,
				Right:    "C",
				Strike:   200,
				Expiry:   "20260320",
			}
			pos = valuation.PricePosition(raw, quotes, now, time.UTC)
		})

		It("should scale the mid price to contract notional", func() {
			Expect(pos.Price).Should(BeNumerically("~", 600, 1e-9))
		})

		It("should compute unrealized P&L on the notional price", func() {
			Expect(pos.UnrealizedPnL).Should(BeNumerically("~", 200, 1e-9))
		})

		It("should resolve the underlying mid from the plain symbol", func() {
			Expect(pos.UnderlyingPrice).Should(BeNumerically("~", 200, 1e-9))
		})

		It("should convert greeks to the position scale", func() {
			Expect(pos.Delta).Should(BeNumerically("~", 110.0, 1e-9))
			Expect(pos.Gamma).Should(BeNumerically("~", 2.4, 1e-9))
			Expect(pos.Theta).Should(BeNumerically("~", -16.0, 1e-9))
		})

		It("should compute days to expiry with a calendar-day ceiling", func() {
			Expect(pos.DaysToExpiry).To(Equal(2))
		})
	})

	Describe("edge cases", func() {
		It("should yield 0 percent change when cost is zero", func() {
			raw := &valuation.RawPosition{Symbol: "AAPL", SecType: valuation.SecTypeStock, Quantity: 10, AvgCost: 0}
			pos := valuation.PricePosition(raw, quotes, now, time.UTC)
			Expect(pos.PercentChange).To(BeZero())
			Expect(math.IsNaN(pos.PercentChange)).To(BeFalse())
		})

		It("should price at zero when the quote is missing", func() {
			raw := &valuation.RawPosition{Symbol: "ZZZZ", SecType: valuation.SecTypeStock, Quantity: 3, AvgCost: 50}
			pos := valuation.PricePosition(raw, quotes, now, time.UTC)
			Expect(pos.Price).To(BeZero())
			Expect(pos.UnrealizedPnL).Should(BeNumerically("~", -150, 1e-9))
		})

		It("should price at zero when one side of the quote is NaN", func() {
			quotes["AAPL"] = &valuation.Quote{Symbol: "AAPL", Bid: math.NaN(), Ask: 111}
			raw := &valuation.RawPosition{Symbol: "AAPL", SecType: valuation.SecTypeStock, Quantity: 10, AvgCost: 100}
			pos := valuation.PricePosition(raw, quotes, now, time.UTC)
			Expect(pos.Price).To(BeZero())
		})

		It("should report 0 days to expiry on expiry day, not negative", func() {
			raw := &valuation.RawPosition{
				Symbol:   "NVDA",
				SecType:  valuation.SecTypeOption,
				Quantity: 1,
				AvgCost:  100,
				Right:    "C",
				Strike:   200,
				Expiry:   "20260318",
			}
			pos := valuation.PricePosition(raw, quotes, now, time.UTC)
			Expect(pos.DaysToExpiry).To(Equal(0))
		})

		It("should skip quote matching for an option with a malformed expiry", func() {
			raw := &valuation.RawPosition{
				Symbol:   "NVDA",
				SecType:  valuation.SecTypeOption,
				Quantity: 1,
				AvgCost:  100,
				Right:    "C",
				Strike:   200,
				Expiry:   "garbage",
			}
			pos := valuation.PricePosition(raw, quotes, now, time.UTC)
			Expect(pos.Price).To(BeZero())
		})
	})

	Describe("when deriving the quote request list", func() {
		It("should include option keys plus underlying symbols, deduped", func() {
			raw := []*valuation.RawPosition{
				{Symbol: "NVDA", SecType: valuation.SecTypeStock, Quantity: 10, AvgCost: 100},
				{Symbol: "NVDA", SecType: valuation.SecTypeOption, Quantity: 2, AvgCost: 500, Right: "C", Strike: 200, Expiry: "20260320"},
			}
			symbols := valuation.QuoteSymbols(raw)
			Expect(symbols).To(ConsistOf("NVDA", "NVDA260320C00200000"))
		})
	})
})
