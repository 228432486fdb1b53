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
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ledgerglass/lg-api/valuation"
)

// genPositions builds a deterministic pseudo-random position set
func genPositions(rng *rand.Rand, n int) []*valuation.Position {
	secTypes := []string{valuation.SecTypeStock, valuation.SecTypeETF, valuation.SecTypeOption, valuation.SecTypeCrypto}
	positions := make([]*valuation.Position, 0, n)
	for i := 0; i < n; i++ {
		secType := secTypes[rng.Intn(len(secTypes))]
		qty := float64(rng.Intn(100) + 1)
		cost := rng.Float64()*500 + 1
		price := rng.Float64()*500 + 1

		p := &valuation.Position{
			Symbol:        string(rune('A'+i%26)) + string(rune('A'+(i/26)%26)) + "X",
			SecType:       secType,
			Quantity:      qty,
			AvgCost:       cost,
			Price:         price,
			MarketValue:   price * qty,
			UnrealizedPnL: (price - cost) * qty,
		}
		if secType == valuation.SecTypeOption {
			p.Right = "C"
			p.Strike = float64(rng.Intn(400) + 10)
			p.Expiry = "20261218"
		}
		positions = append(positions, p)
	}
	return positions
}

var _ = Describe("Asset aggregator", func() {
	var rates valuation.RateTable

	BeforeEach(func() {
		rates = valuation.RateTable{valuation.SGD: 1.25}
	})

	Describe("when classifying positions", func() {
		It("should classify options ahead of everything else", func() {
			p := &valuation.Position{Symbol: "SPY", SecType: valuation.SecTypeOption}
			Expect(valuation.Classify(p)).To(Equal(valuation.ClassOption))
		})

		It("should classify allowlisted symbols as ETF", func() {
			p := &valuation.Position{Symbol: "SPY", SecType: valuation.SecTypeStock}
			Expect(valuation.Classify(p)).To(Equal(valuation.ClassETF))
		})

		It("should classify broker-flagged ETFs", func() {
			p := &valuation.Position{Symbol: "ARKK", SecType: valuation.SecTypeETF}
			Expect(valuation.Classify(p)).To(Equal(valuation.ClassETF))
		})

		It("should classify crypto", func() {
			p := &valuation.Position{Symbol: "BTC", SecType: valuation.SecTypeCrypto}
			Expect(valuation.Classify(p)).To(Equal(valuation.ClassCrypto))
		})

		It("should default to stock", func() {
			p := &valuation.Position{Symbol: "AAPL", SecType: valuation.SecTypeStock}
			Expect(valuation.Classify(p)).To(Equal(valuation.ClassStock))
		})
	})

	Describe("when aggregating cash sources", func() {
		It("should convert each source to the home currency before summing", func() {
			cash := []valuation.CashSource{
				{Account: "Broker", Amount: 1000, Currency: valuation.USD},
				{Account: "Cash Acct", Amount: 2500, Currency: valuation.SGD},
			}
			breakdown := valuation.Aggregate(nil, cash, rates)
			Expect(breakdown.Cash).Should(BeNumerically("~", 1000+2500/1.25, 1e-9))
		})
	})

	Describe("when aggregating generated position sets", func() {
		It("should satisfy cash + sum(class market value) == total", func() {
			rng := rand.New(rand.NewSource(42))
			for trial := 0; trial < 50; trial++ {
				positions := genPositions(rng, rng.Intn(30)+1)
				cash := []valuation.CashSource{
					{Account: "Broker", Amount: rng.Float64() * 10000, Currency: valuation.USD},
					{Account: "Cash Acct", Amount: rng.Float64() * 10000, Currency: valuation.SGD},
				}
				breakdown := valuation.Aggregate(positions, cash, rates)
				Expect(valuation.CheckConservation(breakdown)).To(BeTrue())

				sum := breakdown.Cash + breakdown.Stock.MarketValue + breakdown.Option.MarketValue +
					breakdown.ETF.MarketValue + breakdown.Crypto.MarketValue
				Expect(sum).Should(BeNumerically("~", breakdown.TotalMarketValue, 1e-6*sum+1e-6))
			}
		})
	})

	Describe("when deriving allocation rows", func() {
		var breakdown *valuation.AssetBreakdown

		BeforeEach(func() {
			positions := []*valuation.Position{
				{Symbol: "AAPL", SecType: valuation.SecTypeStock, Quantity: 10, AvgCost: 100, Price: 110, MarketValue: 1100, UnrealizedPnL: 100},
			}
			cash := []valuation.CashSource{{Account: "Broker", Amount: 900, Currency: valuation.USD}}
			breakdown = valuation.Aggregate(positions, cash, rates)
		})

		It("should show cash only when positive", func() {
			rows := valuation.Allocation(breakdown)
			for _, row := range rows {
				switch row.Class {
				case valuation.ClassCash:
					Expect(row.Visible).To(BeTrue())
				case valuation.ClassStock:
					Expect(row.Visible).To(BeTrue())
				case valuation.ClassOption:
					Expect(row.Visible).To(BeFalse())
				case valuation.ClassETF, valuation.ClassCrypto:
					Expect(row.Visible).To(BeTrue())
				}
			}
		})

		It("should compute value percentages against the total", func() {
			rows := valuation.Allocation(breakdown)
			for _, row := range rows {
				if row.Class == valuation.ClassStock {
					Expect(row.ValuePct).Should(BeNumerically("~", 1100.0/2000.0*100, 1e-9))
				}
			}
		})
	})
})
