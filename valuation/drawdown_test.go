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

var _ = Describe("Drawdown tracker", func() {
	var info *valuation.AccountInfo

	BeforeEach(func() {
		info = &valuation.AccountInfo{}
	})

	Describe("when tracking a fresh account", func() {
		It("should set peak and trough to the first reading", func() {
			info.Update(100)
			Expect(info.MaxValue).Should(BeNumerically("~", 100, 1e-9))
			Expect(info.MinValue).Should(BeNumerically("~", 100, 1e-9))
			Expect(info.MaxDrawdownPercent).To(BeZero())
		})

		It("should report zero drawdown when no peak exists", func() {
			Expect(info.CurrentDrawdown()).To(BeZero())
		})
	})

	Describe("when applying the two-peak scenario 100, 80, 120, 90", func() {
		BeforeEach(func() {
			for _, v := range []float64{100, 80, 120, 90} {
				info.Update(v)
			}
		})

		It("should keep the higher peak", func() {
			Expect(info.MaxValue).Should(BeNumerically("~", 120, 1e-9))
		})

		It("should track the trough since the most recent peak", func() {
			Expect(info.MinValue).Should(BeNumerically("~", 90, 1e-9))
		})

		It("should retain the worse of the two drawdowns", func() {
			// -20% after the first peak, -25% after the second
			Expect(info.MaxDrawdownPercent).Should(BeNumerically("~", -25, 1e-9))
		})
	})

	Describe("when a new peak is set", func() {
		It("should reset the trough so drawdown measures from the new peak", func() {
			info.Update(100)
			info.Update(70)
			info.Update(150)
			Expect(info.MinValue).Should(BeNumerically("~", 150, 1e-9))
			Expect(info.CurrentDrawdown()).To(BeZero())
			Expect(info.MaxDrawdownPercent).Should(BeNumerically("~", -30, 1e-9))
		})
	})

	Describe("when applying arbitrary reading sequences", func() {
		It("should never let max drawdown move toward zero", func() {
			rng := rand.New(rand.NewSource(7))
			for trial := 0; trial < 20; trial++ {
				info = &valuation.AccountInfo{}
				prev := 0.0
				for step := 0; step < 200; step++ {
					info.Update(rng.Float64()*100000 + 1)
					Expect(info.MaxDrawdownPercent).Should(BeNumerically("<=", prev+1e-9))
					prev = info.MaxDrawdownPercent
				}
			}
		})
	})

	Describe("rounding", func() {
		It("should store monetary values at 2 decimal places", func() {
			info.Update(100.006)
			Expect(info.MaxValue).Should(BeNumerically("~", 100.01, 1e-9))
		})
	})
})
