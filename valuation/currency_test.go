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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ledgerglass/lg-api/valuation"
)

var _ = Describe("Currency converter", func() {
	var rates valuation.RateTable

	BeforeEach(func() {
		rates = valuation.RateTable{
			valuation.SGD: 1.34,
			valuation.EUR: 0.92,
			valuation.JPY: 148.5,
		}
	})

	Describe("when converting from the home currency", func() {
		It("should multiply by the target rate", func() {
			Expect(valuation.Convert(100, valuation.SGD, rates)).Should(BeNumerically("~", 134, 1e-9))
		})

		It("should be the identity for the home currency", func() {
			Expect(valuation.Convert(100, valuation.USD, rates)).Should(BeNumerically("~", 100, 1e-9))
		})
	})

	Describe("when converting back to the home currency", func() {
		It("should round-trip within tolerance", func() {
			for _, c := range []valuation.Currency{valuation.SGD, valuation.EUR, valuation.JPY} {
				converted := valuation.Convert(1234.56, c, rates)
				Expect(valuation.ToHome(converted, c, rates)).Should(BeNumerically("~", 1234.56, 1e-9))
			}
		})

		It("should yield zero rather than Inf for a zero rate", func() {
			Expect(valuation.ToHome(100, valuation.GBP, rates)).To(BeZero())
		})
	})

	Describe("when validating rate coverage", func() {
		It("should accept currencies with positive rates", func() {
			Expect(rates.Validate([]valuation.Currency{valuation.USD, valuation.SGD, valuation.JPY})).To(Succeed())
		})

		It("should reject a currency with no rate", func() {
			err := rates.Validate([]valuation.Currency{valuation.SGD, valuation.GBP})
			Expect(err).To(MatchError(valuation.ErrRateUnavailable))
		})

		It("should reject a non-positive rate", func() {
			rates[valuation.EUR] = -1
			err := rates.Validate([]valuation.Currency{valuation.EUR})
			Expect(err).To(MatchError(valuation.ErrRateUnavailable))
		})
	})

	Describe("when formatting amounts", func() {
		It("should prefix the currency symbol and group thousands", func() {
			Expect(valuation.FormatAmount(1234567.891, valuation.USD)).To(Equal("$1,234,567.89"))
		})

		It("should format negative amounts", func() {
			Expect(valuation.FormatAmount(-1234.5, valuation.SGD)).To(Equal("S$-1,234.50"))
		})
	})
})
