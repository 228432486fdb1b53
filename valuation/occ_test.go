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

var _ = Describe("OCC keys", func() {
	Describe("when encoding an option contract", func() {
		Context("with a standard call", func() {
			It("should produce the canonical key", func() {
				key, ok := valuation.OccKey("NVDA", "20260320", "C", 200.00)
				Expect(ok).To(BeTrue())
				Expect(key).To(Equal("NVDA260320C00200000"))
			})
		})

		Context("with a put", func() {
			It("should encode the P right", func() {
				key, ok := valuation.OccKey("AAPL", "20251219", "P", 172.5)
				Expect(ok).To(BeTrue())
				Expect(key).To(Equal("AAPL251219P00172500"))
			})
		})

		Context("with malformed input", func() {
			It("should reject a short expiry", func() {
				_, ok := valuation.OccKey("NVDA", "2603", "C", 200)
				Expect(ok).To(BeFalse())
			})

			It("should reject a non-numeric expiry", func() {
				_, ok := valuation.OccKey("NVDA", "2026MAR0", "C", 200)
				Expect(ok).To(BeFalse())
			})

			It("should reject a non-positive strike", func() {
				_, ok := valuation.OccKey("NVDA", "20260320", "C", 0)
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("when decoding a key", func() {
		It("should recover the strike", func() {
			strike, ok := valuation.OccStrike("NVDA260320C00200000")
			Expect(ok).To(BeTrue())
			Expect(strike).Should(BeNumerically("~", 200.00, 1e-9))
		})

		It("should recover a fractional strike", func() {
			strike, ok := valuation.OccStrike("AAPL251219P00172500")
			Expect(ok).To(BeTrue())
			Expect(strike).Should(BeNumerically("~", 172.5, 1e-9))
		})

		It("should reject a truncated key", func() {
			_, ok := valuation.OccStrike("C00200")
			Expect(ok).To(BeFalse())
		})
	})
})
