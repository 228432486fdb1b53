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

package marketdata_test

import (
	"context"

	"github.com/jarcoal/httpmock"
	"github.com/ledgerglass/lg-api/marketdata"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tradier", func() {
	var (
		tradier *marketdata.Tradier
		ctx     context.Context
	)

	BeforeEach(func() {
		tradier = marketdata.NewTradier("TEST", "https://api.tradier.com")
		ctx = context.Background()
	})

	Context("with multiple quoted symbols", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", "https://api.tradier.com/v1/markets/quotes?symbols=AAPL%2CNVDA260320C00200000&greeks=true",
				httpmock.NewStringResponder(200, `{
					"quotes": {
						"quote": [
							{"symbol": "AAPL", "bid": 189.50, "ask": 189.70},
							{"symbol": "NVDA260320C00200000", "bid": 5.90, "ask": 6.10,
							 "greeks": {"delta": 0.55, "gamma": 0.012, "theta": -0.08, "vega": 0.21}}
						]
					}
				}`))
		})

		It("returns a quote per symbol", func() {
			quotes, err := tradier.Quotes(ctx, []string{"AAPL", "NVDA260320C00200000"})
			Expect(err).To(BeNil())
			Expect(quotes).To(HaveLen(2))
			Expect(quotes["AAPL"].Bid).To(BeNumerically("~", 189.50, 1e-9))
			Expect(quotes["AAPL"].Ask).To(BeNumerically("~", 189.70, 1e-9))
			Expect(quotes["AAPL"].Greeks).To(BeNil())
		})

		It("carries greeks through for options", func() {
			quotes, err := tradier.Quotes(ctx, []string{"AAPL", "NVDA260320C00200000"})
			Expect(err).To(BeNil())
			opt := quotes["NVDA260320C00200000"]
			Expect(opt.Greeks).NotTo(BeNil())
			Expect(opt.Greeks.Delta).To(BeNumerically("~", 0.55, 1e-9))
			Expect(opt.Greeks.Theta).To(BeNumerically("~", -0.08, 1e-9))
			Expect(opt.Greeks.Vega).To(BeNumerically("~", 0.21, 1e-9))
		})
	})

	Context("when a single symbol is requested", func() {
		BeforeEach(func() {
			// tradier returns a bare object, not a one-element array
			httpmock.RegisterResponder("GET", "https://api.tradier.com/v1/markets/quotes?symbols=AAPL&greeks=true",
				httpmock.NewStringResponder(200, `{
					"quotes": {
						"quote": {"symbol": "AAPL", "bid": 189.50, "ask": 189.70}
					}
				}`))
		})

		It("still returns the quote", func() {
			quotes, err := tradier.Quotes(ctx, []string{"AAPL"})
			Expect(err).To(BeNil())
			Expect(quotes).To(HaveLen(1))
			Expect(quotes["AAPL"].Bid).To(BeNumerically("~", 189.50, 1e-9))
		})
	})

	Context("when the upstream omits a symbol", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", "https://api.tradier.com/v1/markets/quotes?symbols=AAPL%2CBOGUS&greeks=true",
				httpmock.NewStringResponder(200, `{
					"quotes": {
						"quote": {"symbol": "AAPL", "bid": 189.50, "ask": 189.70}
					}
				}`))
		})

		It("returns the symbols it knows", func() {
			quotes, err := tradier.Quotes(ctx, []string{"AAPL", "BOGUS"})
			Expect(err).To(BeNil())
			Expect(quotes).To(HaveLen(1))
			Expect(quotes).To(HaveKey("AAPL"))
			Expect(quotes).NotTo(HaveKey("BOGUS"))
		})
	})

	Context("when the upstream fails", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", "https://api.tradier.com/v1/markets/quotes?symbols=AAPL&greeks=true",
				httpmock.NewStringResponder(500, `{"error": "internal"}`))
		})

		It("returns an error", func() {
			_, err := tradier.Quotes(ctx, []string{"AAPL"})
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(marketdata.ErrInvalidStatusCode))
		})
	})

	Context("with no symbols", func() {
		It("does not hit the network", func() {
			quotes, err := tradier.Quotes(ctx, nil)
			Expect(err).To(BeNil())
			Expect(quotes).To(BeEmpty())
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})
	})
})
