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
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/ledgerglass/lg-api/marketdata"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IndexClient", func() {
	var (
		indexes *marketdata.IndexClient
		ctx     context.Context
	)

	BeforeEach(func() {
		indexes = marketdata.NewIndexClient("https://production.dataviz.cnn.io", nil, time.UTC)
		ctx = context.Background()

		// the request path carries the current trade date
		httpmock.RegisterResponder("GET", `=~^https://production\.dataviz\.cnn\.io/markets/index/DJII-USA,SP500-CME,COMP-USA/\d{4}-\d{2}-\d{2}$`,
			httpmock.NewStringResponder(200, `[
				{"name": "DJII", "current_price": 39110.76, "prev_close_price": 38996.39,
				 "price_change_from_prev_close": 114.37, "percent_change_from_prev_close": 0.29},
				{"name": "S&P 500", "current_price": 5088.80, "prev_close_price": 5087.03,
				 "price_change_from_prev_close": 1.77, "percent_change_from_prev_close": 0.03},
				{"name": "COMP", "current_price": 15996.82, "prev_close_price": 16041.62,
				 "price_change_from_prev_close": -44.80, "percent_change_from_prev_close": -0.28}
			]`))
	})

	It("returns one row per configured index", func() {
		rows, err := indexes.Indexes(ctx)
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(3))

		Expect(rows[0].Name).To(Equal("DJII"))
		Expect(rows[0].Current).To(BeNumerically("~", 39110.76, 1e-9))
		Expect(rows[0].Change).To(BeNumerically("~", 114.37, 1e-9))

		Expect(rows[2].PercentChange).To(BeNumerically("~", -0.28, 1e-9))
	})

	Describe("fear-and-greed sentiment", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", `=~^https://production\.dataviz\.cnn\.io/index/fearandgreed/graphdata/\d{4}-\d{2}-\d{2}$`,
				httpmock.NewStringResponder(200, `{
					"fear_and_greed": {
						"score": 72.4, "rating": "greed",
						"previous_close": 70.1, "previous_1_week": 65.0,
						"previous_1_month": 55.3, "previous_1_year": 40.2
					}
				}`))
		})

		It("returns the summary reading with its prior closes", func() {
			sentiment, err := indexes.FearGreed(ctx)
			Expect(err).To(BeNil())
			Expect(sentiment.Score).To(BeNumerically("~", 72.4, 1e-9))
			Expect(sentiment.Rating).To(Equal("greed"))
			Expect(sentiment.PrevClose).To(BeNumerically("~", 70.1, 1e-9))
			Expect(sentiment.YearAgo).To(BeNumerically("~", 40.2, 1e-9))
		})
	})
})
