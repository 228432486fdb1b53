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

package handler_test

import (
	"context"
	"io"
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ledgerglass/lg-api/handler"
	"github.com/ledgerglass/lg-api/valuation"
)

// blockingSnapshots parks Load until released, standing in for a slow
// upstream during a refresh
type blockingSnapshots struct {
	release chan struct{}
}

func (s *blockingSnapshots) Load(_ context.Context) (*valuation.AccountSnapshot, error) {
	<-s.release
	return nil, valuation.ErrNoSnapshot
}

var _ = Describe("Portfolio read cache", func() {
	It("serves the cached valuation while a refresh is in flight", func() {
		release := make(chan struct{})
		handler.SetValuator(&valuation.Valuator{
			Snapshots: &blockingSnapshots{release: release},
			TZ:        time.UTC,
		})
		handler.StorePortfolio(&valuation.PortfolioData{
			Timestamp:      time.Now(),
			NetLiquidation: 4100,
		})

		refreshDone := make(chan struct{})
		go func() {
			defer close(refreshDone)
			_, _ = handler.RefreshPortfolio(context.Background())
		}()

		app := fiber.New()
		app.Get("/portfolio", handler.GetPortfolio)

		resp, err := app.Test(httptest.NewRequest("GET", "/portfolio", nil), 2000)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		Expect(string(body)).To(ContainSubstring(`"netLiquidation":4100`))

		close(release)
		Eventually(refreshDone).Should(BeClosed())
	})

	It("reports service unavailable when no valuator is installed", func() {
		handler.SetValuator(nil)

		app := fiber.New()
		app.Get("/portfolio", handler.GetPortfolio)

		resp, err := app.Test(httptest.NewRequest("GET", "/portfolio", nil))
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
	})
})
