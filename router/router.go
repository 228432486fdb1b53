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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lestrrat-go/jwx/jwk"

	"github.com/ledgerglass/lg-api/handler"
	"github.com/ledgerglass/lg-api/middleware"
)

// SetupRoutes registers the API routes
func SetupRoutes(app *fiber.App, jwksAutoRefresh *jwk.AutoRefresh, jwksURL string) {
	auth := middleware.LGAuth(jwksAutoRefresh, jwksURL)

	api := app.Group("/v1")
	api.Get("/", handler.Ping)
	api.Get("/apikey", auth, handler.GetApiKey)

	// Portfolio
	portfolio := api.Group("/portfolio", auth)
	portfolio.Get("/", handler.GetPortfolio)
	portfolio.Get("/positions", handler.GetPositions)
	portfolio.Get("/allocation", handler.GetAllocation)
	portfolio.Get("/flow", handler.GetFlow)
	portfolio.Get("/history", handler.GetHistory)

	// Market data
	markets := api.Group("/markets", auth)
	markets.Get("/indexes", handler.GetIndexes)
	markets.Get("/crypto", handler.GetCrypto)
	markets.Get("/sentiment", handler.GetSentiment)
}
