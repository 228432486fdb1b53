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

package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/ledgerglass/lg-api/valuation"
)

var (
	valuatorMu sync.RWMutex
	valuator   *valuation.Valuator
	lastResult *valuation.PortfolioData
)

// maxResultAge bounds how stale a cached valuation may be before a
// request triggers a fresh cycle
const maxResultAge = 5 * time.Minute

// SetValuator installs the valuation pipeline used by the portfolio
// handlers. Called once at startup.
func SetValuator(v *valuation.Valuator) {
	valuatorMu.Lock()
	defer valuatorMu.Unlock()
	valuator = v
	lastResult = nil
}

// RefreshPortfolio runs a valuation cycle and caches the result for the
// read handlers. The periodic job and stale reads both come through here.
// The cycle runs outside the lock so cached reads never wait on the
// upstream round-trips; the lock only guards the swap.
func RefreshPortfolio(ctx context.Context) (*valuation.PortfolioData, error) {
	valuatorMu.RLock()
	v := valuator
	valuatorMu.RUnlock()

	if v == nil {
		return nil, fiber.ErrServiceUnavailable
	}

	data, err := v.Run(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("valuation cycle failed")
		return nil, err
	}

	StorePortfolio(data)
	return data, nil
}

// cachedPortfolio returns the last valuation if it is fresh enough,
// otherwise nil
func cachedPortfolio() *valuation.PortfolioData {
	valuatorMu.RLock()
	defer valuatorMu.RUnlock()
	if lastResult == nil || time.Since(lastResult.Timestamp) > maxResultAge {
		return nil
	}
	return lastResult
}

// StorePortfolio caches an externally computed valuation result (the
// scheduled job reports its results here)
func StorePortfolio(data *valuation.PortfolioData) {
	valuatorMu.Lock()
	defer valuatorMu.Unlock()
	lastResult = data
}

func portfolioData(c *fiber.Ctx) (*valuation.PortfolioData, error) {
	if data := cachedPortfolio(); data != nil {
		return data, nil
	}
	return RefreshPortfolio(c.UserContext())
}

// GetPortfolio returns the full valuation result
func GetPortfolio(c *fiber.Ctx) error {
	_, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.GetPortfolio")
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)
	defer span.End()

	data, err := portfolioData(c)
	if err != nil {
		if ferr, ok := err.(*fiber.Error); ok {
			return ferr
		}
		return fiber.ErrBadGateway
	}
	return c.JSON(data)
}

// GetFlow returns the funding flow graph
func GetFlow(c *fiber.Ctx) error {
	data, err := portfolioData(c)
	if err != nil {
		if ferr, ok := err.(*fiber.Error); ok {
			return ferr
		}
		return fiber.ErrBadGateway
	}
	return c.JSON(data.Flow)
}

// GetAllocation returns the per-class allocation with the donut chart
// segments
func GetAllocation(c *fiber.Ctx) error {
	data, err := portfolioData(c)
	if err != nil {
		if ferr, ok := err.(*fiber.Error); ok {
			return ferr
		}
		return fiber.ErrBadGateway
	}
	return c.JSON(fiber.Map{
		"allocation":    data.Allocation,
		"chartSegments": data.ChartSegments,
	})
}

// GetPositions returns the priced positions in display order
func GetPositions(c *fiber.Ctx) error {
	data, err := portfolioData(c)
	if err != nil {
		if ferr, ok := err.(*fiber.Error); ok {
			return ferr
		}
		return fiber.ErrBadGateway
	}
	return c.JSON(data.Positions)
}
