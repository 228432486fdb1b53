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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ledgerglass/lg-api/account"
	"github.com/ledgerglass/lg-api/valuation"
)

var historyStore *account.DbHistoryStore

// SetHistoryStore installs the history store used by GetHistory. Called
// once at startup.
func SetHistoryStore(store *account.DbHistoryStore) {
	historyStore = store
}

// GetHistory returns the valuation history series, ordered and
// minute-deduplicated. Accepts optional startDate / endDate query
// parameters (YYYY-MM-DD).
func GetHistory(c *fiber.Ctx) error {
	if historyStore == nil {
		return fiber.ErrServiceUnavailable
	}

	startDateStr := c.Query("startDate", "")
	endDateStr := c.Query("endDate", "now")

	var entries []*valuation.HistoryEntry
	var err error

	if startDateStr == "" {
		entries, err = historyStore.ListAll(c.UserContext())
	} else {
		startDate, parseErr := time.Parse("2006-01-02", startDateStr)
		if parseErr != nil {
			log.Warn().Err(parseErr).Str("StartDateStr", startDateStr).Msg("cannot parse start date query parameter")
			return fiber.ErrNotAcceptable
		}

		var endDate time.Time
		if endDateStr == "now" {
			endDate = time.Now()
		} else {
			endDate, parseErr = time.Parse("2006-01-02", endDateStr)
			if parseErr != nil {
				log.Warn().Err(parseErr).Str("EndDateStr", endDateStr).Msg("cannot parse end date query parameter")
				return fiber.ErrNotAcceptable
			}
			// make the range inclusive of the end date
			endDate = endDate.AddDate(0, 0, 1)
		}

		entries, err = historyStore.ListRange(c.UserContext(), startDate, endDate)
	}

	if err != nil {
		log.Error().Stack().Err(err).Msg("could not load valuation history")
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"series": valuation.SortDedup(entries),
		"stats":  valuation.ComputeHistoryStats(entries),
	})
}
