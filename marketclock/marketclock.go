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

// Package marketclock knows when the exchange session is open: regular
// and extended hours, weekends, full holidays and early closes. The
// valuation history recorder and the scheduler both consult it.
package marketclock

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerglass/lg-api/common"
	"github.com/ledgerglass/lg-api/database"
	"github.com/rs/zerolog/log"
)

type MarketHours struct {
	Open  int
	Close int
}

var (
	RegularHours = MarketHours{
		Open:  930,
		Close: 1600,
	}
	ExtendedHours = MarketHours{
		Open:  700,
		Close: 2000,
	}
)

var (
	// holidays maps midnight (exchange-local, unix seconds) to the early
	// close time in HHMM, or 0 for a full holiday
	holidays      map[int64]int
	holidayLocker sync.RWMutex
)

type MarketStatus struct {
	marketHours *MarketHours
	tz          *time.Location
}

func NewMarketStatus(hours *MarketHours) *MarketStatus {
	nyc := common.GetMarketTimezone()
	return &MarketStatus{
		marketHours: hours,
		tz:          nyc,
	}
}

// EarlyClose returns close time of an early close market day, e.g. 1300
func (ms *MarketStatus) EarlyClose(t time.Time) int {
	holidayLocker.RLock()
	defer holidayLocker.RUnlock()

	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ms.tz)
	if close, ok := holidays[d.Unix()]; ok {
		return close
	}
	return 0
}

// IsMarketHoliday returns true if the specified date is a market holiday
func (ms *MarketStatus) IsMarketHoliday(t time.Time) bool {
	holidayLocker.RLock()
	defer holidayLocker.RUnlock()

	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ms.tz)
	close, ok := holidays[d.Unix()]
	if close != 0 {
		return false
	}
	return ok
}

// IsMarketOpen returns true if the specified time is during market hours
// (i.e. not a market holiday or weekend)
func (ms *MarketStatus) IsMarketOpen(t time.Time) bool {
	if !ms.IsMarketDay(t) {
		return false
	}

	// check time
	closeTime := ms.marketHours.Close
	earlyClose := ms.EarlyClose(t)
	if earlyClose != 0 {
		closeTime = earlyClose
	}

	timeOfDay := t.Hour()*100 + t.Minute()
	if timeOfDay < ms.marketHours.Open || timeOfDay > closeTime {
		return false
	}

	return true
}

// IsMarketDay returns true if the specified date is a valid trading day
// (i.e. not a market holiday or weekend)
func (ms *MarketStatus) IsMarketDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}

	return !ms.IsMarketHoliday(t)
}

// LoadMarketHolidays retrieves market holidays from the database
func LoadMarketHolidays() error {
	ctx := context.Background()

	nyc := common.GetMarketTimezone()

	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not get database transaction")
		return err
	}

	sql := "SELECT event_date, early_close, extract(hours from close_time)::int * 100 + extract(minutes from close_time)::int AS close_time FROM market_holidays ORDER BY event_date ASC"
	rows, err := trx.Query(ctx, sql)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not load market holidays")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	holidayLocker.Lock()
	defer holidayLocker.Unlock()

	holidays = make(map[int64]int)

	var dt time.Time
	var earlyClose bool
	var closeTime int
	for rows.Next() {
		if err := rows.Scan(&dt, &earlyClose, &closeTime); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan database values")
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return err
		}
		// make sure dt is in the right timezone and at midnight
		dt = time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, nyc)
		if earlyClose {
			holidays[dt.Unix()] = closeTime
		} else {
			holidays[dt.Unix()] = 0
		}
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	return nil
}
