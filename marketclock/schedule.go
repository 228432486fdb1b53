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

package marketclock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	AtOpen  = "@open"
	AtClose = "@close"
)

var (
	ErrConflictingModifiers = errors.New("conflicting schedule modifiers")
	ErrUnknownModifier      = errors.New("unknown schedule modifier")
	ErrMalformedTimeSpec    = errors.New("malformed time spec")
	ErrFieldOutOfBounds     = errors.New("time spec field out of bounds")
)

// Schedule is a market-aware cron schedule. It supports the standard CRON
// format of: Minutes(Min) Hours(H) DayOfMonth(DoM) Month(M) DayOfWeek(DoW)
//
// '*' wildcards only execute during market open hours
//
// Additional market-aware modifiers are supported:
//
//	@open  - Run at market open; replaces Minute and Hour field
//	         e.g., @open * * *
//	@close - Run at market close; replaces Minute and Hour field
//
// Examples:
//   - every minute during market hours: * * * * *
//   - market open on tuesdays: @open * * 2
//   - 15 minutes after market close: @close 15
type Schedule struct {
	Schedule       cron.Schedule
	ScheduleString string
	TimeSpec       string
	TimeFlag       string
	marketStatus   *MarketStatus
}

func New(cronSpec string, hours MarketHours) (*Schedule, error) {
	specParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	scheduleStr := strings.TrimSpace(cronSpec)
	scheduleStr = expandBriefFormat(scheduleStr)

	// separate special tokens from timespec
	tokens := strings.Split(scheduleStr, " ")

	timeSpecTokens := make([]string, 0, 5)
	specialTokens := make([]string, 0, 1)
	for _, token := range tokens {
		if token[0] == '@' {
			specialTokens = append(specialTokens, token)
		} else {
			timeSpecTokens = append(timeSpecTokens, token)
		}
	}

	var timeSpec string
	var timeFlag string
	var err error
	for _, token := range specialTokens {
		switch token {
		case AtOpen:
			if timeFlag != "" {
				return nil, ErrConflictingModifiers
			}
			if timeSpec, err = parseTimeRelativeTo(timeSpecTokens, hours.Open/100, hours.Open%100); err != nil {
				return nil, err
			}
			timeFlag = AtOpen
		case AtClose:
			if timeFlag != "" {
				return nil, ErrConflictingModifiers
			}
			if timeSpec, err = parseTimeRelativeTo(timeSpecTokens, hours.Close/100, hours.Close%100); err != nil {
				return nil, err
			}
			timeFlag = AtClose
		default:
			return nil, ErrUnknownModifier
		}
	}

	if timeSpec == "" {
		timeSpec = strings.Join(timeSpecTokens, " ")
	}

	schedule, err := specParser.Parse(timeSpec)
	if err != nil {
		log.Error().Err(err).Str("TimeSpec", timeSpec).Str("CronSpec", cronSpec).Msg("could not parse timespec")
		return nil, err
	}

	return &Schedule{
		Schedule:       schedule,
		ScheduleString: cronSpec,
		TimeSpec:       timeSpec,
		TimeFlag:       timeFlag,
		marketStatus:   NewMarketStatus(&hours),
	}, nil
}

// Next returns the next instant matching both the cron schedule and an
// open market session
func (s *Schedule) Next(forDate time.Time) time.Time {
	checkDate := forDate

	marketOpen := false
	maxIters := 5000
	actualIters := 0
	for !marketOpen {
		checkDate = s.Schedule.Next(checkDate)
		marketOpen = s.marketStatus.IsMarketOpen(checkDate)
		if actualIters > maxIters {
			log.Panic().Str("TimeSpec", s.TimeSpec).Msg("schedule never coincides with an open market session")
		}
		actualIters++
	}

	return checkDate
}

// IsTradeDay evaluates the given date against the schedule and returns
// true if the date falls on a trading day according to the schedule. The
// time portion of the schedule is ignored.
func (s *Schedule) IsTradeDay(forDate time.Time) bool {
	t1 := time.Date(forDate.Year(), forDate.Month(), forDate.Day(), 0, 0, 0, 0, s.marketStatus.tz)
	t0 := t1.AddDate(0, 0, -1)
	t0 = time.Date(t0.Year(), t0.Month(), t0.Day(), 23, 59, 59, 999_999_999, s.marketStatus.tz)
	next := s.Next(t0)
	nextDate := time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, s.marketStatus.tz)
	return nextDate.Equal(t1)
}

// expandBriefFormat expands a timespec that has fields omitted for brevity
func expandBriefFormat(spec string) string {
	tokens := strings.Split(spec, " ")

	// count the number of special tokens
	special := 0
	for _, token := range tokens {
		if token[0] == '@' {
			special++
		}
	}

	expectedLength := 5 + special
	for len(tokens) < expectedLength {
		tokens = append(tokens, "*")
	}

	return strings.Join(tokens, " ")
}

// parseTimeRelativeTo parses a set of tokens relative to the specified time
func parseTimeRelativeTo(tokens []string, hours int, minutes int) (string, error) {
	// parse minutes
	var mins int
	var err error
	if tokens[0] == "*" {
		mins = 0
	} else {
		if mins, err = strconv.Atoi(tokens[0]); err != nil {
			log.Error().Str("MinutesToken", tokens[0]).Msg("could not parse minutes token")
			return "", ErrMalformedTimeSpec
		}
	}

	// parse hours
	var hrs int
	if tokens[1] == "*" {
		hrs = 0
	} else {
		if hrs, err = strconv.Atoi(tokens[1]); err != nil {
			log.Error().Str("HoursToken", tokens[1]).Msg("could not parse hours token")
			return "", ErrMalformedTimeSpec
		}
	}

	// apply mins and hours
	mins += minutes

	// if mins is actually hours, roll over to hours
	if mins > 59 || mins < -59 {
		hrs += (mins / 60)
		mins = mins % 60
	}

	hrs += hours

	if mins < 0 {
		mins = 60 + mins
		hrs--
	}

	if hrs < 0 || hrs > 23 {
		return "", ErrFieldOutOfBounds
	}

	result := fmt.Sprintf("%d %d %s %s %s", mins, hrs, tokens[2], tokens[3], tokens[4])
	return result, nil
}
