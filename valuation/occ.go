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

package valuation

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// OccKey encodes an option contract as an OCC-style symbol:
// underlying + yymmdd expiry + C/P + strike*1000 zero-padded to 8 digits.
// e.g. NVDA 2026-03-20 200 CALL -> NVDA260320C00200000
//
// A malformed expiry or strike yields ("", false) rather than an error; the
// position is then unmatchable against the quote table and prices at zero,
// which is the recovery behavior we want for partial broker data.
func OccKey(symbol string, expiry string, right string, strike float64) (string, bool) {
	dt, err := time.Parse("20060102", expiry)
	if err != nil {
		return "", false
	}

	if strike <= 0 || math.IsNaN(strike) || math.IsInf(strike, 0) {
		return "", false
	}

	cp := "P"
	if right == "C" {
		cp = "C"
	}

	strikeInt := int64(math.Round(strike * 1000))
	return fmt.Sprintf("%s%s%s%08d", symbol, dt.Format("060102"), cp, strikeInt), true
}

// OccStrike decodes the strike price encoded in the last 8 digits of an
// OCC key
func OccStrike(key string) (float64, bool) {
	if len(key) < 8 {
		return 0, false
	}

	strikeInt, err := strconv.ParseInt(key[len(key)-8:], 10, 64)
	if err != nil {
		return 0, false
	}

	return float64(strikeInt) / 1000, true
}
