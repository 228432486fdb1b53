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

import "fmt"

// Currency identifies one of the supported quote currencies. USD is the
// home valuation currency; every rate is expressed as units of the target
// currency per 1 USD.
type Currency string

const (
	USD Currency = "USD"
	SGD Currency = "SGD"
	EUR Currency = "EUR"
	JPY Currency = "JPY"
	GBP Currency = "GBP"
	CNH Currency = "CNH"
)

// Currencies is the fixed set of supported currencies
var Currencies = []Currency{USD, SGD, EUR, JPY, GBP, CNH}

// RateTable maps a currency to its exchange rate against USD. The home
// currency always has rate 1; rate validation (positive, non-zero) is the
// provider's responsibility.
type RateTable map[Currency]float64

// Rate returns the exchange rate for a currency; 1 for the home currency
func (rates RateTable) Rate(c Currency) float64 {
	if c == USD {
		return 1
	}
	return rates[c]
}

// Validate checks that every currency in the set has a positive rate.
// A cash balance must never value at zero because its rate is missing.
func (rates RateTable) Validate(needed []Currency) error {
	for _, c := range needed {
		if rate := rates.Rate(c); rate <= 0 {
			return fmt.Errorf("%w: %s", ErrRateUnavailable, c)
		}
	}
	return nil
}

// Convert expresses a home-currency amount in the target currency
func Convert(amountUSD float64, target Currency, rates RateTable) float64 {
	return amountUSD * rates.Rate(target)
}

// ToHome expresses an amount of a foreign currency in the home currency
func ToHome(amount float64, from Currency, rates RateTable) float64 {
	rate := rates.Rate(from)
	if rate == 0 {
		return 0
	}
	return amount / rate
}

var currencySymbols = map[Currency]string{
	USD: "$",
	SGD: "S$",
	EUR: "€",
	JPY: "¥",
	GBP: "£",
	CNH: "¥",
}

// FormatAmount renders an amount with its currency symbol, e.g. "S$1,234.56"
func FormatAmount(amount float64, c Currency) string {
	symbol, ok := currencySymbols[c]
	if !ok {
		symbol = string(c) + " "
	}
	return fmt.Sprintf("%s%s", symbol, humanize(amount))
}

// humanize formats a float with thousands separators and 2 decimal places
func humanize(v float64) string {
	s := fmt.Sprintf("%.2f", v)

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	intPart := s[:len(s)-3]
	frac := s[len(s)-3:]

	var out []byte
	for i, ch := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}

	if neg {
		return "-" + string(out) + frac
	}
	return string(out) + frac
}
