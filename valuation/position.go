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
	"math"
	"time"
)

// Security kinds as reported by the broker snapshot
const (
	SecTypeStock  = "STK"
	SecTypeOption = "OPT"
	SecTypeETF    = "ETF"
	SecTypeCrypto = "CRYPTO"
)

// RawPosition is one position exactly as the broker snapshot reports it.
// Right, Strike and Expiry are only populated for options; Expiry is an
// 8-digit date (YYYYMMDD).
type RawPosition struct {
	Symbol   string  `json:"symbol"`
	SecType  string  `json:"secType"`
	Quantity float64 `json:"position"`
	AvgCost  float64 `json:"avgCost"`
	Right    string  `json:"right,omitempty"`
	Strike   float64 `json:"strike,omitempty"`
	Expiry   string  `json:"expiry,omitempty"`
}

// Greeks as reported by the quote source (per-share values)
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Quote is a single market quote; Greeks is nil for non-option symbols
type Quote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Greeks *Greeks `json:"greeks,omitempty"`
}

// Position is a fully priced position. It is a value object recomputed on
// every valuation cycle and never mutated after construction.
type Position struct {
	Symbol          string  `json:"symbol"`
	SecType         string  `json:"secType"`
	Quantity        float64 `json:"qty"`
	AvgCost         float64 `json:"cost"`
	Price           float64 `json:"price"`
	UnderlyingPrice float64 `json:"underlyingPrice,omitempty"`
	MarketValue     float64 `json:"marketValue"`
	UnrealizedPnL   float64 `json:"upnl"`
	PercentChange   float64 `json:"percentChange"`
	Delta           float64 `json:"delta"`
	Gamma           float64 `json:"gamma"`
	Theta           float64 `json:"theta"`
	DaysToExpiry    int     `json:"dte,omitempty"`
	Right           string  `json:"right,omitempty"`
	Strike          float64 `json:"strike,omitempty"`
	Expiry          string  `json:"expiry,omitempty"`
}

// IsOption returns true when the position is an option contract
func (raw *RawPosition) IsOption() bool {
	return raw.SecType == SecTypeOption
}

// QuoteKey returns the key under which the position's quote is stored:
// the plain symbol for equities/ETFs/crypto, the OCC key for options. The
// second return is false when an option position cannot be encoded.
func (raw *RawPosition) QuoteKey() (string, bool) {
	if !raw.IsOption() {
		return raw.Symbol, true
	}
	return OccKey(raw.Symbol, raw.Expiry, raw.Right, raw.Strike)
}

// CostBasis returns the total amount paid for the position. Broker average
// cost is already contract-notional for options so no extra scaling applies.
func (p *Position) CostBasis() float64 {
	return p.AvgCost * p.Quantity
}

func (p *Position) IsOption() bool {
	return p.SecType == SecTypeOption
}

// midPrice averages bid and ask; a missing or NaN side prices the quote
// at zero rather than guessing from the surviving side
func midPrice(q *Quote) float64 {
	if q == nil {
		return 0
	}
	if q.Bid <= 0 || q.Ask <= 0 || math.IsNaN(q.Bid) || math.IsNaN(q.Ask) {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

// convertGreek scales a per-share greek to the position: x100 per contract,
// x quantity, rounded to 2 decimal places. NaN input is treated as zero.
func convertGreek(value float64, qty float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Round(value*100*qty*100) / 100
}

// daysToExpiry counts calendar days from today (midnight, local to tz) to
// the option expiry. Same-day expiry is 0, not negative.
func daysToExpiry(expiry string, now time.Time, tz *time.Location) (int, bool) {
	if len(expiry) != 8 {
		return 0, false
	}
	dt, err := time.ParseInLocation("20060102", expiry, tz)
	if err != nil {
		return 0, false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
	days := int(math.Ceil(dt.Sub(today).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return days, true
}

// PricePosition turns one raw position plus the keyed quote table into a
// fully priced Position. A missing quote is a partial-data condition: the
// position prices at 0 and greeks are skipped, but no error is raised.
func PricePosition(raw *RawPosition, keyedQuotes map[string]*Quote, now time.Time, tz *time.Location) *Position {
	pos := &Position{
		Symbol:   raw.Symbol,
		SecType:  raw.SecType,
		Quantity: raw.Quantity,
		AvgCost:  raw.AvgCost,
		Right:    raw.Right,
		Strike:   raw.Strike,
		Expiry:   raw.Expiry,
	}

	var quote *Quote
	if key, ok := raw.QuoteKey(); ok {
		quote = keyedQuotes[key]
	}

	price := midPrice(quote)
	if raw.IsOption() {
		// option quotes are per-share; scale to contract notional
		price *= 100

		if underlying, ok := keyedQuotes[raw.Symbol]; ok {
			pos.UnderlyingPrice = midPrice(underlying)
		}

		if quote != nil && quote.Greeks != nil {
			pos.Delta = convertGreek(quote.Greeks.Delta, raw.Quantity)
			pos.Gamma = convertGreek(quote.Greeks.Gamma, raw.Quantity)
			pos.Theta = convertGreek(quote.Greeks.Theta, raw.Quantity)
		}

		if dte, ok := daysToExpiry(raw.Expiry, now, tz); ok {
			pos.DaysToExpiry = dte
		}
	} else {
		pos.Delta = raw.Quantity
	}

	pos.Price = price
	pos.MarketValue = price * raw.Quantity
	pos.UnrealizedPnL = (price - raw.AvgCost) * raw.Quantity
	if raw.AvgCost != 0 {
		pos.PercentChange = (price - raw.AvgCost) / raw.AvgCost * 100
	}

	return pos
}

// PricePositions values every raw position against the quote table
func PricePositions(raw []*RawPosition, keyedQuotes map[string]*Quote, now time.Time, tz *time.Location) []*Position {
	positions := make([]*Position, 0, len(raw))
	for _, rp := range raw {
		positions = append(positions, PricePosition(rp, keyedQuotes, now, tz))
	}
	return positions
}

// QuoteSymbols derives the full symbol request list for a snapshot: the
// quote key of every position plus the plain underlying symbol for each
// option (used to resolve the underlying price). Duplicates are removed.
func QuoteSymbols(raw []*RawPosition) []string {
	seen := make(map[string]bool, len(raw)*2)
	symbols := make([]string, 0, len(raw)*2)

	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	for _, rp := range raw {
		if key, ok := rp.QuoteKey(); ok {
			add(key)
		}
		if rp.IsOption() {
			add(rp.Symbol)
		}
	}

	return symbols
}
