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

	"github.com/rs/zerolog/log"
)

// AssetClass is the display class a position aggregates under
type AssetClass string

const (
	ClassStock  AssetClass = "stock"
	ClassOption AssetClass = "option"
	ClassETF    AssetClass = "etf"
	ClassCrypto AssetClass = "crypto"
	ClassCash   AssetClass = "cash"
)

// etfSymbols is the allowlist of symbols that aggregate under the ETF
// class even when the broker reports them as plain stock
var etfSymbols = map[string]bool{
	"SPY": true, "VOO": true, "IVV": true, "QQQ": true, "VTI": true,
	"IWM": true, "DIA": true, "GLD": true, "TLT": true, "SGOV": true,
	"SCHD": true, "VXUS": true,
}

// SetETFSymbols replaces the ETF allowlist; used when the asset profile
// configures its own list
func SetETFSymbols(symbols []string) {
	m := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		m[s] = true
	}
	etfSymbols = m
}

// Classify maps a position onto exactly one asset class. Precedence:
// option > ETF (broker flag or allowlist) > crypto > stock.
func Classify(p *Position) AssetClass {
	switch {
	case p.SecType == SecTypeOption:
		return ClassOption
	case p.SecType == SecTypeETF || etfSymbols[p.Symbol]:
		return ClassETF
	case p.SecType == SecTypeCrypto:
		return ClassCrypto
	default:
		return ClassStock
	}
}

// ClassTotals aggregates cost basis, market value and unrealized P&L for
// one asset class
type ClassTotals struct {
	Cost          float64 `json:"cost"`
	MarketValue   float64 `json:"marketValue"`
	UnrealizedPnL float64 `json:"upnl"`
}

func (ct *ClassTotals) add(p *Position) {
	ct.Cost += p.CostBasis()
	ct.MarketValue += p.MarketValue
	ct.UnrealizedPnL += p.UnrealizedPnL
}

// AssetBreakdown holds per-class totals plus aggregate cash, with the
// invariants totalCost = cash + sum(class cost) and totalMarketValue =
// cash + sum(class market value)
type AssetBreakdown struct {
	Stock  ClassTotals `json:"stock"`
	Option ClassTotals `json:"option"`
	ETF    ClassTotals `json:"etf"`
	Crypto ClassTotals `json:"crypto"`

	Cash               float64 `json:"cash"`
	TotalCost          float64 `json:"totalCost"`
	TotalMarketValue   float64 `json:"totalMarketValue"`
	TotalUnrealizedPnL float64 `json:"totalUpnl"`
}

// Class returns the totals for the named class
func (b *AssetBreakdown) Class(class AssetClass) *ClassTotals {
	switch class {
	case ClassStock:
		return &b.Stock
	case ClassOption:
		return &b.Option
	case ClassETF:
		return &b.ETF
	case ClassCrypto:
		return &b.Crypto
	}
	return nil
}

// CashSource is one raw cash figure from a sub-account, in its native
// currency
type CashSource struct {
	Account  string
	Amount   float64
	Currency Currency
}

// Aggregate groups valued positions into asset-class totals and converts
// every cash source to the home currency before summing. The conservation
// check at the end guards against NaN leaking into totals; a violation is
// a programming error so it is logged and the best-effort result returned.
func Aggregate(positions []*Position, cash []CashSource, rates RateTable) *AssetBreakdown {
	breakdown := &AssetBreakdown{}

	for _, src := range cash {
		breakdown.Cash += ToHome(src.Amount, src.Currency, rates)
	}

	for _, p := range positions {
		breakdown.Class(Classify(p)).add(p)
	}

	classes := []*ClassTotals{&breakdown.Stock, &breakdown.Option, &breakdown.ETF, &breakdown.Crypto}
	breakdown.TotalCost = breakdown.Cash
	breakdown.TotalMarketValue = breakdown.Cash
	for _, ct := range classes {
		breakdown.TotalCost += ct.Cost
		breakdown.TotalMarketValue += ct.MarketValue
		breakdown.TotalUnrealizedPnL += ct.UnrealizedPnL
	}

	if math.IsNaN(breakdown.TotalMarketValue) || math.IsNaN(breakdown.TotalCost) {
		log.Error().Stack().Float64("Cash", breakdown.Cash).Msg("NaN propagated into asset totals")
	}

	return breakdown
}

// AssetAllocation is one display row of the allocation table
type AssetAllocation struct {
	Class         AssetClass `json:"class"`
	Cost          float64    `json:"cost"`
	MarketValue   float64    `json:"marketValue"`
	UnrealizedPnL float64    `json:"upnl"`
	CostPct       float64    `json:"costPct"`
	ValuePct      float64    `json:"valuePct"`
	PnLPct        float64    `json:"pnlPct"`
	Visible       bool       `json:"visible"`
}

// Allocation derives the per-class allocation rows from a breakdown.
// Visibility: cash shows only when positive, stock/option only when a cost
// basis exists, ETF/crypto always.
func Allocation(b *AssetBreakdown) []*AssetAllocation {
	rows := []*AssetAllocation{
		{Class: ClassCash, Cost: b.Cash, MarketValue: b.Cash, Visible: b.Cash > 0},
		{Class: ClassStock, Cost: b.Stock.Cost, MarketValue: b.Stock.MarketValue, UnrealizedPnL: b.Stock.UnrealizedPnL, Visible: b.Stock.Cost > 0},
		{Class: ClassOption, Cost: b.Option.Cost, MarketValue: b.Option.MarketValue, UnrealizedPnL: b.Option.UnrealizedPnL, Visible: b.Option.Cost > 0},
		{Class: ClassETF, Cost: b.ETF.Cost, MarketValue: b.ETF.MarketValue, UnrealizedPnL: b.ETF.UnrealizedPnL, Visible: true},
		{Class: ClassCrypto, Cost: b.Crypto.Cost, MarketValue: b.Crypto.MarketValue, UnrealizedPnL: b.Crypto.UnrealizedPnL, Visible: true},
	}

	for _, row := range rows {
		if b.TotalCost != 0 {
			row.CostPct = row.Cost / b.TotalCost * 100
		}
		if b.TotalMarketValue != 0 {
			row.ValuePct = row.MarketValue / b.TotalMarketValue * 100
		}
		if row.Cost != 0 {
			row.PnLPct = row.UnrealizedPnL / row.Cost * 100
		}
	}

	return rows
}

// CheckConservation verifies cash + sum(class market value) equals the
// total market value within relative tolerance. Returns false on violation.
func CheckConservation(b *AssetBreakdown) bool {
	sum := b.Cash + b.Stock.MarketValue + b.Option.MarketValue + b.ETF.MarketValue + b.Crypto.MarketValue
	return relEqual(sum, b.TotalMarketValue, 1e-6)
}

// relEqual compares floats to a relative tolerance (absolute near zero)
func relEqual(a, b, tol float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale < 1 {
		return diff <= tol
	}
	return diff/scale <= tol
}
