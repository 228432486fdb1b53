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
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// MinuteLayout is the exchange-local minute-precision timestamp format
// used as the history de-dup key
const MinuteLayout = "2006-01-02 15:04"

// HistoryEntry is one immutable valuation snapshot. Entries are
// append-only and deduplicated by minute; there is no update or delete
// path.
type HistoryEntry struct {
	ID             []byte  `json:"-"`
	Datetime       string  `json:"datetime"`
	Timestamp      int64   `json:"timestamp"`
	NetLiquidation float64 `json:"netLiquidation"`
	Principal      float64 `json:"principal"`
	FxRate         float64 `json:"fxRate"`
	StockValue     float64 `json:"stockValue"`
	OptionValue    float64 `json:"optionValue"`
	ETFValue       float64 `json:"etfValue"`
	CryptoValue    float64 `json:"cryptoValue"`
	Cash           float64 `json:"cash"`
}

// EntryID calculates a deterministic 16-byte blake3 hash over the minute
// bucket so concurrent writers of the same minute collide in the store
func EntryID(datetime string) []byte {
	h := blake3.New()
	h.Write([]byte(datetime))
	digest := h.Sum(nil)
	return digest[:16]
}

// HistoryStore persists history entries. AppendIfAbsent must be an
// idempotent upsert keyed on the minute bucket so duplicate concurrent
// writers are harmless.
type HistoryStore interface {
	AppendIfAbsent(ctx context.Context, entry *HistoryEntry) (bool, error)
	ListAll(ctx context.Context) ([]*HistoryEntry, error)
}

// MarketCalendar reports whether the exchange session is open
type MarketCalendar interface {
	IsMarketOpen(t time.Time) bool
}

// HistoryRecorder appends minute-bucketed valuation snapshots while the
// market session is open
type HistoryRecorder struct {
	store    HistoryStore
	calendar MarketCalendar
	tz       *time.Location
}

func NewHistoryRecorder(store HistoryStore, calendar MarketCalendar, tz *time.Location) *HistoryRecorder {
	return &HistoryRecorder{store: store, calendar: calendar, tz: tz}
}

// NewHistoryEntry builds the entry for one valuation result at the given
// instant (exchange-local, minute precision)
func NewHistoryEntry(now time.Time, tz *time.Location, principal float64, fxRate float64, breakdown *AssetBreakdown) *HistoryEntry {
	local := now.In(tz).Truncate(time.Minute)
	datetime := local.Format(MinuteLayout)
	return &HistoryEntry{
		ID:             EntryID(datetime),
		Datetime:       datetime,
		Timestamp:      local.Unix(),
		NetLiquidation: breakdown.TotalMarketValue,
		Principal:      principal,
		FxRate:         fxRate,
		StockValue:     breakdown.Stock.MarketValue,
		OptionValue:    breakdown.Option.MarketValue,
		ETFValue:       breakdown.ETF.MarketValue,
		CryptoValue:    breakdown.Crypto.MarketValue,
		Cash:           breakdown.Cash,
	}
}

// RecordIfDue appends the entry when the market session is currently open
// and no entry exists for the minute yet. Returns true when a new entry
// was written.
func (rec *HistoryRecorder) RecordIfDue(ctx context.Context, now time.Time, entry *HistoryEntry) (bool, error) {
	if !rec.calendar.IsMarketOpen(now.In(rec.tz)) {
		return false, nil
	}

	inserted, err := rec.store.AppendIfAbsent(ctx, entry)
	if err != nil {
		log.Error().Stack().Err(err).Str("Datetime", entry.Datetime).Msg("could not append history entry")
		return false, err
	}
	return inserted, nil
}

// SortDedup returns the entries ordered by timestamp ascending with
// duplicate minutes collapsed (first entry for a minute wins). Loaded
// series pass through here before trend charts consume them.
func SortDedup(entries []*HistoryEntry) []*HistoryEntry {
	sorted := make([]*HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	out := sorted[:0]
	seen := make(map[string]bool, len(sorted))
	for _, e := range sorted {
		if seen[e.Datetime] {
			continue
		}
		seen[e.Datetime] = true
		out = append(out, e)
	}
	return out
}
