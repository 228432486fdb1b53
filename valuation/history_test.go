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

package valuation_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ledgerglass/lg-api/valuation"
)

// memHistoryStore is an in-memory HistoryStore with minute-key dedup
type memHistoryStore struct {
	entries map[string]*valuation.HistoryEntry
}

func newMemHistoryStore() *memHistoryStore {
	return &memHistoryStore{entries: make(map[string]*valuation.HistoryEntry)}
}

func (s *memHistoryStore) AppendIfAbsent(_ context.Context, entry *valuation.HistoryEntry) (bool, error) {
	if _, ok := s.entries[entry.Datetime]; ok {
		return false, nil
	}
	s.entries[entry.Datetime] = entry
	return true, nil
}

func (s *memHistoryStore) ListAll(_ context.Context) ([]*valuation.HistoryEntry, error) {
	out := make([]*valuation.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return valuation.SortDedup(out), nil
}

// fixedCalendar reports a constant market-session state
type fixedCalendar bool

func (c fixedCalendar) IsMarketOpen(_ time.Time) bool { return bool(c) }

var _ = Describe("History aggregator", func() {
	var (
		store    *memHistoryStore
		recorder *valuation.HistoryRecorder
		entry    *valuation.HistoryEntry
		now      time.Time
	)

	BeforeEach(func() {
		store = newMemHistoryStore()
		now = time.Date(2026, 3, 18, 10, 30, 5, 0, time.UTC)
		breakdown := &valuation.AssetBreakdown{
			Cash:             1000,
			Stock:            valuation.ClassTotals{MarketValue: 5000},
			TotalMarketValue: 6000,
		}
		entry = valuation.NewHistoryEntry(now, time.UTC, 5500, 1.3, breakdown)
	})

	Describe("when building an entry", func() {
		It("should bucket the timestamp at minute precision", func() {
			Expect(entry.Datetime).To(Equal("2026-03-18 10:30"))
			Expect(entry.Timestamp).To(Equal(time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC).Unix()))
		})

		It("should derive a stable id from the minute bucket", func() {
			other := valuation.NewHistoryEntry(now.Add(20*time.Second), time.UTC, 5500, 1.3, &valuation.AssetBreakdown{})
			Expect(entry.ID).To(Equal(other.ID))
			Expect(entry.ID).To(HaveLen(16))
		})
	})

	Describe("when recording during an open session", func() {
		BeforeEach(func() {
			recorder = valuation.NewHistoryRecorder(store, fixedCalendar(true), time.UTC)
		})

		It("should append a new minute", func() {
			inserted, err := recorder.RecordIfDue(context.Background(), now, entry)
			Expect(err).To(BeNil())
			Expect(inserted).To(BeTrue())
		})

		It("should be idempotent for the same minute", func() {
			_, err := recorder.RecordIfDue(context.Background(), now, entry)
			Expect(err).To(BeNil())

			dup := valuation.NewHistoryEntry(now.Add(30*time.Second), time.UTC, 5500, 1.3, &valuation.AssetBreakdown{})
			inserted, err := recorder.RecordIfDue(context.Background(), now.Add(30*time.Second), dup)
			Expect(err).To(BeNil())
			Expect(inserted).To(BeFalse())
		})
	})

	Describe("when the market session is closed", func() {
		It("should not append", func() {
			recorder = valuation.NewHistoryRecorder(store, fixedCalendar(false), time.UTC)
			inserted, err := recorder.RecordIfDue(context.Background(), now, entry)
			Expect(err).To(BeNil())
			Expect(inserted).To(BeFalse())
			Expect(store.entries).To(BeEmpty())
		})
	})

	Describe("when ordering a loaded series", func() {
		It("should sort ascending and collapse duplicate minutes", func() {
			entries := []*valuation.HistoryEntry{
				{Datetime: "2026-03-18 10:31", Timestamp: 200, NetLiquidation: 2},
				{Datetime: "2026-03-18 10:30", Timestamp: 100, NetLiquidation: 1},
				{Datetime: "2026-03-18 10:31", Timestamp: 200, NetLiquidation: 3},
			}
			sorted := valuation.SortDedup(entries)
			Expect(sorted).To(HaveLen(2))
			Expect(sorted[0].Datetime).To(Equal("2026-03-18 10:30"))
			Expect(sorted[1].NetLiquidation).Should(BeNumerically("~", 2, 1e-9))
		})
	})

	Describe("when summarizing the series", func() {
		It("should compute daily return statistics", func() {
			entries := []*valuation.HistoryEntry{
				{Datetime: "2026-03-16 16:00", Timestamp: 1, NetLiquidation: 100},
				{Datetime: "2026-03-17 16:00", Timestamp: 2, NetLiquidation: 110},
				{Datetime: "2026-03-18 16:00", Timestamp: 3, NetLiquidation: 99},
			}
			stats := valuation.ComputeHistoryStats(entries)
			Expect(stats.TotalReturn).Should(BeNumerically("~", -0.01, 1e-9))
			Expect(stats.MeanDailyReturn).Should(BeNumerically("~", (0.1+(99.0/110.0-1))/2, 1e-9))
		})

		It("should use the last reading of each day", func() {
			entries := []*valuation.HistoryEntry{
				{Datetime: "2026-03-16 10:00", Timestamp: 1, NetLiquidation: 50},
				{Datetime: "2026-03-16 16:00", Timestamp: 2, NetLiquidation: 100},
				{Datetime: "2026-03-17 16:00", Timestamp: 3, NetLiquidation: 120},
			}
			stats := valuation.ComputeHistoryStats(entries)
			Expect(stats.TotalReturn).Should(BeNumerically("~", 0.2, 1e-9))
		})

		It("should return zeroes for a short series", func() {
			stats := valuation.ComputeHistoryStats(nil)
			Expect(stats.TotalReturn).To(BeZero())
			Expect(stats.Volatility).To(BeZero())
		})
	})
})
