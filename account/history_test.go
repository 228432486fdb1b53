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

package account_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/ledgerglass/lg-api/account"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/valuation"
)

var _ = Describe("DbHistoryStore", func() {
	var (
		dbPool pgxmock.PgxConnIface
		store  *account.DbHistoryStore
		ctx    context.Context
		entry  *valuation.HistoryEntry
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)
		store = &account.DbHistoryStore{}
		ctx = context.Background()

		entry = &valuation.HistoryEntry{
			ID:             valuation.EntryID("2026-03-18 10:30"),
			Datetime:       "2026-03-18 10:30",
			Timestamp:      1773844200,
			NetLiquidation: 4100,
			Principal:      4000,
			FxRate:         1.34,
			StockValue:     1100,
			Cash:           3000,
		}
	})

	AfterEach(func() {
		dbPool.Close(context.Background())
	})

	Context("when appending entries", func() {
		It("reports true for a fresh minute", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectExec("INSERT INTO valuation_history").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			dbPool.ExpectCommit()

			inserted, err := store.AppendIfAbsent(ctx, entry)
			Expect(err).To(BeNil())
			Expect(inserted).To(BeTrue())
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})

		It("reports false when the minute already exists", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectExec("INSERT INTO valuation_history").
				WillReturnResult(pgxmock.NewResult("INSERT", 0))
			dbPool.ExpectCommit()

			inserted, err := store.AppendIfAbsent(ctx, entry)
			Expect(err).To(BeNil())
			Expect(inserted).To(BeFalse())
		})
	})

	Context("when listing entries", func() {
		historyRows := func() *pgxmock.Rows {
			return pgxmock.NewRows([]string{"id", "datetime", "timestamp", "net_liquidation", "principal",
				"fx_rate", "stock_value", "option_value", "etf_value", "crypto_value", "cash"}).
				AddRow(valuation.EntryID("2026-03-18 10:30"), "2026-03-18 10:30", int64(1773844200),
					4100.0, 4000.0, 1.34, 1100.0, 0.0, 0.0, 0.0, 3000.0).
				AddRow(valuation.EntryID("2026-03-18 10:31"), "2026-03-18 10:31", int64(1773844260),
					4150.0, 4000.0, 1.34, 1150.0, 0.0, 0.0, 0.0, 3000.0)
		}

		It("returns all entries ordered by timestamp", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT (.+) FROM valuation_history").
				WillReturnRows(historyRows())
			dbPool.ExpectCommit()

			entries, err := store.ListAll(ctx)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Datetime).To(Equal("2026-03-18 10:30"))
			Expect(entries[1].NetLiquidation).To(BeNumerically("==", 4150))
		})

		It("filters by the requested range", func() {
			since := time.Unix(1773844200, 0)
			until := time.Unix(1773844260, 0)

			dbPool.ExpectBegin()
			// pgsql.Build emits lowercase keywords
			dbPool.ExpectQuery("select (.+) from valuation_history").
				WithArgs(since.Unix(), until.Unix()).
				WillReturnRows(historyRows())
			dbPool.ExpectCommit()

			entries, err := store.ListRange(ctx, since, until)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(2))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})
})
