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

package cmd

import (
	"strings"
	"time"

	"github.com/ledgerglass/lg-api/account"
	"github.com/ledgerglass/lg-api/marketclock"
	"github.com/ledgerglass/lg-api/marketdata"
	"github.com/ledgerglass/lg-api/valuation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// snapshotStore selects the snapshot source: a file when
// account.snapshot_file is configured, the database row otherwise. An
// asset profile, when configured, decorates every loaded snapshot.
func snapshotStore() valuation.SnapshotStore {
	var store valuation.SnapshotStore = &account.DbSnapshotStore{}
	if path := viper.GetString("account.snapshot_file"); path != "" {
		store = &account.FileSnapshotStore{Path: path}
	}

	if fn := viper.GetString("account.profile"); fn != "" {
		profile, err := account.LoadAssetProfile(fn)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", fn).Msg("could not load asset profile")
		}
		profile.Apply(nil) // install the ETF allowlist
		store = &account.ProfiledSnapshotStore{Store: store, Profile: profile}
	}

	return store
}

// fxCurrencies reads the set of rates to fetch; a sub-account in a
// currency outside this set aborts the valuation cycle
func fxCurrencies() []valuation.Currency {
	configured := viper.GetStringSlice("fx.currencies")
	currencies := make([]valuation.Currency, 0, len(configured))
	for _, c := range configured {
		currencies = append(currencies, valuation.Currency(strings.ToUpper(c)))
	}
	return currencies
}

// buildValuator assembles the valuation pipeline from the configured
// market data sources and the database-backed stores
func buildValuator(tz *time.Location) *valuation.Valuator {
	recorder := valuation.NewHistoryRecorder(
		&account.DbHistoryStore{},
		marketclock.NewMarketStatus(&marketclock.RegularHours),
		tz,
	)

	return &valuation.Valuator{
		Snapshots:           snapshotStore(),
		Quotes:              marketdata.NewTradier(viper.GetString("tradier.token"), viper.GetString("tradier.url")),
		FX:                  marketdata.NewFxClient(viper.GetString("fx.url"), &account.CachedRates{}, fxCurrencies()),
		Peaks:               &account.DbPeakStore{},
		Recorder:            recorder,
		TZ:                  tz,
		ConfiguredPrincipal: viper.GetFloat64("portfolio.principal"),
	}
}
