// Copyright 2023-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/ledgerglass/lg-api/common"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool
var Trace bool

func bindEnv(key string, envVar string) {
	if err := viper.BindEnv(key, envVar); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind env var")
	}
}

func bindPFlag(key string, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

func init() {
	// secret key used for apikey encryption
	bindEnv("secret_key", "LG_SECRET")
	rootCmd.PersistentFlags().String("secret-key", "", "Secret encryption key")
	bindPFlag("secret_key", "secret-key")

	// AUTH0
	bindEnv("auth0.domain", "AUTH0_DOMAIN")
	rootCmd.PersistentFlags().String("auth0-domain", "", "Auth0 domain")
	bindPFlag("auth0.domain", "auth0-domain")

	// Database
	bindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	bindPFlag("database.url", "database-url")

	// Broker quote API
	bindEnv("tradier.token", "TRADIER_TOKEN")
	rootCmd.PersistentFlags().String("tradier-token", "", "Tradier API token")
	bindPFlag("tradier.token", "tradier-token")

	// FX
	bindEnv("fx.currencies", "LG_FX_CURRENCIES")
	rootCmd.PersistentFlags().StringSlice("fx-currencies", []string{"SGD"}, "Currencies to fetch FX rates for")
	bindPFlag("fx.currencies", "fx-currencies")

	// NATS
	bindEnv("nats.server", "NATS_URL")
	rootCmd.PersistentFlags().String("nats-server", "", "NATS server to publish valuation events to, if blank don't publish")
	bindPFlag("nats.server", "nats-server")

	bindEnv("nats.credentials", "NATS_CREDENTIALS")
	rootCmd.PersistentFlags().String("nats-credentials", "", "NATS credentials file")
	bindPFlag("nats.credentials", "nats-credentials")

	bindEnv("nats.valuation_subject", "NATS_VALUATION_SUBJECT")
	rootCmd.PersistentFlags().String("nats-valuation-subject", "lg.valuation.complete", "NATS subject for valuation events")
	bindPFlag("nats.valuation_subject", "nats-valuation-subject")

	// Display
	bindEnv("display.timezone", "LG_DISPLAY_TIMEZONE")
	rootCmd.PersistentFlags().String("display-timezone", "", "Timezone history entries are bucketed in; defaults to the exchange timezone")
	bindPFlag("display.timezone", "display-timezone")

	// Portfolio
	bindEnv("portfolio.principal", "LG_PRINCIPAL")
	rootCmd.PersistentFlags().Float64("principal", 0, "Total contributed capital; overrides the snapshot and history values")
	bindPFlag("portfolio.principal", "principal")

	// Logging configuration
	bindEnv("log.level", "LG_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	bindPFlag("log.level", "log-level")

	bindEnv("log.report_caller", "LG_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	bindPFlag("log.report_caller", "log-report-caller")

	bindEnv("log.output", "LG_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindPFlag("log.output", "log-output")

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "lgapi",
	Version: common.CurrentVersion.String(),
	Short:   "LedgerGlass values a multi-currency investment portfolio",
	Long:    `An investment portfolio valuation service that combines broker snapshots, live quotes and FX rates into position-level P&L, allocation and funding-flow analytics.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
