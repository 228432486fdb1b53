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
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the lgapi configuration file",
}

// starterConfig mirrors the viper keys the server reads
type starterConfig struct {
	SecretKey string `toml:"secret_key" comment:"hex encoded AES key used for apikey encryption"`

	Server struct {
		Port         int    `toml:"port"`
		AllowOrigins string `toml:"allow_origins"`
	} `toml:"server"`

	Database struct {
		URL string `toml:"url"`
	} `toml:"database"`

	Tradier struct {
		Token string `toml:"token"`
	} `toml:"tradier"`

	Auth0 struct {
		Domain string `toml:"domain"`
	} `toml:"auth0"`

	Fx struct {
		Currencies []string `toml:"currencies" comment:"currencies to fetch FX rates for; cash in any other currency aborts valuation"`
	} `toml:"fx"`

	Nats struct {
		Server           string `toml:"server"`
		Credentials      string `toml:"credentials"`
		ValuationSubject string `toml:"valuation_subject"`
	} `toml:"nats"`

	Portfolio struct {
		Principal float64 `toml:"principal"`
	} `toml:"portfolio"`

	Account struct {
		SnapshotFile string `toml:"snapshot_file" comment:"read the broker snapshot from a file instead of the database"`
	} `toml:"account"`

	Crypto struct {
		Instruments []string `toml:"instruments"`
	} `toml:"crypto"`

	Valuation struct {
		IntervalMinutes int `toml:"interval_minutes"`
	} `toml:"valuation"`
}

var configInitCmd = &cobra.Command{
	Use:   "init [filename]",
	Short: "Write a starter config file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fn := "config.toml"
		if len(args) == 1 {
			fn = args[0]
		}

		if _, err := os.Stat(fn); err == nil && !configForce {
			log.Fatal().Str("FileName", fn).Msg("config file already exists; use --force to overwrite")
		}

		cfg := starterConfig{}
		cfg.Server.Port = 3000
		cfg.Server.AllowOrigins = "http://localhost:8080"
		cfg.Fx.Currencies = []string{"SGD"}
		cfg.Nats.ValuationSubject = "lg.valuation.complete"
		cfg.Crypto.Instruments = []string{"BTC-USDT", "ETH-USDT"}
		cfg.Valuation.IntervalMinutes = 5

		doc, err := toml.Marshal(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal starter config")
		}

		if err := os.WriteFile(fn, doc, 0600); err != nil {
			log.Fatal().Err(err).Str("FileName", fn).Msg("could not write config file")
		}

		fmt.Printf("wrote %s\n", fn)
	},
}
