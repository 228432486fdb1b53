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
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"

	"github.com/ledgerglass/lg-api/account"
	"github.com/ledgerglass/lg-api/common"
	"github.com/ledgerglass/lg-api/database"
	"github.com/ledgerglass/lg-api/handler"
	"github.com/ledgerglass/lg-api/jwks"
	"github.com/ledgerglass/lg-api/marketclock"
	"github.com/ledgerglass/lg-api/marketdata"
	"github.com/ledgerglass/lg-api/messenger"
	"github.com/ledgerglass/lg-api/middleware"
	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/ledgerglass/lg-api/router"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	bindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		log.Panic().Err(err).Msg("could not bind server.port")
	}

	bindEnv("valuation.interval_minutes", "LG_VALUATION_INTERVAL")
	serveCmd.Flags().IntP("interval", "i", 5, "Minutes between scheduled valuation cycles")
	if err := viper.BindPFlag("valuation.interval_minutes", serveCmd.Flags().Lookup("interval")); err != nil {
		log.Panic().Err(err).Msg("could not bind valuation.interval_minutes")
	}

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lg-api server",
	Long:  `Run HTTP server that implements the LedgerGlass API`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile output file")
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Fatal().Err(err).Msg("could not start CPU profile")
			}
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()
		common.SetupCache()
		log.Info().Msg("initialized logging")

		otelShutdown, err := opentelemetry.Setup()
		if err != nil {
			log.Fatal().Err(err).Msg("could not configure opentelemetry")
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				log.Error().Err(err).Msg("could not shutdown trace provider")
			}
		}()

		// setup database
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}

		if err := marketclock.LoadMarketHolidays(); err != nil {
			log.Fatal().Err(err).Msg("could not load market holidays")
		}

		if viper.GetString("nats.server") != "" {
			if err := messenger.Initialize(); err != nil {
				log.Fatal().Err(err).Msg("could not connect to NATS")
			}
		}

		tz := common.GetDisplayTimezone()

		// wire the valuation pipeline and its read handlers
		handler.SetValuator(buildValuator(tz))
		handler.SetHistoryStore(&account.DbHistoryStore{})
		indexClient := marketdata.NewIndexClient("", nil, tz)
		handler.SetMarketSources(indexClient, marketdata.NewOkx(""), indexClient)

		// Create new Fiber instance
		app := fiber.New()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("could not shutdown app")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.allow_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}
		app.Use(cors.New(corsConfig))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Configure authentication
		jwksAutoRefresh, jwksURL := jwks.SetupJWKS()

		// Setup routes
		router.SetupRoutes(app, jwksAutoRefresh, jwksURL)

		// Run a valuation cycle on a fixed cadence; the history recorder
		// only writes while the market session is open
		scheduler := gocron.NewScheduler(common.GetMarketTimezone())
		if _, err := scheduler.Every(viper.GetInt("valuation.interval_minutes")).Minutes().Do(func() {
			data, err := handler.RefreshPortfolio(context.Background())
			if err != nil {
				log.Error().Stack().Err(err).Msg("scheduled valuation cycle failed")
				return
			}
			if err := messenger.PublishValuation(data); err != nil {
				log.Warn().Err(err).Msg("could not publish valuation event")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("could not schedule valuation job")
		}
		scheduler.StartAsync()

		// Start server
		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server exited with error")
		}
	},
}
