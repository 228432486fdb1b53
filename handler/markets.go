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

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ledgerglass/lg-api/marketdata"
)

var (
	indexSource     marketdata.IndexSource
	cryptoSource    marketdata.CryptoSource
	sentimentSource marketdata.SentimentSource
)

// SetMarketSources installs the dashboard market data sources. Called
// once at startup.
func SetMarketSources(indexes marketdata.IndexSource, crypto marketdata.CryptoSource, sentiment marketdata.SentimentSource) {
	indexSource = indexes
	cryptoSource = crypto
	sentimentSource = sentiment
}

// GetIndexes returns the exchange index rows for the dashboard header
func GetIndexes(c *fiber.Ctx) error {
	if indexSource == nil {
		return fiber.ErrServiceUnavailable
	}

	rows, err := indexSource.Indexes(c.UserContext())
	if err != nil {
		log.Warn().Stack().Err(err).Msg("could not load exchange indexes")
		return fiber.ErrBadGateway
	}
	return c.JSON(rows)
}

// GetCrypto returns the configured crypto index tickers
func GetCrypto(c *fiber.Ctx) error {
	if cryptoSource == nil {
		return fiber.ErrServiceUnavailable
	}

	instruments := viper.GetStringSlice("crypto.instruments")
	if len(instruments) == 0 {
		instruments = []string{"BTC-USDT", "ETH-USDT"}
	}

	tickers, err := cryptoSource.Tickers(c.UserContext(), instruments)
	if err != nil {
		log.Warn().Stack().Err(err).Msg("could not load crypto tickers")
		return fiber.ErrBadGateway
	}
	return c.JSON(tickers)
}

// GetSentiment returns the day's fear-and-greed reading
func GetSentiment(c *fiber.Ctx) error {
	if sentimentSource == nil {
		return fiber.ErrServiceUnavailable
	}

	sentiment, err := sentimentSource.FearGreed(c.UserContext())
	if err != nil {
		log.Warn().Stack().Err(err).Msg("could not load market sentiment")
		return fiber.ErrBadGateway
	}
	return c.JSON(sentiment)
}
