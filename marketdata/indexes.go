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

package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

const indexDefaultURL = "https://production.dataviz.cnn.io"

var defaultIndexSymbols = []string{"DJII-USA", "SP500-CME", "COMP-USA"}

// IndexClient reads the day's exchange index readings from a market data
// endpoint. It implements IndexSource.
type IndexClient struct {
	baseURL string
	symbols []string
	client  *http.Client
	tz      *time.Location
}

type indexRowJSON struct {
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	PrevClosePrice float64 `json:"prev_close_price"`
	PriceChange    float64 `json:"price_change_from_prev_close"`
	PctChange      float64 `json:"percent_change_from_prev_close"`
}

type fearGreedJSON struct {
	FearAndGreed struct {
		Score         float64 `json:"score"`
		Rating        string  `json:"rating"`
		PreviousClose float64 `json:"previous_close"`
		Previous1W    float64 `json:"previous_1_week"`
		Previous1M    float64 `json:"previous_1_month"`
		Previous1Y    float64 `json:"previous_1_year"`
	} `json:"fear_and_greed"`
}

func NewIndexClient(baseURL string, symbols []string, tz *time.Location) *IndexClient {
	if baseURL == "" {
		baseURL = indexDefaultURL
	}
	if len(symbols) == 0 {
		symbols = defaultIndexSymbols
	}
	if tz == nil {
		tz = time.UTC
	}
	return &IndexClient{
		baseURL: baseURL,
		symbols: symbols,
		client:  &http.Client{},
		tz:      tz,
	}
}

// Indexes fetches the configured index symbols for the current trade date
func (ic *IndexClient) Indexes(ctx context.Context) ([]*IndexRow, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "indexclient.Indexes")
	defer span.End()

	today := time.Now().In(ic.tz).Format("2006-01-02")
	reqURL := fmt.Sprintf("%s/markets/index/%s/%s", ic.baseURL, strings.Join(ic.symbols, ","), today)
	body, err := getJSON(ctx, ic.client, reqURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	})
	if err != nil {
		log.Error().Stack().Err(err).Msg("index request failed")
		return nil, err
	}

	raw := []*indexRowJSON{}
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Error().Stack().Err(err).Msg("could not unmarshal index response")
		return nil, err
	}

	rows := make([]*IndexRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, &IndexRow{
			Name:          r.Name,
			Current:       r.CurrentPrice,
			PrevClose:     r.PrevClosePrice,
			Change:        r.PriceChange,
			PercentChange: r.PctChange,
		})
	}

	return rows, nil
}

// FearGreed fetches the day's market sentiment index. The endpoint keys
// on the UTC date, unlike the index endpoint which follows the exchange
// trade date.
func (ic *IndexClient) FearGreed(ctx context.Context) (*Sentiment, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "indexclient.FearGreed")
	defer span.End()

	today := time.Now().UTC().Format("2006-01-02")
	reqURL := fmt.Sprintf("%s/index/fearandgreed/graphdata/%s", ic.baseURL, today)
	body, err := getJSON(ctx, ic.client, reqURL, map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	})
	if err != nil {
		log.Error().Stack().Err(err).Msg("sentiment request failed")
		return nil, err
	}

	raw := fearGreedJSON{}
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Error().Stack().Err(err).Msg("could not unmarshal sentiment response")
		return nil, err
	}

	fg := raw.FearAndGreed
	return &Sentiment{
		Score:     fg.Score,
		Rating:    fg.Rating,
		PrevClose: fg.PreviousClose,
		WeekAgo:   fg.Previous1W,
		MonthAgo:  fg.Previous1M,
		YearAgo:   fg.Previous1Y,
	}, nil
}
