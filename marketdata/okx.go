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
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

const okxDefaultURL = "https://www.okx.com"

// Okx reads crypto index prices from the OKX public index-ticker API. It
// implements CryptoSource.
type Okx struct {
	baseURL string
	client  *http.Client
}

type okxTickerResponse struct {
	Data []struct {
		InstID  string `json:"instId"`
		IdxPx   string `json:"idxPx"`
		SodUtc0 string `json:"sodUtc0"`
	} `json:"data"`
}

func NewOkx(baseURL string) *Okx {
	if baseURL == "" {
		baseURL = okxDefaultURL
	}
	return &Okx{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Tickers fetches the index price and UTC session open for each requested
// instrument (for example BTC-USDT). Instruments the exchange does not
// know are skipped with a warning.
func (o *Okx) Tickers(ctx context.Context, instruments []string) ([]*CryptoTicker, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "okx.Tickers")
	defer span.End()

	subLog := log.With().Str("Source", "okx").Logger()

	tickers := make([]*CryptoTicker, 0, len(instruments))
	for _, inst := range instruments {
		reqURL := fmt.Sprintf("%s/api/v5/market/index-tickers?instId=%s", o.baseURL, inst)
		body, err := getJSON(ctx, o.client, reqURL, nil)
		if err != nil {
			subLog.Error().Stack().Err(err).Str("Instrument", inst).Msg("okx ticker request failed")
			return nil, err
		}

		resp := okxTickerResponse{}
		if err := json.Unmarshal(body, &resp); err != nil {
			subLog.Error().Stack().Err(err).Str("Instrument", inst).Msg("could not unmarshal okx response")
			return nil, err
		}
		if len(resp.Data) == 0 {
			subLog.Warn().Str("Instrument", inst).Msg("okx returned no data for instrument")
			continue
		}

		price, err := strconv.ParseFloat(resp.Data[0].IdxPx, 64)
		if err != nil {
			subLog.Warn().Stack().Err(err).Str("Instrument", inst).Msg("okx price not parseable")
			continue
		}
		open, err := strconv.ParseFloat(resp.Data[0].SodUtc0, 64)
		if err != nil {
			subLog.Warn().Stack().Err(err).Str("Instrument", inst).Msg("okx session open not parseable")
			continue
		}

		ticker := &CryptoTicker{
			Instrument: inst,
			Price:      price,
			Open:       open,
			Change:     price - open,
		}
		if open > 0 {
			ticker.PercentChange = ticker.Change / open * 100
		}
		tickers = append(tickers, ticker)
	}

	return tickers, nil
}
