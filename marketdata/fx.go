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

	json "github.com/goccy/go-json"
	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/ledgerglass/lg-api/valuation"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

const fxDefaultURL = "https://query2.finance.yahoo.com"

// RateCache persists the last known good exchange rates so a transient
// upstream failure does not abort valuation cycles.
type RateCache interface {
	SaveRates(ctx context.Context, rates valuation.RateTable) error
	LoadRates(ctx context.Context) (valuation.RateTable, error)
}

// FxClient fetches spot exchange rates against the home currency from a
// public quote endpoint. It implements valuation.RateSource. When the
// endpoint is unreachable it falls back to the cached rates; with no
// cached rates available the valuation cycle must abort.
type FxClient struct {
	baseURL    string
	client     *http.Client
	cache      RateCache
	currencies []valuation.Currency
}

type fxChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

func NewFxClient(baseURL string, cache RateCache, currencies []valuation.Currency) *FxClient {
	if baseURL == "" {
		baseURL = fxDefaultURL
	}
	if len(currencies) == 0 {
		currencies = []valuation.Currency{valuation.SGD}
	}
	return &FxClient{
		baseURL:    baseURL,
		client:     &http.Client{},
		cache:      cache,
		currencies: currencies,
	}
}

// fetchRate reads one CUR=X quote and returns its regular market price
func (fx *FxClient) fetchRate(ctx context.Context, currency valuation.Currency) (float64, error) {
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s=X", fx.baseURL, currency)
	body, err := getJSON(ctx, fx.client, reqURL, map[string]string{
		// the quote endpoint rejects requests without a browser user agent
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	})
	if err != nil {
		return 0, err
	}

	resp := fxChartResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}
	if len(resp.Chart.Result) == 0 {
		return 0, ErrEmptyResponse
	}

	rate := resp.Chart.Result[0].Meta.RegularMarketPrice
	if rate <= 0 {
		return 0, fmt.Errorf("%w: rate for %s is %f", valuation.ErrRateUnavailable, currency, rate)
	}
	return rate, nil
}

// Rates fetches a fresh rate for every configured currency. If any fetch
// fails the whole table falls back to the cached rates; a fetch that
// succeeds with no cache available still returns the fresh table.
func (fx *FxClient) Rates(ctx context.Context) (valuation.RateTable, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fx.Rates")
	defer span.End()

	subLog := log.With().Str("Source", "fx").Logger()

	rates := valuation.RateTable{}
	for _, currency := range fx.currencies {
		if currency == valuation.USD {
			continue
		}
		rate, err := fx.fetchRate(ctx, currency)
		if err != nil {
			subLog.Warn().Stack().Err(err).Str("Currency", string(currency)).Msg("fx fetch failed; trying cached rates")
			return fx.cachedRates(ctx, err)
		}
		rates[currency] = rate
	}

	if fx.cache != nil {
		if err := fx.cache.SaveRates(ctx, rates); err != nil {
			subLog.Warn().Stack().Err(err).Msg("could not persist fx rates")
		}
	}

	return rates, nil
}

func (fx *FxClient) cachedRates(ctx context.Context, cause error) (valuation.RateTable, error) {
	if fx.cache == nil {
		return nil, fmt.Errorf("%w: %s", valuation.ErrRateUnavailable, cause.Error())
	}

	cached, err := fx.cache.LoadRates(ctx)
	if err != nil || len(cached) == 0 {
		return nil, fmt.Errorf("%w: %s", valuation.ErrRateUnavailable, cause.Error())
	}

	for currency, rate := range cached {
		if rate <= 0 {
			return nil, fmt.Errorf("%w: cached rate for %s is %f", valuation.ErrRateUnavailable, currency, rate)
		}
	}

	log.Info().Int("NumRates", len(cached)).Msg("using cached fx rates")
	return cached, nil
}
