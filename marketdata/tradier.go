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
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/ledgerglass/lg-api/valuation"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

const tradierDefaultURL = "https://api.tradier.com"

// Tradier fetches equity and option quotes from the Tradier market data
// API. It implements valuation.QuoteSource.
type Tradier struct {
	apiToken string
	baseURL  string
	client   *http.Client
}

type tradierGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

type tradierQuote struct {
	Symbol string         `json:"symbol"`
	Bid    float64        `json:"bid"`
	Ask    float64        `json:"ask"`
	Greeks *tradierGreeks `json:"greeks"`
}

// quoteList absorbs Tradier's quirk of returning a bare object when a
// single symbol is requested and an array otherwise
type quoteList []*tradierQuote

func (l *quoteList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var many []*tradierQuote
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	var one tradierQuote
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = quoteList{&one}
	return nil
}

type tradierResponse struct {
	Quotes struct {
		Quote quoteList `json:"quote"`
	} `json:"quotes"`
}

func NewTradier(apiToken string, baseURL string) *Tradier {
	if baseURL == "" {
		baseURL = tradierDefaultURL
	}
	return &Tradier{
		apiToken: apiToken,
		baseURL:  baseURL,
		client:   &http.Client{},
	}
}

// Quotes fetches bid/ask and greeks for the requested symbols in a single
// batched call. Symbols the upstream does not recognize are omitted from
// the returned map; lookup by the caller degrades those to a zero price.
func (t *Tradier) Quotes(ctx context.Context, symbols []string) (map[string]*valuation.Quote, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tradier.Quotes")
	defer span.End()

	subLog := log.With().Str("Source", "tradier").Int("NumSymbols", len(symbols)).Logger()

	if len(symbols) == 0 {
		return map[string]*valuation.Quote{}, nil
	}

	reqURL := fmt.Sprintf("%s/v1/markets/quotes?symbols=%s&greeks=true", t.baseURL,
		url.QueryEscape(strings.Join(symbols, ",")))
	body, err := getJSON(ctx, t.client, reqURL, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", t.apiToken),
	})
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("tradier quote request failed")
		return nil, err
	}

	resp := tradierResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not unmarshal tradier response")
		return nil, err
	}

	quotes := make(map[string]*valuation.Quote, len(resp.Quotes.Quote))
	for _, q := range resp.Quotes.Quote {
		if q == nil || q.Symbol == "" {
			continue
		}
		quote := &valuation.Quote{
			Symbol: q.Symbol,
			Bid:    q.Bid,
			Ask:    q.Ask,
		}
		if q.Greeks != nil {
			quote.Greeks = &valuation.Greeks{
				Delta: q.Greeks.Delta,
				Gamma: q.Greeks.Gamma,
				Theta: q.Greeks.Theta,
				Vega:  q.Greeks.Vega,
			}
		}
		quotes[q.Symbol] = quote
	}

	if len(quotes) < len(symbols) {
		subLog.Warn().Int("NumQuotes", len(quotes)).Msg("tradier omitted some requested symbols")
	}

	return quotes, nil
}
