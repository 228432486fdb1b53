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

// Package marketdata holds the thin I/O adapters for the external market
// data services: the broker quote API, the FX-rate API, the exchange
// index API and the crypto exchange API. No adapter contains valuation
// logic; each maps one upstream wire format onto the core's typed values.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidStatusCode = errors.New("HTTP request returned invalid status code")
	ErrEmptyResponse     = errors.New("upstream returned an empty response")
)

const requestTimeout = 10 * time.Second

// IndexRow is one exchange index reading (e.g. DJI, SPX, COMP)
type IndexRow struct {
	Name          string  `json:"name"`
	Current       float64 `json:"current"`
	PrevClose     float64 `json:"prev"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"pct"`
}

// CryptoTicker is one crypto index price with its change since the UTC
// session open
type CryptoTicker struct {
	Instrument    string  `json:"inst"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"pct"`
}

// Sentiment is the day's fear-and-greed reading with its prior closes
type Sentiment struct {
	Score     float64 `json:"score"`
	Rating    string  `json:"rating"`
	PrevClose float64 `json:"prev"`
	WeekAgo   float64 `json:"w1"`
	MonthAgo  float64 `json:"m1"`
	YearAgo   float64 `json:"y1"`
}

// IndexSource provides exchange index rows for the dashboard header
type IndexSource interface {
	Indexes(ctx context.Context) ([]*IndexRow, error)
}

// SentimentSource provides the market sentiment reading
type SentimentSource interface {
	FearGreed(ctx context.Context) (*Sentiment, error)
}

// CryptoSource provides crypto index tickers
type CryptoSource interface {
	Tickers(ctx context.Context, instruments []string) ([]*CryptoTicker, error)
}

// getJSON performs a GET with the shared timeout and returns the body, or
// an error for transport failures and non-2xx statuses
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("http.url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("invalid status code %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
