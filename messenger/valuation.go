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

package messenger

import (
	json "github.com/goccy/go-json"
	"github.com/ledgerglass/lg-api/valuation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ValuationEvent summarizes a completed valuation cycle for downstream
// consumers (alerting, dashboards)
type ValuationEvent struct {
	Timestamp       string  `json:"timestamp"`
	NetLiquidation  float64 `json:"net_liquidation"`
	TotalUPnL       float64 `json:"total_upnl"`
	DrawdownPercent float64 `json:"drawdown_percent"`
}

// PublishValuation sends a valuation-complete event to the configured
// jetstream subject. Publishing is best-effort; callers treat a publish
// failure as non-fatal for the valuation cycle itself.
func PublishValuation(data *valuation.PortfolioData) error {
	if jetStream == nil {
		log.Warn().Msg("nats not initialized; skipping valuation event")
		return nil
	}

	subject := viper.GetString("nats.valuation_subject")

	event := ValuationEvent{
		Timestamp:      data.Timestamp.String(),
		NetLiquidation: data.NetLiquidation,
		TotalUPnL:      data.TotalUPnL,
	}
	if data.AccountInfo != nil {
		event.DrawdownPercent = data.AccountInfo.MaxDrawdownPercent
	}

	jsonEvent, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("could not serialize valuation event to JSON")
		return err
	}

	if _, err := jetStream.Publish(subject, jsonEvent); err != nil {
		log.Error().Err(err).Msg("could not publish valuation event")
		return err
	}

	return nil
}
