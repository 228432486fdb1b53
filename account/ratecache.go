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

package account

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/ledgerglass/lg-api/common"
	"github.com/ledgerglass/lg-api/valuation"
)

const fxRatesCacheKey = "fx:rates"

// CachedRates keeps the last known good FX rates in the shared cache
// (local LRU, plus redis when configured) so valuations survive transient
// FX provider outages. It implements marketdata.RateCache.
type CachedRates struct{}

func (c *CachedRates) SaveRates(_ context.Context, rates valuation.RateTable) error {
	raw, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	return common.CacheSet(fxRatesCacheKey, raw)
}

func (c *CachedRates) LoadRates(_ context.Context) (valuation.RateTable, error) {
	raw, err := common.CacheGet(fxRatesCacheKey)
	if err != nil {
		return nil, err
	}
	rates := valuation.RateTable{}
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}
