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
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/ledgerglass/lg-api/valuation"
)

// ProfileAccount declares one sub-account in the asset profile
type ProfileAccount struct {
	Name      string  `toml:"name"`
	Role      string  `toml:"role"`
	Currency  string  `toml:"currency"`
	Principal float64 `toml:"principal"`
}

// AssetProfile configures classification and funding attribution that the
// broker snapshot cannot express: the ETF allowlist, per-account principal
// attributions and the total contributed capital
type AssetProfile struct {
	ETFSymbols []string         `toml:"etf_symbols"`
	Principal  float64          `toml:"principal"`
	Accounts   []ProfileAccount `toml:"accounts"`
}

// rawAssetProfile mirrors AssetProfile with untyped principal fields.
// go-toml refuses to decode a TOML integer into a float64 field and
// hand-written profiles routinely say `principal = 20000`.
type rawAssetProfile struct {
	ETFSymbols []string `toml:"etf_symbols"`
	Principal  any      `toml:"principal"`
	Accounts   []struct {
		Name      string `toml:"name"`
		Role      string `toml:"role"`
		Currency  string `toml:"currency"`
		Principal any    `toml:"principal"`
	} `toml:"accounts"`
}

func asAmount(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

// LoadAssetProfile reads a TOML asset profile
func LoadAssetProfile(fn string) (*AssetProfile, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not read asset profile")
		return nil, err
	}

	var doc rawAssetProfile
	if err := toml.Unmarshal(raw, &doc); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not parse asset profile")
		return nil, err
	}

	profile := &AssetProfile{
		ETFSymbols: doc.ETFSymbols,
		Principal:  asAmount(doc.Principal),
		Accounts:   make([]ProfileAccount, 0, len(doc.Accounts)),
	}
	for _, acct := range doc.Accounts {
		profile.Accounts = append(profile.Accounts, ProfileAccount{
			Name:      acct.Name,
			Role:      acct.Role,
			Currency:  acct.Currency,
			Principal: asAmount(acct.Principal),
		})
	}
	return profile, nil
}

// Apply pushes the profile's settings into the valuation core and onto the
// snapshot: the ETF allowlist replaces the default, and per-account
// principal attributions are copied onto matching sub-accounts.
func (profile *AssetProfile) Apply(snapshot *valuation.AccountSnapshot) {
	if len(profile.ETFSymbols) > 0 {
		valuation.SetETFSymbols(profile.ETFSymbols)
	}
	if snapshot == nil {
		return
	}

	byName := make(map[string]*ProfileAccount, len(profile.Accounts))
	for i := range profile.Accounts {
		byName[profile.Accounts[i].Name] = &profile.Accounts[i]
	}
	for _, acct := range snapshot.Accounts {
		if cfg, ok := byName[acct.Name]; ok && cfg.Principal > 0 {
			acct.Principal = cfg.Principal
		}
	}
}

// ProfiledSnapshotStore decorates a snapshot store so every loaded
// snapshot carries the profile's attributions
type ProfiledSnapshotStore struct {
	Store   valuation.SnapshotStore
	Profile *AssetProfile
}

func (s *ProfiledSnapshotStore) Load(ctx context.Context) (*valuation.AccountSnapshot, error) {
	snapshot, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.Profile.Apply(snapshot)
	return snapshot, nil
}
