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

package valuation

import (
	"context"
	"time"

	"github.com/ledgerglass/lg-api/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

// SubAccount is one funding source in the broker snapshot, with its idle
// cash in native currency and the share of contributed capital attributed
// to it (0 when the attribution should be derived)
type SubAccount struct {
	Name      string      `json:"name"`
	Role      AccountRole `json:"role"`
	Cash      float64     `json:"cash"`
	Currency  Currency    `json:"currency"`
	Principal float64     `json:"principal,omitempty"`
}

// AccountSnapshot is the immutable broker snapshot a valuation cycle
// starts from
type AccountSnapshot struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Accounts  []*SubAccount  `json:"accounts"`
	Positions []*RawPosition `json:"positions"`
	Principal float64        `json:"principal,omitempty"`
}

// QuoteSource returns quotes for the requested symbols. Unknown symbols
// are omitted from the result; individual symbol failures must not error.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) (map[string]*Quote, error)
}

// RateSource returns the exchange rate table against the home currency.
// It fails explicitly when no rate is obtainable; there is no silent zero.
type RateSource interface {
	Rates(ctx context.Context) (RateTable, error)
}

// SnapshotStore loads the latest persisted account snapshot
type SnapshotStore interface {
	Load(ctx context.Context) (*AccountSnapshot, error)
}

// PeakStore serializes the read-modify-write of the persisted peak state.
// Implementations must run apply inside a per-account critical section
// (row lock or compare-and-swap) so overlapping valuations cannot
// un-ratchet the drawdown.
type PeakStore interface {
	UpdatePeak(ctx context.Context, accountID string, apply func(*AccountInfo) bool) (*AccountInfo, error)
}

// PortfolioData is the aggregate result of one valuation cycle, consumed
// by the presentation layer
type PortfolioData struct {
	Timestamp      time.Time          `json:"timestamp"`
	Cash           float64            `json:"cash"`
	NetLiquidation float64            `json:"netLiquidation"`
	Principal      float64            `json:"principal"`
	TotalUPnL      float64            `json:"totalUpnl"`
	TotalTheta     float64            `json:"totalTheta"`
	Utilization    float64            `json:"utilization"`
	Positions      []*Position        `json:"positions"`
	Breakdown      *AssetBreakdown    `json:"breakdown"`
	Allocation     []*AssetAllocation `json:"allocation"`
	Accounts       []*AccountDataItem `json:"accounts"`
	ChartSegments  []*ChartSegment    `json:"chartSegments"`
	Flow           *FlowGraph         `json:"flow"`
	AccountInfo    *AccountInfo       `json:"accountInfo"`
}

// Valuator runs the valuation pipeline with explicitly injected
// collaborators. All I/O happens in the collaborators; the pipeline itself
// is synchronous and request-scoped.
type Valuator struct {
	Snapshots SnapshotStore
	Quotes    QuoteSource
	FX        RateSource
	Peaks     PeakStore
	Recorder  *HistoryRecorder
	TZ        *time.Location

	// ConfiguredPrincipal is the highest-precedence principal source
	// (from configuration); 0 means not configured
	ConfiguredPrincipal float64
}

// ResolvePrincipal resolves total contributed capital with an explicit,
// documented precedence: (1) configured value, (2) the value recorded in
// the snapshot, (3) the most recent history entry. Each tier applies only
// when the previous one yields no positive value.
func ResolvePrincipal(configured float64, snapshot *AccountSnapshot, history []*HistoryEntry) (float64, error) {
	if configured > 0 {
		return configured, nil
	}
	if snapshot != nil && snapshot.Principal > 0 {
		return snapshot.Principal, nil
	}
	if len(history) > 0 {
		latest := SortDedup(history)
		if p := latest[len(latest)-1].Principal; p > 0 {
			return p, nil
		}
	}
	return 0, ErrNoPrincipal
}

// BuildAccountItems derives the principal-attributed funding split. Any
// sub-account carrying an explicit attribution keeps it; the brokerage
// account absorbs the remainder so the attributions always sum to the
// total principal.
func BuildAccountItems(principal float64, snapshot *AccountSnapshot, breakdown *AssetBreakdown, rates RateTable) []*AccountDataItem {
	items := make([]*AccountDataItem, 0, len(snapshot.Accounts))

	var broker *AccountDataItem
	attributed := 0.0
	for _, acct := range snapshot.Accounts {
		cashHome := ToHome(acct.Cash, acct.Currency, rates)
		item := &AccountDataItem{
			Name: acct.Name,
			Role: acct.Role,
			Cash: cashHome,
		}

		switch acct.Role {
		case RoleBroker:
			item.Value = cashHome + breakdown.Stock.MarketValue + breakdown.Option.MarketValue + breakdown.ETF.MarketValue
			broker = item
		case RoleCrypto:
			item.Value = cashHome + breakdown.Crypto.MarketValue
			item.Principal = cashHome + breakdown.Crypto.Cost
		default:
			item.Value = cashHome
			item.Principal = cashHome
		}
		if acct.Principal > 0 {
			item.Principal = acct.Principal
		}
		if item != broker {
			attributed += item.Principal
		}

		items = append(items, item)
	}

	if broker != nil {
		broker.Principal = principal - attributed
	}

	return items
}

// Run executes one valuation cycle: snapshot + quotes + rates in,
// PortfolioData out. Partial quote data degrades gracefully; a missing FX
// rate aborts; invariant violations are logged and the best-effort result
// is still returned.
func (v *Valuator) Run(ctx context.Context) (*PortfolioData, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "valuator.Run")
	defer span.End()

	snapshot, err := v.Snapshots.Load(ctx)
	if err != nil {
		return nil, err
	}

	rates, err := v.FX.Rates(ctx)
	if err != nil {
		return nil, err
	}

	quotes, err := v.Quotes.Quotes(ctx, QuoteSymbols(snapshot.Positions))
	if err != nil {
		// quote transport failure is a partial-data condition for the
		// cycle as a whole: positions price at zero
		log.Warn().Stack().Err(err).Msg("quote source failed; pricing positions at zero")
		quotes = map[string]*Quote{}
	}

	now := time.Now()
	positions := PricePositions(snapshot.Positions, quotes, now, v.TZ)

	cashSources := make([]CashSource, 0, len(snapshot.Accounts))
	currencies := make([]Currency, 0, len(snapshot.Accounts))
	for _, acct := range snapshot.Accounts {
		cashSources = append(cashSources, CashSource{Account: acct.Name, Amount: acct.Cash, Currency: acct.Currency})
		currencies = append(currencies, acct.Currency)
	}
	if err := rates.Validate(currencies); err != nil {
		return nil, err
	}
	breakdown := Aggregate(positions, cashSources, rates)
	if !CheckConservation(breakdown) {
		log.Error().Stack().Err(ErrConservation).Float64("TotalMarketValue", breakdown.TotalMarketValue).Msg("asset totals do not reconcile")
	}

	var history []*HistoryEntry
	if v.Recorder != nil {
		if history, err = v.Recorder.store.ListAll(ctx); err != nil {
			log.Warn().Stack().Err(err).Msg("could not list history; principal fallback tier unavailable")
		}
	}

	principal, err := ResolvePrincipal(v.ConfiguredPrincipal, snapshot, history)
	if err != nil {
		return nil, err
	}

	accounts := BuildAccountItems(principal, snapshot, breakdown, rates)
	flow := BuildFlowGraph(principal, accounts, breakdown, positions)

	var info *AccountInfo
	if v.Peaks != nil {
		info, err = v.Peaks.UpdatePeak(ctx, snapshot.ID, func(a *AccountInfo) bool {
			return a.Update(breakdown.TotalMarketValue)
		})
		if err != nil {
			log.Error().Stack().Err(err).Msg("could not update peak state")
		}
	}

	if v.Recorder != nil {
		entry := NewHistoryEntry(now, v.TZ, principal, rates.Rate(SGD), breakdown)
		if _, err := v.Recorder.RecordIfDue(ctx, now, entry); err != nil {
			log.Warn().Stack().Err(err).Msg("history entry not recorded")
		}
	}

	return &PortfolioData{
		Timestamp:      now,
		Cash:           breakdown.Cash,
		NetLiquidation: breakdown.TotalMarketValue,
		Principal:      principal,
		TotalUPnL:      breakdown.TotalUnrealizedPnL,
		TotalTheta:     TotalTheta(positions),
		Utilization:    Utilization(breakdown.TotalMarketValue, breakdown.Cash),
		Positions:      SortPositions(positions),
		Breakdown:      breakdown,
		Allocation:     Allocation(breakdown),
		Accounts:       accounts,
		ChartSegments:  ChartSegments(breakdown),
		Flow:           flow,
		AccountInfo:    info,
	}, nil
}
