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
	"sort"

	"github.com/rs/zerolog/log"
)

// AccountRole identifies which kind of sub-account a funding source is
type AccountRole string

const (
	RoleCash   AccountRole = "cash"
	RoleBroker AccountRole = "broker"
	RoleCrypto AccountRole = "crypto"
)

// AccountDataItem is one named external sub-account. Principal is the
// portion of total contributed capital attributed to the account; across
// all accounts the principal-attributed values sum to total principal in
// the valuation currency.
type AccountDataItem struct {
	Name      string      `json:"name"`
	Role      AccountRole `json:"role"`
	Value     float64     `json:"value"`
	Principal float64     `json:"principal"`
	Cash      float64     `json:"cash"`
}

// FlowNode is one node of the capital-flow graph; Value is
// max(sum outgoing, sum incoming)
type FlowNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// FlowEdge is one directed monetary flow; Value is always >= 0
type FlowEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// FlowGraph is the presentation-ready Sankey graph. Every interior node
// conserves value: the sum of its incoming edges equals the sum of its
// outgoing edges within floating tolerance.
type FlowGraph struct {
	Nodes []*FlowNode `json:"nodes"`
	Edges []*FlowEdge `json:"edges"`
}

// Well-known node identifiers
const (
	NodePrincipal = "Principal"
	NodeRProfit   = "rProfit"
	NodeRLoss     = "rLoss"
	NodeUProfit   = "uProfit"
	NodeULoss     = "uLoss"
	NodeCash      = "Cash"
	NodeSink      = "Account"
)

// minFlow is the display cutoff below which an edge is dropped as visual
// clutter; conservation tests must use a tolerance, never edge existence
const minFlow = 0.01

var classNodes = map[AssetClass]string{
	ClassStock:  "Stock",
	ClassOption: "Option",
	ClassETF:    "ETF",
	ClassCrypto: "Crypto",
}

type flowBuilder struct {
	nodeOrder []string
	labels    map[string]string
	edges     []*FlowEdge
}

func newFlowBuilder() *flowBuilder {
	return &flowBuilder{labels: make(map[string]string)}
}

func (fb *flowBuilder) node(id, label string) {
	if _, ok := fb.labels[id]; ok {
		return
	}
	fb.labels[id] = label
	fb.nodeOrder = append(fb.nodeOrder, id)
}

func (fb *flowBuilder) edge(source, target string, value float64) {
	if value < minFlow {
		return
	}
	fb.edges = append(fb.edges, &FlowEdge{Source: source, Target: target, Value: value})
}

func (fb *flowBuilder) build() *FlowGraph {
	in := make(map[string]float64)
	out := make(map[string]float64)
	for _, e := range fb.edges {
		out[e.Source] += e.Value
		in[e.Target] += e.Value
	}

	nodes := make([]*FlowNode, 0, len(fb.nodeOrder))
	for _, id := range fb.nodeOrder {
		value := out[id]
		if in[id] > value {
			value = in[id]
		}
		if value < minFlow {
			// nodes with no surviving flow are dropped with their edges
			continue
		}
		nodes = append(nodes, &FlowNode{ID: id, Label: fb.labels[id], Value: value})
	}

	return &FlowGraph{Nodes: nodes, Edges: fb.edges}
}

// positionNodeID keeps option nodes distinct from a stock node on the
// same underlying
func positionNodeID(p *Position) string {
	if p.IsOption() {
		if key, ok := OccKey(p.Symbol, p.Expiry, p.Right, p.Strike); ok {
			return key
		}
	}
	return p.Symbol
}

// SortPositions orders positions for stable rendering: stocks and ETFs
// before options, winners before losers, larger market value first.
// Options order by ascending expiry.
func SortPositions(positions []*Position) []*Position {
	sorted := make([]*Position, len(positions))
	copy(sorted, positions)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.IsOption() != b.IsOption() {
			return !a.IsOption()
		}
		if a.IsOption() {
			if a.Expiry != b.Expiry {
				return a.Expiry < b.Expiry
			}
		}
		aWin := a.UnrealizedPnL >= 0
		bWin := b.UnrealizedPnL >= 0
		if aWin != bWin {
			return aWin
		}
		return a.MarketValue > b.MarketValue
	})

	return sorted
}

// BuildFlowGraph constructs the layered capital-flow graph:
//
//	Principal -> sub-accounts -> asset classes + Cash -> positions -> Account
//
// Sub-accounts are funded in proportion to their principal-attributed
// share, classes are funded at cost so the gain/loss layer sums to market
// value, rProfit/rLoss siphon lifetime realized P&L through the brokerage
// node, and uProfit/uLoss carry each position's unrealized P&L.
func BuildFlowGraph(principal float64, accounts []*AccountDataItem, breakdown *AssetBreakdown, positions []*Position) *FlowGraph {
	fb := newFlowBuilder()

	fb.node(NodePrincipal, NodePrincipal)
	fb.node(NodeRProfit, NodeRProfit)

	var broker, crypto *AccountDataItem
	for _, acct := range accounts {
		fb.node(acct.Name, acct.Name)
		fb.edge(NodePrincipal, acct.Name, acct.Principal)
		switch acct.Role {
		case RoleBroker:
			broker = acct
		case RoleCrypto:
			crypto = acct
		}
	}
	fb.node(NodeRLoss, NodeRLoss)

	// realized P&L is the portion of account P&L not explained by open
	// positions; it is signed, a realized loss flows out of the broker
	if broker != nil {
		accountPnL := breakdown.TotalMarketValue - principal
		realized := accountPnL - breakdown.TotalUnrealizedPnL
		if realized >= 0 {
			fb.edge(NodeRProfit, broker.Name, realized)
		} else {
			fb.edge(broker.Name, NodeRLoss, -realized)
		}
	}

	// classes are funded at cost by their owning sub-account
	classOwner := func(class AssetClass) *AccountDataItem {
		if class == ClassCrypto && crypto != nil {
			return crypto
		}
		return broker
	}
	for _, class := range []AssetClass{ClassStock, ClassETF, ClassOption, ClassCrypto} {
		totals := breakdown.Class(class)
		owner := classOwner(class)
		if owner == nil || totals.Cost < minFlow {
			continue
		}
		fb.node(classNodes[class], classNodes[class])
		fb.edge(owner.Name, classNodes[class], totals.Cost)
	}

	fb.node(NodeCash, NodeCash)
	for _, acct := range accounts {
		fb.edge(acct.Name, NodeCash, acct.Cash)
	}

	fb.node(NodeUProfit, NodeUProfit)

	// positions at cost, with the unrealized gain topped up by uProfit so
	// each position node conserves its full market value
	totalLosses := 0.0
	for _, p := range SortPositions(positions) {
		id := positionNodeID(p)
		fb.node(id, p.Symbol)

		class := classNodes[Classify(p)]
		fb.edge(class, id, p.CostBasis())
		if p.UnrealizedPnL >= 0 {
			fb.edge(NodeUProfit, id, p.UnrealizedPnL)
		}

		fb.edge(id, NodeSink, p.MarketValue)
		if p.UnrealizedPnL < 0 {
			fb.edge(id, NodeULoss, -p.UnrealizedPnL)
			totalLosses -= p.UnrealizedPnL
		}
	}

	fb.node(NodeULoss, NodeULoss)
	fb.node(NodeSink, NodeSink)
	fb.edge(NodeCash, NodeSink, breakdown.Cash)

	// uLoss passes through to the sink so the sink receives market value
	// plus unrealized losses, and subtracting the uLoss flow recovers
	// market value exactly
	fb.edge(NodeULoss, NodeSink, totalLosses)

	graph := fb.build()

	if !checkFlowConservation(graph) {
		log.Error().Stack().Float64("Principal", principal).Msg("flow graph violates conservation")
	}

	return graph
}

// checkFlowConservation verifies every interior node's inflow equals its
// outflow within tolerance. Sources (no inflow) and sinks (no outflow) are
// exempt, as is the slack the minFlow display cutoff introduces.
func checkFlowConservation(graph *FlowGraph) bool {
	in := make(map[string]float64)
	out := make(map[string]float64)
	for _, e := range graph.Edges {
		out[e.Source] += e.Value
		in[e.Target] += e.Value
	}

	ok := true
	for _, n := range graph.Nodes {
		if in[n.ID] < minFlow || out[n.ID] < minFlow {
			continue
		}
		if !relEqual(in[n.ID], out[n.ID], 1e-4) {
			ok = false
		}
	}
	return ok
}
