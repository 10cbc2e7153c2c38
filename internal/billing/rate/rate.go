// Copyright (c) 2026 XStream Media. All rights reserved.

// Package rate defines the top-up pricing table: how a paid amount converts
// into timed exclusive access.
package rate

import "time"

// Tier maps one price point to the access it buys.
//
// # Semantics
//   - UsableDuration is actual watch time: it only burns down while the
//     viewer is actively playing exclusive content.
//   - ValidityWindow is the wall-clock deadline: whatever usable time is left
//     becomes worthless once the window closes.
type Tier struct {
	Price          int64         `json:"price"`
	UsableDuration time.Duration `json:"usable_duration"`
	ValidityWindow time.Duration `json:"validity_window"`
}

// Table is an ordered set of price tiers.
//
// # Fallback Rule
//
// Amounts that match no tier exactly resolve to the first (cheapest) tier.
// Overpaying off-menu therefore never buys more than the base package; the
// published price points are the only way to get the larger bundles.
type Table struct {
	tiers []Tier
}

// NewTable builds a pricing table from the given tiers. The first tier doubles
// as the fallback for unmatched amounts, so order matters.
func NewTable(tiers ...Tier) *Table {
	return &Table{tiers: tiers}
}

// Default returns the standard XStream pricing table.
func Default() *Table {
	return NewTable(
		Tier{Price: 5, UsableDuration: 3 * time.Hour, ValidityWindow: 24 * time.Hour},
		Tier{Price: 10, UsableDuration: 7 * time.Hour, ValidityWindow: 48 * time.Hour},
	)
}

// Lookup resolves a paid amount to its tier.
//
// Exact price matches win; anything else falls back to the first tier.
// Returns false only when the table is empty.
func (table *Table) Lookup(amount int64) (Tier, bool) {
	if len(table.tiers) == 0 {
		return Tier{}, false
	}

	for _, tier := range table.tiers {
		if tier.Price == amount {
			return tier, true
		}
	}

	return table.tiers[0], true
}

// Tiers returns a copy of the published price points, for the pricing endpoint.
func (table *Table) Tiers() []Tier {
	out := make([]Tier, len(table.tiers))
	copy(out, table.tiers)
	return out
}
