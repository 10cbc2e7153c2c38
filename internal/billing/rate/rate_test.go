// Copyright (c) 2026 XStream Media. All rights reserved.

package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ExactMatch(t *testing.T) {
	table := Default()

	tier, ok := table.Lookup(10)
	require.True(t, ok)
	assert.Equal(t, int64(10), tier.Price)
	assert.Equal(t, 7*time.Hour, tier.UsableDuration)
	assert.Equal(t, 48*time.Hour, tier.ValidityWindow)
}

func TestLookup_BaseTier(t *testing.T) {
	table := Default()

	tier, ok := table.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, 3*time.Hour, tier.UsableDuration)
	assert.Equal(t, 24*time.Hour, tier.ValidityWindow)
}

func TestLookup_UnmatchedAmountFallsBackToFirstTier(t *testing.T) {
	table := Default()

	// Off-menu amounts resolve to the cheapest package, even when overpaying.
	for _, amount := range []int64{1, 7, 9, 11, 100} {
		tier, ok := table.Lookup(amount)
		require.True(t, ok, "amount %d", amount)
		assert.Equal(t, int64(5), tier.Price, "amount %d", amount)
		assert.Equal(t, 3*time.Hour, tier.UsableDuration, "amount %d", amount)
	}
}

func TestLookup_EmptyTable(t *testing.T) {
	table := NewTable()

	_, ok := table.Lookup(5)
	assert.False(t, ok)
}

func TestTiers_ReturnsCopy(t *testing.T) {
	table := Default()

	tiers := table.Tiers()
	require.Len(t, tiers, 2)

	// Mutating the copy must not poison the table.
	tiers[0].Price = 999
	tier, ok := table.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, int64(5), tier.Price)
}
