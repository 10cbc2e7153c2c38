// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(2 * time.Hour)
	past := now.Add(-1 * time.Minute)

	tests := []struct {
		name       string
		record     *Record
		wantAllow  bool
		wantReason DenyReason
	}{
		{
			name:       "nil record denies",
			record:     nil,
			wantAllow:  false,
			wantReason: DenyNoEntitlement,
		},
		{
			name:       "never granted denies",
			record:     &Record{UserID: "u1"},
			wantAllow:  false,
			wantReason: DenyNoEntitlement,
		},
		{
			name:       "time and validity both live allows",
			record:     &Record{RemainingUsableMs: 60_000, ValidityExpiry: &future},
			wantAllow:  true,
			wantReason: DenyNone,
		},
		{
			name:       "zero balance denies even inside validity",
			record:     &Record{RemainingUsableMs: 0, ValidityExpiry: &future},
			wantAllow:  false,
			wantReason: DenyTimeExhausted,
		},
		{
			name:       "expired window denies even with balance left",
			record:     &Record{RemainingUsableMs: 3_600_000, ValidityExpiry: &past},
			wantAllow:  false,
			wantReason: DenyValidityExpired,
		},
		{
			name:       "expiry exactly now denies",
			record:     &Record{RemainingUsableMs: 60_000, ValidityExpiry: &now},
			wantAllow:  false,
			wantReason: DenyValidityExpired,
		},
		{
			name:       "negative balance denies",
			record:     &Record{RemainingUsableMs: -1, ValidityExpiry: &future},
			wantAllow:  false,
			wantReason: DenyTimeExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.record, now)
			assert.Equal(t, tt.wantAllow, decision.Allowed)
			assert.Equal(t, tt.wantReason, decision.Reason)
		})
	}
}

func TestSnapshotOf_NilRecord(t *testing.T) {
	now := time.Now()

	snapshot := SnapshotOf(nil, false, now)

	assert.False(t, snapshot.Allowed)
	assert.Equal(t, DenyNoEntitlement, snapshot.DenyReason)
	assert.Zero(t, snapshot.RemainingUsableMs)
	assert.Nil(t, snapshot.ValidityExpiry)
	assert.Equal(t, now, snapshot.ServerTime)
}
