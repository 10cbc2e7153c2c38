// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"time"
)

// Store defines the persistence contract for entitlement records.
//
// # Implementations
//
// The canonical implementation is PostgreSQL. Tests use an in-memory fake.
type Store interface {
	// Find returns the entitlement record for the user.
	//
	// # Lazy Zero
	//
	// A user without a row gets a zero-valued Record, never an error. The row
	// is only materialized by the first grant.
	Find(ctx context.Context, userID string) (*Record, error)

	// Decrement atomically burns elapsed usable time, clamped at zero, and
	// returns the authoritative remaining balance.
	//
	// The clamp lives in SQL so that concurrent flushes from racing engines
	// can never drive the balance negative.
	Decrement(ctx context.Context, userID string, elapsedMs int64) (int64, error)

	// SetRunning persists the activity flag so that a restarted server knows
	// whether a viewing session was in flight.
	SetRunning(ctx context.Context, userID string, running bool) error
}

// Granter applies approved top-up grants. It is a separate contract because
// grants execute inside the receipt-approval transaction, not from the engine.
type Granter interface {
	// ApplyGrant installs the grant for the user, RESETTING both clocks to the
	// tier values. Re-applying the same receipt is a no-op (idempotent).
	ApplyGrant(ctx context.Context, userID string, grant Grant, now time.Time) error
}
