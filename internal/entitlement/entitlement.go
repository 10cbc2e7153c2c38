// Copyright (c) 2026 XStream Media. All rights reserved.

// Package entitlement implements timed exclusive access: the per-user balance
// of usable watch time, the countdown engine that burns it down during active
// playback, and the access gate that decides whether premium content may play.
//
// # Model
//
// A viewer's entitlement is two independent clocks:
//
//   - Usable time: a budget of actual watch time. It only decreases while the
//     viewer is actively playing exclusive content.
//   - Validity window: a wall-clock deadline. Once it passes, any leftover
//     usable time is worthless.
//
// Both must be satisfied for access. Grants from approved top-ups RESET both
// clocks to the purchased tier's values; they never stack onto a previous
// balance.
package entitlement

import "time"

// Record is the persistent entitlement state for one account.
//
// # Lazy Zero
//
// Accounts without a row are treated as a zero Record (no time, no validity).
// Rows are only materialized by the first grant.
type Record struct {
	UserID            string     `json:"user_id"`
	RemainingUsableMs int64      `json:"remaining_usable_ms"`
	ValidityExpiry    *time.Time `json:"validity_expiry,omitempty"`
	Running           bool       `json:"running"`

	// LastReceiptID is the idempotency key of the installing grant. Nil when
	// never granted, or after the receipt was deleted from the audit trail
	// (the column is nullable with ON DELETE SET NULL).
	LastReceiptID *string   `json:"-"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Grant is the outcome of an approved top-up: the access package to install.
type Grant struct {
	ReceiptID      string
	UsableDuration time.Duration
	ValidityWindow time.Duration
}

// DenyReason is the machine-readable cause of a gate denial.
type DenyReason string

const (
	// DenyNone means access was allowed.
	DenyNone DenyReason = ""

	// DenyNoEntitlement means the account never received a grant.
	DenyNoEntitlement DenyReason = "NO_ENTITLEMENT"

	// DenyTimeExhausted means the usable time budget is spent.
	DenyTimeExhausted DenyReason = "TIME_EXHAUSTED"

	// DenyValidityExpired means the validity window has closed.
	DenyValidityExpired DenyReason = "VALIDITY_EXPIRED"
)

// Decision is the result of evaluating the access gate.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"deny_reason,omitempty"`
}

// Evaluate applies the access gate to a record at the given instant.
//
// # Fail Closed
//
// Every path that is not an explicit pass is a denial. A nil record (account
// never granted) denies with [DenyNoEntitlement].
func Evaluate(record *Record, now time.Time) Decision {
	if record == nil || record.ValidityExpiry == nil {
		return Decision{Allowed: false, Reason: DenyNoEntitlement}
	}
	if !now.Before(*record.ValidityExpiry) {
		return Decision{Allowed: false, Reason: DenyValidityExpired}
	}
	if record.RemainingUsableMs <= 0 {
		return Decision{Allowed: false, Reason: DenyTimeExhausted}
	}
	return Decision{Allowed: true}
}

// Snapshot is the point-in-time view of an entitlement pushed to clients.
//
// ServerTime lets clients render the countdown without trusting their own
// clock for the validity deadline.
type Snapshot struct {
	RemainingUsableMs int64      `json:"remaining_usable_ms"`
	ValidityExpiry    *time.Time `json:"validity_expiry,omitempty"`
	Running           bool       `json:"running"`
	Allowed           bool       `json:"allowed"`
	DenyReason        DenyReason `json:"deny_reason,omitempty"`
	ServerTime        time.Time  `json:"server_time"`
}

// SnapshotOf builds a client-facing snapshot from a record.
func SnapshotOf(record *Record, running bool, now time.Time) Snapshot {
	decision := Evaluate(record, now)
	snapshot := Snapshot{
		Running:    running,
		Allowed:    decision.Allowed,
		DenyReason: decision.Reason,
		ServerTime: now,
	}
	if record != nil {
		snapshot.RemainingUsableMs = record.RemainingUsableMs
		snapshot.ValidityExpiry = record.ValidityExpiry
	}
	return snapshot
}
