// Copyright (c) 2026 XStream Media. All rights reserved.

package schema

// UserEntitlementTable represents the 'users.entitlement' table.
//
// One row per account, keyed by the owning user. Durations are stored in
// whole milliseconds so countdown flushes never lose sub-second precision.
type UserEntitlementTable struct {
	Table             string
	UserID            string
	RemainingUsableMs string
	ValidityExpiry    string
	Running           string
	LastReceiptID     string
	UpdatedAt         string
}

// UserEntitlement is the schema definition for users.entitlement
var UserEntitlement = UserEntitlementTable{
	Table:             "users.entitlement",
	UserID:            "userid",
	RemainingUsableMs: "remainingusablems",
	ValidityExpiry:    "validityexpiry",
	Running:           "running",
	LastReceiptID:     "lastreceiptid",
	UpdatedAt:         "updatedat",
}

// Columns returns all standard column names
func (t UserEntitlementTable) Columns() []string {
	return []string{
		t.UserID, t.RemainingUsableMs, t.ValidityExpiry, t.Running, t.LastReceiptID, t.UpdatedAt,
	}
}
