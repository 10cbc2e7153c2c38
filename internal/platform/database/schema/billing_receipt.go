// Copyright (c) 2026 XStream Media. All rights reserved.

package schema

// BillingReceiptTable represents the 'billing.receipt' table
type BillingReceiptTable struct {
	Table      string
	ID         string
	UserID     string
	Amount     string
	Reference  string
	ProofURL   string
	Status     string
	Remarks    string
	ReviewedBy string
	ReviewedAt string
	CreatedAt  string
	UpdatedAt  string
}

// BillingReceipt is the schema definition for billing.receipt
var BillingReceipt = BillingReceiptTable{
	Table:      "billing.receipt",
	ID:         "id",
	UserID:     "userid",
	Amount:     "amount",
	Reference:  "reference",
	ProofURL:   "proofurl",
	Status:     "status",
	Remarks:    "remarks",
	ReviewedBy: "reviewedby",
	ReviewedAt: "reviewedat",
	CreatedAt:  "createdat",
	UpdatedAt:  "updatedat",
}

// Columns returns all standard column names
func (t BillingReceiptTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.Amount, t.Reference, t.ProofURL, t.Status, t.Remarks, t.ReviewedBy, t.ReviewedAt, t.CreatedAt, t.UpdatedAt,
	}
}
