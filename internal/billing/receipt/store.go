// Copyright (c) 2026 XStream Media. All rights reserved.

package receipt

import (
	"context"

	"github.com/xstreamhq/xstream/internal/entitlement"
)

// Repository defines the data access contract for receipts.
type Repository interface {
	// Create persists a new receipt in the processing state.
	Create(ctx context.Context, receipt *Receipt) error

	// FindByID returns the receipt with the given ID.
	FindByID(ctx context.Context, id string) (*Receipt, error)

	// ListByUser returns the user's receipts, newest first, with total count.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Receipt, int, error)

	// List returns receipts across all users, narrowed by the filter, newest
	// first, with total count. Intended for the review console.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Receipt, int, error)

	// Approve marks a processing receipt approved AND installs the grant in
	// one transaction: either both land or neither does.
	//
	// Returns [apperr.Conflict] if the receipt is not in the processing state.
	Approve(ctx context.Context, receiptID, reviewerID string, grant entitlement.Grant) (*Receipt, error)

	// Decide moves a processing receipt to a terminal non-approved state
	// (rejected or cancelled) with reviewer remarks.
	//
	// Returns [apperr.Conflict] if the receipt is not in the processing state.
	Decide(ctx context.Context, receiptID, reviewerID string, status Status, remarks string) (*Receipt, error)

	// Delete permanently removes a receipt. Entitlement rows referencing it
	// keep their balance; only the audit row disappears.
	Delete(ctx context.Context, receiptID string) error
}
