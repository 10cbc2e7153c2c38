// Copyright (c) 2026 XStream Media. All rights reserved.

// Package receipt implements the manual top-up flow: viewers submit payment
// receipts, staff review them, and an approval installs the purchased access
// package atomically.
package receipt

import "time"

// Status is the review state of a submitted receipt.
type Status string

const (
	// StatusProcessing is the initial state: waiting for staff review.
	StatusProcessing Status = "processing"

	// StatusApproved means the payment checked out and access was granted.
	StatusApproved Status = "approved"

	// StatusRejected means the payment could not be verified.
	StatusRejected Status = "rejected"

	// StatusCancelled means the submission was withdrawn.
	StatusCancelled Status = "cancelled"
)

// ListFilter narrows the review console listing. Zero values mean "any".
type ListFilter struct {
	Status Status
	UserID string
}

// Receipt is one submitted payment proof.
//
// # Lifecycle
//
// processing -> approved | rejected | cancelled. Terminal states never
// transition again; every decision SQL carries a processing-status guard so
// racing reviewers cannot double-decide.
type Receipt struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Amount     int64      `json:"amount"`
	Reference  string     `json:"reference"`
	ProofURL   string     `json:"proof_url,omitempty"`
	Status     Status     `json:"status"`
	Remarks    string     `json:"remarks,omitempty"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
