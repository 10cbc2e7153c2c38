// Copyright (c) 2026 XStream Media. All rights reserved.

package receipt

import (
	"context"
	"log/slog"

	"github.com/xstreamhq/xstream/internal/billing/rate"
	"github.com/xstreamhq/xstream/internal/entitlement"
	"github.com/xstreamhq/xstream/internal/platform/apperr"
	"github.com/xstreamhq/xstream/internal/platform/validate"
	"github.com/xstreamhq/xstream/pkg/uuid"
)

// GrantNotifier lets the billing flow tell a live countdown engine that a
// fresh grant landed. The entitlement manager satisfies this.
type GrantNotifier interface {
	NotifyGrant(ctx context.Context, userID string)
}

// Service implements the top-up review use cases.
type Service struct {
	repo     Repository
	rates    *rate.Table
	notifier GrantNotifier
	logger   *slog.Logger
}

// NewService constructs a new receipt [Service].
func NewService(repo Repository, rates *rate.Table, notifier GrantNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		rates:    rates,
		notifier: notifier,
		logger:   logger,
	}
}

// SubmitInput holds a viewer's payment proof.
type SubmitInput struct {
	Amount    int64
	Reference string
	ProofURL  string
}

// Submit records a new receipt for staff review.
func (service *Service) Submit(ctx context.Context, userID string, input SubmitInput) (*Receipt, error) {
	validator := &validate.Validator{}
	validator.
		Positive("amount", input.Amount).
		Required("reference", input.Reference).MaxLen("reference", input.Reference, 128)
	if input.ProofURL != "" {
		validator.URL("proof_url", input.ProofURL)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    input.Amount,
		Reference: input.Reference,
		ProofURL:  input.ProofURL,
		Status:    StatusProcessing,
	}

	if err := service.repo.Create(ctx, receipt); err != nil {
		return nil, err
	}

	service.logger.Info("receipt_submitted",
		slog.String("receipt_id", receipt.ID),
		slog.String("user_id", userID),
		slog.Int64("amount", input.Amount),
	)
	return receipt, nil
}

// ListMine returns the viewer's own receipts, newest first.
func (service *Service) ListMine(ctx context.Context, userID string, limit, offset int) ([]*Receipt, int, error) {
	return service.repo.ListByUser(ctx, userID, limit, offset)
}

// Cancel withdraws the viewer's own pending receipt.
func (service *Service) Cancel(ctx context.Context, receiptID, userID string) (*Receipt, error) {
	receipt, err := service.repo.FindByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.UserID != userID {
		return nil, apperr.Forbidden("You can only cancel your own receipts")
	}

	return service.repo.Decide(ctx, receiptID, userID, StatusCancelled, "Withdrawn by submitter")
}

// ── Review console (admin) ───────────────────────────────────────────────────

// ListAll returns receipts across users for the review console, narrowed by
// status and submitter.
func (service *Service) ListAll(ctx context.Context, filter ListFilter, limit, offset int) ([]*Receipt, int, error) {
	if filter.Status != "" {
		valid := (&validate.Validator{}).OneOf("status", string(filter.Status),
			string(StatusProcessing), string(StatusApproved), string(StatusRejected), string(StatusCancelled))
		if err := valid.Err(); err != nil {
			return nil, 0, err
		}
	}
	return service.repo.List(ctx, filter, limit, offset)
}

// Approve verifies a receipt and installs the purchased access package.
//
// # Rate Resolution
//
// The paid amount resolves through the pricing table; off-menu amounts fall
// back to the base tier. The grant RESETS the viewer's clocks to the tier
// values; leftover time from an earlier grant does not carry over.
func (service *Service) Approve(ctx context.Context, receiptID, reviewerID string) (*Receipt, error) {
	receipt, err := service.repo.FindByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	tier, ok := service.rates.Lookup(receipt.Amount)
	if !ok {
		return nil, apperr.Unprocessable("No pricing tier is configured")
	}

	grant := entitlement.Grant{
		ReceiptID:      receipt.ID,
		UsableDuration: tier.UsableDuration,
		ValidityWindow: tier.ValidityWindow,
	}

	approved, err := service.repo.Approve(ctx, receiptID, reviewerID, grant)
	if err != nil {
		return nil, err
	}

	// A live engine picks the new balance up immediately; without one the
	// next activation reads storage anyway.
	service.notifier.NotifyGrant(ctx, approved.UserID)

	service.logger.Info("receipt_approved",
		slog.String("receipt_id", receiptID),
		slog.String("user_id", approved.UserID),
		slog.String("reviewer_id", reviewerID),
		slog.Int64("granted_ms", tier.UsableDuration.Milliseconds()),
	)
	return approved, nil
}

// Reject declines a receipt. Remarks are mandatory so the viewer knows why.
func (service *Service) Reject(ctx context.Context, receiptID, reviewerID, remarks string) (*Receipt, error) {
	if err := (&validate.Validator{}).Required("remarks", remarks).MaxLen("remarks", remarks, 500).Err(); err != nil {
		return nil, err
	}

	rejected, err := service.repo.Decide(ctx, receiptID, reviewerID, StatusRejected, remarks)
	if err != nil {
		return nil, err
	}

	service.logger.Info("receipt_rejected",
		slog.String("receipt_id", receiptID),
		slog.String("reviewer_id", reviewerID),
	)
	return rejected, nil
}

// CancelByReviewer withdraws a pending receipt on the submitter's behalf.
// Like rejections, staff cancellations carry mandatory remarks.
func (service *Service) CancelByReviewer(ctx context.Context, receiptID, reviewerID, remarks string) (*Receipt, error) {
	if err := (&validate.Validator{}).Required("remarks", remarks).MaxLen("remarks", remarks, 500).Err(); err != nil {
		return nil, err
	}

	cancelled, err := service.repo.Decide(ctx, receiptID, reviewerID, StatusCancelled, remarks)
	if err != nil {
		return nil, err
	}

	service.logger.Info("receipt_cancelled_by_staff",
		slog.String("receipt_id", receiptID),
		slog.String("reviewer_id", reviewerID),
	)
	return cancelled, nil
}

// Delete permanently removes a receipt from the audit trail.
func (service *Service) Delete(ctx context.Context, receiptID string) error {
	if err := service.repo.Delete(ctx, receiptID); err != nil {
		return err
	}
	service.logger.Info("receipt_deleted", slog.String("receipt_id", receiptID))
	return nil
}

// PriceTiers exposes the published pricing table.
func (service *Service) PriceTiers() []rate.Tier {
	return service.rates.Tiers()
}
