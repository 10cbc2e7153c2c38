// Copyright (c) 2026 XStream Media. All rights reserved.

package receipt

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xstreamhq/xstream/internal/billing/rate"
	"github.com/xstreamhq/xstream/internal/entitlement"
	"github.com/xstreamhq/xstream/internal/platform/apperr"
)

// fakeRepository is an in-memory [Repository] double.
type fakeRepository struct {
	receipts map[string]*Receipt
	grants   []entitlement.Grant
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{receipts: make(map[string]*Receipt)}
}

func (repo *fakeRepository) Create(_ context.Context, receipt *Receipt) error {
	clone := *receipt
	repo.receipts[receipt.ID] = &clone
	return nil
}

func (repo *fakeRepository) FindByID(_ context.Context, id string) (*Receipt, error) {
	receipt, ok := repo.receipts[id]
	if !ok {
		return nil, apperr.NotFound("Receipt")
	}
	clone := *receipt
	return &clone, nil
}

func (repo *fakeRepository) ListByUser(_ context.Context, userID string, _, _ int) ([]*Receipt, int, error) {
	var out []*Receipt
	for _, receipt := range repo.receipts {
		if receipt.UserID == userID {
			out = append(out, receipt)
		}
	}
	return out, len(out), nil
}

func (repo *fakeRepository) List(_ context.Context, filter ListFilter, _, _ int) ([]*Receipt, int, error) {
	var out []*Receipt
	for _, receipt := range repo.receipts {
		if filter.Status != "" && receipt.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && receipt.UserID != filter.UserID {
			continue
		}
		out = append(out, receipt)
	}
	return out, len(out), nil
}

func (repo *fakeRepository) Delete(_ context.Context, receiptID string) error {
	if _, ok := repo.receipts[receiptID]; !ok {
		return apperr.NotFound("Receipt")
	}
	delete(repo.receipts, receiptID)
	return nil
}

func (repo *fakeRepository) Approve(_ context.Context, receiptID, reviewerID string, grant entitlement.Grant) (*Receipt, error) {
	receipt, ok := repo.receipts[receiptID]
	if !ok {
		return nil, apperr.NotFound("Receipt")
	}
	if receipt.Status != StatusProcessing {
		return nil, apperr.Conflict("Receipt has already been decided")
	}
	now := time.Now()
	receipt.Status = StatusApproved
	receipt.ReviewedBy = &reviewerID
	receipt.ReviewedAt = &now
	repo.grants = append(repo.grants, grant)
	clone := *receipt
	return &clone, nil
}

func (repo *fakeRepository) Decide(_ context.Context, receiptID, reviewerID string, status Status, remarks string) (*Receipt, error) {
	receipt, ok := repo.receipts[receiptID]
	if !ok {
		return nil, apperr.NotFound("Receipt")
	}
	if receipt.Status != StatusProcessing {
		return nil, apperr.Conflict("Receipt has already been decided")
	}
	now := time.Now()
	receipt.Status = status
	receipt.Remarks = remarks
	receipt.ReviewedBy = &reviewerID
	receipt.ReviewedAt = &now
	clone := *receipt
	return &clone, nil
}

// fakeNotifier records grant notifications.
type fakeNotifier struct {
	notified []string
}

func (notifier *fakeNotifier) NotifyGrant(_ context.Context, userID string) {
	notifier.notified = append(notifier.notified, userID)
}

func newTestService() (*Service, *fakeRepository, *fakeNotifier) {
	repo := newFakeRepository()
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, rate.Default(), notifier, logger), repo, notifier
}

func submitProcessing(t *testing.T, service *Service, userID string, amount int64) *Receipt {
	t.Helper()
	receipt, err := service.Submit(context.Background(), userID, SubmitInput{
		Amount:    amount,
		Reference: "GCASH-REF-001",
	})
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, receipt.Status)
	return receipt
}

func TestSubmit_Validation(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.Submit(context.Background(), "viewer-1", SubmitInput{Amount: 0, Reference: "x"})
	assert.Error(t, err, "zero amount must fail")

	_, err = service.Submit(context.Background(), "viewer-1", SubmitInput{Amount: 5})
	assert.Error(t, err, "missing reference must fail")

	_, err = service.Submit(context.Background(), "viewer-1", SubmitInput{
		Amount: 5, Reference: "ref", ProofURL: "not-a-url",
	})
	assert.Error(t, err, "malformed proof URL must fail")
}

func TestApprove_GrantsTierPackage(t *testing.T) {
	service, repo, notifier := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 10)

	approved, err := service.Approve(context.Background(), receipt.ID, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "admin-1", *approved.ReviewedBy)

	require.Len(t, repo.grants, 1)
	grant := repo.grants[0]
	assert.Equal(t, receipt.ID, grant.ReceiptID)
	assert.Equal(t, 7*time.Hour, grant.UsableDuration)
	assert.Equal(t, 48*time.Hour, grant.ValidityWindow)

	assert.Equal(t, []string{"viewer-1"}, notifier.notified)
}

func TestApprove_OffMenuAmountGrantsBaseTier(t *testing.T) {
	service, repo, _ := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 37)

	_, err := service.Approve(context.Background(), receipt.ID, "admin-1")
	require.NoError(t, err)

	require.Len(t, repo.grants, 1)
	assert.Equal(t, 3*time.Hour, repo.grants[0].UsableDuration)
	assert.Equal(t, 24*time.Hour, repo.grants[0].ValidityWindow)
}

func TestApprove_SecondDecisionConflicts(t *testing.T) {
	service, repo, notifier := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 5)

	_, err := service.Approve(context.Background(), receipt.ID, "admin-1")
	require.NoError(t, err)

	_, err = service.Approve(context.Background(), receipt.ID, "admin-2")
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "CONFLICT", appError.Code)

	// Exactly one grant landed and exactly one notification fired.
	assert.Len(t, repo.grants, 1)
	assert.Len(t, notifier.notified, 1)
}

func TestReject_RequiresRemarks(t *testing.T) {
	service, _, _ := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 5)

	_, err := service.Reject(context.Background(), receipt.ID, "admin-1", "")
	assert.Error(t, err)

	rejected, err := service.Reject(context.Background(), receipt.ID, "admin-1", "Reference not found in ledger")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "Reference not found in ledger", rejected.Remarks)
}

func TestCancel_OwnershipEnforced(t *testing.T) {
	service, _, _ := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 5)

	_, err := service.Cancel(context.Background(), receipt.ID, "viewer-2")
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "FORBIDDEN", appError.Code)

	cancelled, err := service.Cancel(context.Background(), receipt.ID, "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancelByReviewer_RequiresRemarks(t *testing.T) {
	service, _, _ := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 5)

	_, err := service.CancelByReviewer(context.Background(), receipt.ID, "admin-1", "")
	assert.Error(t, err)

	cancelled, err := service.CancelByReviewer(context.Background(), receipt.ID, "admin-1", "Submitted twice")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestReject_AfterApproveConflicts(t *testing.T) {
	service, _, _ := newTestService()
	receipt := submitProcessing(t, service, "viewer-1", 5)

	_, err := service.Approve(context.Background(), receipt.ID, "admin-1")
	require.NoError(t, err)

	_, err = service.Reject(context.Background(), receipt.ID, "admin-1", "changed my mind")
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "CONFLICT", appError.Code)
}
