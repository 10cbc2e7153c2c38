// Copyright (c) 2026 XStream Media. All rights reserved.

package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstreamhq/xstream/internal/entitlement"
	"github.com/xstreamhq/xstream/internal/platform/apperr"
	"github.com/xstreamhq/xstream/internal/platform/database/schema"
	"github.com/xstreamhq/xstream/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the receipt Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// receiptColumns is the canonical SELECT column list for billing.receipt.
func receiptColumns() string {
	t := schema.BillingReceipt
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		t.ID, t.UserID, t.Amount, t.Reference, t.ProofURL, t.Status,
		t.Remarks, t.ReviewedBy, t.ReviewedAt, t.CreatedAt, t.UpdatedAt,
	)
}

// scanReceipt maps one billing.receipt row onto the entity.
func scanReceipt(row interface{ Scan(...any) error }) (*Receipt, error) {
	receipt := &Receipt{}
	err := row.Scan(
		&receipt.ID,
		&receipt.UserID,
		&receipt.Amount,
		&receipt.Reference,
		&receipt.ProofURL,
		&receipt.Status,
		&receipt.Remarks,
		&receipt.ReviewedBy,
		&receipt.ReviewedAt,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Create persists a new receipt in the processing state.
func (repository *PostgresRepository) Create(ctx context.Context, receipt *Receipt) error {
	t := schema.BillingReceipt
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.Table, t.ID, t.UserID, t.Amount, t.Reference, t.ProofURL, t.Status, t.CreatedAt, t.UpdatedAt,
	)

	now := time.Now()
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		receipt.ID,
		receipt.UserID,
		receipt.Amount,
		receipt.Reference,
		receipt.ProofURL,
		receipt.Status,
		receipt.CreatedAt,
		receipt.UpdatedAt,
	)

	return dberr.Wrap(err, "create_receipt")
}

// FindByID returns the receipt with the given ID.
func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*Receipt, error) {
	t := schema.BillingReceipt
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, receiptColumns(), t.Table, t.ID)

	receipt, err := scanReceipt(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "find_receipt_by_id")
	}
	return receipt, nil
}

// ListByUser returns the user's receipts, newest first.
func (repository *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Receipt, int, error) {
	t := schema.BillingReceipt
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC
		LIMIT $2 OFFSET $3`,
		receiptColumns(), t.Table, t.UserID, t.CreatedAt,
	)

	return repository.queryPage(ctx, query, []any{userID}, limit, offset)
}

// List returns receipts across all users, narrowed by the filter.
func (repository *PostgresRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Receipt, int, error) {
	t := schema.BillingReceipt

	conditions := []string{}
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", t.Status, len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", t.UserID, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total
		FROM %s
		%s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		receiptColumns(), t.Table, where, t.CreatedAt, len(args)+1, len(args)+2,
	)
	return repository.queryPage(ctx, query, args, limit, offset)
}

// queryPage runs a paginated receipt query.
func (repository *PostgresRepository) queryPage(ctx context.Context, query string, args []any, limit, offset int) ([]*Receipt, int, error) {
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_receipts")
	}
	defer rows.Close()

	var receipts []*Receipt
	var total int
	for rows.Next() {
		receipt := &Receipt{}
		if err := rows.Scan(
			&receipt.ID,
			&receipt.UserID,
			&receipt.Amount,
			&receipt.Reference,
			&receipt.ProofURL,
			&receipt.Status,
			&receipt.Remarks,
			&receipt.ReviewedBy,
			&receipt.ReviewedAt,
			&receipt.CreatedAt,
			&receipt.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_receipt")
		}
		receipts = append(receipts, receipt)
	}

	return receipts, total, nil
}

// Approve marks a processing receipt approved and installs the grant
// atomically.
//
// # Transaction Shape
//
//  1. UPDATE the receipt with a processing-status guard. Zero rows means a
//     racing reviewer (or the submitter) got there first: Conflict.
//  2. Upsert the entitlement grant in the same transaction.
//
// Either both land or the transaction rolls back; an approved receipt without
// its granted time (or vice versa) cannot exist.
func (repository *PostgresRepository) Approve(ctx context.Context, receiptID, reviewerID string, grant entitlement.Grant) (*Receipt, error) {
	t := schema.BillingReceipt

	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return nil, dberr.Wrap(err, "approve_receipt_begin")
	}
	defer func() {
		_ = transaction.Rollback(ctx)
	}()

	now := time.Now()

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $4
		WHERE %s = $1 AND %s = $5
		RETURNING %s`,
		t.Table, t.Status, t.ReviewedBy, t.ReviewedAt, t.UpdatedAt,
		t.ID, t.Status,
		receiptColumns(),
	)

	receipt, err := scanReceipt(transaction.QueryRow(ctx, query,
		receiptID, StatusApproved, reviewerID, now, StatusProcessing,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.decisionConflict(ctx, receiptID)
		}
		return nil, dberr.Wrap(err, "approve_receipt_update")
	}

	if err := entitlement.ApplyGrantTx(ctx, transaction, receipt.UserID, grant, now); err != nil {
		return nil, err
	}

	if err := transaction.Commit(ctx); err != nil {
		return nil, dberr.Wrap(err, "approve_receipt_commit")
	}

	return receipt, nil
}

// Decide moves a processing receipt to rejected or cancelled.
func (repository *PostgresRepository) Decide(ctx context.Context, receiptID, reviewerID string, status Status, remarks string) (*Receipt, error) {
	t := schema.BillingReceipt
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $5
		WHERE %s = $1 AND %s = $6
		RETURNING %s`,
		t.Table, t.Status, t.Remarks, t.ReviewedBy, t.ReviewedAt, t.UpdatedAt,
		t.ID, t.Status,
		receiptColumns(),
	)

	receipt, err := scanReceipt(repository.pool.QueryRow(ctx, query,
		receiptID, status, remarks, reviewerID, time.Now(), StatusProcessing,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.decisionConflict(ctx, receiptID)
		}
		return nil, dberr.Wrap(err, "decide_receipt")
	}

	return receipt, nil
}

// Delete permanently removes a receipt row.
func (repository *PostgresRepository) Delete(ctx context.Context, receiptID string) error {
	t := schema.BillingReceipt
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.Table, t.ID)

	tag, err := repository.pool.Exec(ctx, query, receiptID)
	if err != nil {
		return dberr.Wrap(err, "delete_receipt")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Receipt")
	}
	return nil
}

// decisionConflict distinguishes "receipt does not exist" from "receipt was
// already decided" for a failed guarded update.
func (repository *PostgresRepository) decisionConflict(ctx context.Context, receiptID string) error {
	if _, err := repository.FindByID(ctx, receiptID); err != nil {
		return apperr.NotFound("Receipt")
	}
	return apperr.Conflict("Receipt has already been decided")
}
