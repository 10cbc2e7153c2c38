// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstreamhq/xstream/internal/platform/database/schema"
	"github.com/xstreamhq/xstream/internal/platform/dberr"
)

// Execer is the minimal query surface shared by [pgxpool.Pool] and [pgx.Tx].
// It lets grant SQL run either standalone or inside the receipt-approval
// transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements [Store] and [Granter] on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL entitlement store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Find returns the entitlement record for the user, or a zero record if the
// user has never been granted access.
func (store *PostgresStore) Find(ctx context.Context, userID string) (*Record, error) {
	t := schema.UserEntitlement
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1`,
		t.UserID, t.RemainingUsableMs, t.ValidityExpiry, t.Running, t.LastReceiptID, t.UpdatedAt,
		t.Table, t.UserID,
	)

	record := &Record{}
	err := store.pool.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.RemainingUsableMs,
		&record.ValidityExpiry,
		&record.Running,
		&record.LastReceiptID,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lazy zero: never-granted accounts simply have nothing.
			return &Record{UserID: userID}, nil
		}
		return nil, dberr.Wrap(err, "find_entitlement")
	}

	return record, nil
}

// Decrement atomically burns elapsed usable time, clamped at zero.
func (store *PostgresStore) Decrement(ctx context.Context, userID string, elapsedMs int64) (int64, error) {
	t := schema.UserEntitlement
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = GREATEST(0, %s - $2), %s = NOW()
		WHERE %s = $1
		RETURNING %s`,
		t.Table, t.RemainingUsableMs, t.RemainingUsableMs, t.UpdatedAt,
		t.UserID, t.RemainingUsableMs,
	)

	var remaining int64
	err := store.pool.QueryRow(ctx, query, userID, elapsedMs).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row means no balance. Nothing to burn.
			return 0, nil
		}
		return 0, dberr.Wrap(err, "decrement_entitlement")
	}

	return remaining, nil
}

// SetRunning persists the activity flag.
func (store *PostgresStore) SetRunning(ctx context.Context, userID string, running bool) error {
	t := schema.UserEntitlement
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		t.Table, t.Running, t.UpdatedAt, t.UserID)

	_, err := store.pool.Exec(ctx, query, userID, running)
	return dberr.Wrap(err, "set_entitlement_running")
}

// ApplyGrant installs the grant using the store's own pool.
func (store *PostgresStore) ApplyGrant(ctx context.Context, userID string, grant Grant, now time.Time) error {
	return ApplyGrantTx(ctx, store.pool, userID, grant, now)
}

// ApplyGrantTx installs a grant through any [Execer], letting the caller run
// it inside a larger transaction (receipt approval).
//
// # Semantics
//   - Both clocks RESET to the tier values. Leftovers never stack.
//   - The viewing flag clears: a fresh grant starts paused.
//   - Re-applying the receipt already recorded on the row is a no-op, which
//     makes duplicate approvals harmless.
func ApplyGrantTx(ctx context.Context, db Execer, userID string, grant Grant, now time.Time) error {
	t := schema.UserEntitlement
	query := fmt.Sprintf(`
		INSERT INTO %s AS e (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, FALSE, $4, $5)
		ON CONFLICT (%s) DO UPDATE
		SET %s = EXCLUDED.%s,
		    %s = EXCLUDED.%s,
		    %s = FALSE,
		    %s = EXCLUDED.%s,
		    %s = EXCLUDED.%s
		WHERE e.%s IS DISTINCT FROM EXCLUDED.%s`,
		t.Table, t.UserID, t.RemainingUsableMs, t.ValidityExpiry, t.Running, t.LastReceiptID, t.UpdatedAt,
		t.UserID,
		t.RemainingUsableMs, t.RemainingUsableMs,
		t.ValidityExpiry, t.ValidityExpiry,
		t.Running,
		t.LastReceiptID, t.LastReceiptID,
		t.UpdatedAt, t.UpdatedAt,
		t.LastReceiptID, t.LastReceiptID,
	)

	expiry := now.Add(grant.ValidityWindow)
	_, err := db.Exec(ctx, query,
		userID,
		grant.UsableDuration.Milliseconds(),
		expiry,
		grant.ReceiptID,
		now,
	)

	return dberr.Wrap(err, "apply_entitlement_grant")
}
