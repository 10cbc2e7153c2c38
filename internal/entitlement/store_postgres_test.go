// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Deleting an approved receipt from the audit trail sets the grantee's
// lastreceiptid column to NULL. The scan target Find uses for that column must
// accept NULL, or the grantee loses access to their remaining balance.
func TestFind_ReceiptColumnScansNull(t *testing.T) {
	typeMap := pgtype.NewMap()
	record := &Record{}

	err := typeMap.Scan(pgtype.UUIDOID, pgtype.TextFormatCode, nil, &record.LastReceiptID)
	require.NoError(t, err)
	assert.Nil(t, record.LastReceiptID)
}

// A populated column still round-trips into the same target.
func TestFind_ReceiptColumnScansValue(t *testing.T) {
	typeMap := pgtype.NewMap()
	record := &Record{}

	err := typeMap.Scan(pgtype.UUIDOID, pgtype.TextFormatCode,
		[]byte("0195b2f4-8b1a-7c3d-9e5f-6a7b8c9d0e1f"), &record.LastReceiptID)
	require.NoError(t, err)
	require.NotNil(t, record.LastReceiptID)
	assert.Equal(t, "0195b2f4-8b1a-7c3d-9e5f-6a7b8c9d0e1f", *record.LastReceiptID)
}
