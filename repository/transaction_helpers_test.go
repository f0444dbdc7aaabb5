package repository

import (
	"context"
	"testing"

	"wagerbook/models"
	"wagerbook/repository/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// commitTx runs fn on one transaction and returns the commit error. Wager and
// operation links are checked at commit, so rows created piecemeal must share a transaction.
func commitTx(t *testing.T, testDB *testutil.TestDatabase, fn func(ctx context.Context, tx pgx.Tx)) error {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.DB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	fn(ctx, tx)
	return tx.Commit(ctx)
}

// createWagerWithMaker commits a wager, its offers and its maker together
func createWagerWithMaker(t *testing.T, testDB *testutil.TestDatabase, wager *models.Wager, makerID uuid.UUID) {
	t.Helper()
	require.NoError(t, commitTx(t, testDB, func(ctx context.Context, tx pgx.Tx) {
		wagers := newWagerRepositoryWithTx(tx)
		require.NoError(t, wagers.CreateWithOffers(ctx, wager))
		require.NoError(t, wagers.SetMaker(ctx, wager.ID, makerID))
	}))
	wager.MakerID = &makerID
}

// createLinkedOperation commits an operation linked to a user and a wager
func createLinkedOperation(t *testing.T, testDB *testutil.TestDatabase, opType models.OperationType, userID, wagerID uuid.UUID) *models.Operation {
	t.Helper()
	operation := &models.Operation{Type: opType}
	require.NoError(t, commitTx(t, testDB, func(ctx context.Context, tx pgx.Tx) {
		operations := newOperationRepositoryWithTx(tx)
		require.NoError(t, operations.Create(ctx, operation))
		require.NoError(t, operations.LinkUser(ctx, operation.ID, userID))
		require.NoError(t, operations.LinkWager(ctx, operation.ID, wagerID))
	}))
	return operation
}
