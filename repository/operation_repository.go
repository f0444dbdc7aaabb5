package repository

import (
	"context"
	"errors"
	"fmt"

	"wagerbook/database"
	"wagerbook/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const operationColumns = `id, type, user_id, wager_id, created_at`

// OperationRepository implements the OperationRepository interface
type OperationRepository struct {
	q queryable
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *database.DB) *OperationRepository {
	return &OperationRepository{q: db.Pool}
}

// newOperationRepositoryWithTx creates a new operation repository with a transaction
func newOperationRepositoryWithTx(tx queryable) *OperationRepository {
	return &OperationRepository{q: tx}
}

// Create inserts an unlinked operation and writes back its ID and creation time
func (r *OperationRepository) Create(ctx context.Context, operation *models.Operation) error {
	query := `
		INSERT INTO operations (type)
		VALUES ($1)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, operation.Type).Scan(&operation.ID, &operation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s operation: %w", operation.Type, err)
	}
	return nil
}

// LinkUser links an operation to the acting user
func (r *OperationRepository) LinkUser(ctx context.Context, operationID, userID uuid.UUID) error {
	return r.link(ctx, "user_id", operationID, userID)
}

// LinkWager links an operation to the wager it acts on
func (r *OperationRepository) LinkWager(ctx context.Context, operationID, wagerID uuid.UUID) error {
	return r.link(ctx, "wager_id", operationID, wagerID)
}

// GetByID retrieves an operation by ID
func (r *OperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation %s: %w", id, err)
	}

	operation, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Operation])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan operation %s: %w", id, err)
	}
	return operation, nil
}

// GetByWager returns the operations recorded against a wager, oldest first
func (r *OperationRepository) GetByWager(ctx context.Context, wagerID uuid.UUID) ([]*models.Operation, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE wager_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations for wager %s: %w", wagerID, err)
	}

	operations, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Operation])
	if err != nil {
		return nil, fmt.Errorf("failed to scan operations for wager %s: %w", wagerID, err)
	}
	return operations, nil
}

func (r *OperationRepository) link(ctx context.Context, column string, operationID, targetID uuid.UUID) error {
	query := `UPDATE operations SET ` + column + ` = $2 WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, operationID, targetID)
	if err != nil {
		return fmt.Errorf("failed to set %s on operation %s: %w", column, operationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operation %s not found", operationID)
	}
	return nil
}
