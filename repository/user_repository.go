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

const userColumns = `id, slack_handle, created_at, updated_at, deleted_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// FindOrCreate returns the live user with the given slack handle, inserting it if absent.
// Concurrent callers racing on the same handle converge on one row through the partial
// unique index; created is true only for the caller whose insert won.
func (r *UserRepository) FindOrCreate(ctx context.Context, slackHandle string) (*models.User, bool, error) {
	query := `
		INSERT INTO users (slack_handle)
		VALUES ($1)
		ON CONFLICT (slack_handle) WHERE deleted_at IS NULL
		DO UPDATE SET slack_handle = EXCLUDED.slack_handle
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	var user models.User
	var inserted bool
	err := r.q.QueryRow(ctx, query, slackHandle).Scan(
		&user.ID,
		&user.SlackHandle,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find or create user %s: %w", slackHandle, err)
	}

	return &user, inserted, nil
}

// GetBySlackHandle retrieves a live user by slack handle
func (r *UserRepository) GetBySlackHandle(ctx context.Context, slackHandle string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE slack_handle = $1 AND deleted_at IS NULL`

	user, err := r.getOne(ctx, query, slackHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by slack handle %s: %w", slackHandle, err)
	}
	return user, nil
}

// AddWager adds a wager to the user's collection. Adding it twice is a no-op.
func (r *UserRepository) AddWager(ctx context.Context, userID, wagerID uuid.UUID) error {
	query := `
		INSERT INTO user_wagers (user_id, wager_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, wager_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, userID, wagerID); err != nil {
		return fmt.Errorf("failed to add wager %s to user %s: %w", wagerID, userID, err)
	}
	return nil
}

// getOne returns nil without error when no row matches
func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
