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

const wagerColumns = `
	id, sequential_id, outcome, status,
	maker_id, taker_id, arbiter_id,
	expiration, maturation,
	accepted_at, accepted_by_maker_at, accepted_by_taker_at, accepted_by_arbiter_at,
	rejected_at, cancelled_at, appealed_at, taken_at, completed_at, closed_at,
	rejected_by, cancelled_by, appealed_by, closed_by,
	created_at, updated_at, deleted_at`

const offerColumns = `id, wager_id, role, currency, amount_in_cents, description, created_at, deleted_at`

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

// CreateWithOffers inserts a wager and both of its offers in one statement. The
// generated ids, sequential id and timestamps are written back to wager.
func (r *WagerRepository) CreateWithOffers(ctx context.Context, wager *models.Wager) error {
	if wager.MakerOffer == nil || wager.TakerOffer == nil {
		return fmt.Errorf("wager requires both a maker and a taker offer")
	}

	query := `
		WITH new_wager AS (
			INSERT INTO wagers (outcome, status, expiration, maturation)
			VALUES ($1, $2, $3, $4)
			RETURNING id, sequential_id, created_at, updated_at
		),
		maker_offer AS (
			INSERT INTO offers (wager_id, role, currency, amount_in_cents, description)
			SELECT id, 'maker', $5::text, $6::bigint, $7::text FROM new_wager
			RETURNING id, created_at
		),
		taker_offer AS (
			INSERT INTO offers (wager_id, role, currency, amount_in_cents, description)
			SELECT id, 'taker', $8::text, $9::bigint, $10::text FROM new_wager
			RETURNING id, created_at
		)
		SELECT w.id, w.sequential_id, w.created_at, w.updated_at,
		       m.id, m.created_at, t.id, t.created_at
		FROM new_wager w, maker_offer m, taker_offer t
	`

	maker, taker := wager.MakerOffer, wager.TakerOffer
	err := r.q.QueryRow(ctx, query,
		wager.Outcome,
		wager.Status,
		wager.Expiration,
		wager.Maturation,
		maker.Currency,
		maker.AmountInCents,
		maker.Description,
		taker.Currency,
		taker.AmountInCents,
		taker.Description,
	).Scan(
		&wager.ID,
		&wager.SequentialID,
		&wager.CreatedAt,
		&wager.UpdatedAt,
		&maker.ID,
		&maker.CreatedAt,
		&taker.ID,
		&taker.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wager: %w", err)
	}

	maker.WagerID, maker.Role = wager.ID, models.OfferRoleMaker
	taker.WagerID, taker.Role = wager.ID, models.OfferRoleTaker

	return nil
}

// GetByID retrieves a live wager and its offers by ID
func (r *WagerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1 AND deleted_at IS NULL`

	wager, err := r.getOne(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %s: %w", id, err)
	}
	return wager, nil
}

// GetBySequentialID retrieves a live wager and its offers by sequential ID
func (r *WagerRepository) GetBySequentialID(ctx context.Context, sequentialID int64) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE sequential_id = $1 AND deleted_at IS NULL`

	wager, err := r.getOne(ctx, query, sequentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager #%d: %w", sequentialID, err)
	}
	return wager, nil
}

// GetByUser returns the live wagers in a user's collection, newest first
func (r *WagerRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE id IN (SELECT wager_id FROM user_wagers WHERE user_id = $1)
		  AND deleted_at IS NULL
		ORDER BY sequential_id DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wagers for user %s: %w", userID, err)
	}

	wagers, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Wager])
	if err != nil {
		return nil, fmt.Errorf("failed to scan wagers for user %s: %w", userID, err)
	}

	if err := r.attachOffers(ctx, wagers...); err != nil {
		return nil, err
	}
	return wagers, nil
}

// SetMaker sets the wager's maker reference
func (r *WagerRepository) SetMaker(ctx context.Context, wagerID, userID uuid.UUID) error {
	return r.setParticipant(ctx, "maker_id", wagerID, userID)
}

// SetTaker sets the wager's taker reference
func (r *WagerRepository) SetTaker(ctx context.Context, wagerID, userID uuid.UUID) error {
	return r.setParticipant(ctx, "taker_id", wagerID, userID)
}

// SetArbiter sets the wager's arbiter reference
func (r *WagerRepository) SetArbiter(ctx context.Context, wagerID, userID uuid.UUID) error {
	return r.setParticipant(ctx, "arbiter_id", wagerID, userID)
}

// SoftDelete marks a wager and its offers deleted
func (r *WagerRepository) SoftDelete(ctx context.Context, wagerID uuid.UUID) error {
	query := `
		WITH deleted_wager AS (
			UPDATE wagers
			SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING id
		),
		deleted_offers AS (
			UPDATE offers
			SET deleted_at = NOW()
			WHERE wager_id IN (SELECT id FROM deleted_wager) AND deleted_at IS NULL
		)
		SELECT COUNT(*) FROM deleted_wager
	`

	var deleted int64
	if err := r.q.QueryRow(ctx, query, wagerID).Scan(&deleted); err != nil {
		return fmt.Errorf("failed to delete wager %s: %w", wagerID, err)
	}
	if deleted == 0 {
		return fmt.Errorf("wager %s not found", wagerID)
	}
	return nil
}

// setParticipant writes one of the participant columns. column is always a constant.
func (r *WagerRepository) setParticipant(ctx context.Context, column string, wagerID, userID uuid.UUID) error {
	query := `UPDATE wagers SET ` + column + ` = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.q.Exec(ctx, query, wagerID, userID)
	if err != nil {
		return fmt.Errorf("failed to set %s on wager %s: %w", column, wagerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wager %s not found", wagerID)
	}
	return nil
}

// getOne returns nil without error when no row matches
func (r *WagerRepository) getOne(ctx context.Context, query string, arg any) (*models.Wager, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}

	wager, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Wager])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachOffers(ctx, wager); err != nil {
		return nil, err
	}
	return wager, nil
}

// attachOffers loads the live offers of the given wagers in one query
func (r *WagerRepository) attachOffers(ctx context.Context, wagers ...*models.Wager) error {
	if len(wagers) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.Wager, len(wagers))
	ids := make([]uuid.UUID, 0, len(wagers))
	for _, w := range wagers {
		byID[w.ID] = w
		ids = append(ids, w.ID)
	}

	query := `SELECT ` + offerColumns + ` FROM offers WHERE wager_id = ANY($1) AND deleted_at IS NULL`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query offers: %w", err)
	}

	offers, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Offer])
	if err != nil {
		return fmt.Errorf("failed to scan offers: %w", err)
	}

	for _, offer := range offers {
		wager, ok := byID[offer.WagerID]
		if !ok {
			continue
		}
		switch offer.Role {
		case models.OfferRoleMaker:
			wager.MakerOffer = offer
		case models.OfferRoleTaker:
			wager.TakerOffer = offer
		}
	}
	return nil
}
