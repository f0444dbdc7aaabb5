package service

import (
	"context"
	"fmt"

	"wagerbook/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type wagerService struct {
	uowFactory UnitOfWorkFactory
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory UnitOfWorkFactory) WagerService {
	return &wagerService{
		uowFactory: uowFactory,
	}
}

// GetWager retrieves a wager by opaque or sequential ID
func (s *wagerService) GetWager(ctx context.Context, ref WagerReference) (*models.Wager, error) {
	if ref.OpaqueID != nil && ref.SequentialID != nil {
		return nil, ErrAmbiguousWagerReference
	}
	if ref.OpaqueID == nil && ref.SequentialID == nil {
		return nil, ErrMissingWagerReference
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return lookupWager(ctx, uow.WagerRepository(), ref)
}

// GetOperation retrieves a single operation
func (s *wagerService) GetOperation(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	operation, err := uow.OperationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	if operation == nil {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}

	return operation, nil
}

// ListWagerOperations returns the operation log of a wager, oldest first
func (s *wagerService) ListWagerOperations(ctx context.Context, wagerID uuid.UUID) ([]*models.Operation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, fmt.Errorf("%w: id %s", ErrWagerNotFound, wagerID)
	}

	operations, err := uow.OperationRepository().GetByWager(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get operations: %w", err)
	}

	return operations, nil
}

// ListUserWagers returns the wagers in a user's collection
func (s *wagerService) ListUserWagers(ctx context.Context, slackHandle string) ([]*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetBySlackHandle(ctx, slackHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, slackHandle)
	}

	wagers, err := uow.WagerRepository().GetByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wagers: %w", err)
	}

	return wagers, nil
}

// DeleteWager soft-deletes a wager and its offers. Its operations stay in the log.
func (s *wagerService) DeleteWager(ctx context.Context, wagerID uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return fmt.Errorf("%w: id %s", ErrWagerNotFound, wagerID)
	}

	if err := uow.WagerRepository().SoftDelete(ctx, wagerID); err != nil {
		return fmt.Errorf("failed to delete wager: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wagerId":           wager.ID,
		"wagerSequentialId": wager.SequentialID,
	}).Info("Wager deleted")

	return nil
}

// lookupWager resolves a wager reference, returning ErrWagerNotFound when nothing matches
func lookupWager(ctx context.Context, wagers WagerRepository, ref WagerReference) (*models.Wager, error) {
	if ref.OpaqueID != nil {
		id, err := uuid.Parse(*ref.OpaqueID)
		if err != nil {
			return nil, fmt.Errorf("%w: id %q", ErrWagerNotFound, *ref.OpaqueID)
		}
		wager, err := wagers.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get wager: %w", err)
		}
		if wager == nil {
			return nil, fmt.Errorf("%w: id %s", ErrWagerNotFound, id)
		}
		return wager, nil
	}

	wager, err := wagers.GetBySequentialID(ctx, *ref.SequentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, fmt.Errorf("%w: #%d", ErrWagerNotFound, *ref.SequentialID)
	}
	return wager, nil
}
