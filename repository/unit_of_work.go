package repository

import (
	"context"
	"errors"
	"fmt"

	"wagerbook/database"
	"wagerbook/events"
	"wagerbook/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	txOptions        pgx.TxOptions
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	wagerRepo        service.WagerRepository
	operationRepo    service.OperationRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus, txOptions pgx.TxOptions) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:        db,
		eventBus:  eventBus,
		txOptions: txOptions,
	}
}

type unitOfWorkFactory struct {
	db        *database.DB
	eventBus  *events.Bus
	txOptions pgx.TxOptions
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		txOptions:        f.txOptions,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, u.txOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Repositories share one connection; the service queries them concurrently
	q := newLockedQueryable(tx)
	u.userRepo = newUserRepositoryWithTx(q)
	u.wagerRepo = newWagerRepositoryWithTx(q)
	u.operationRepo = newOperationRepositoryWithTx(q)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	// The request context may already be cancelled; the rollback must still reach the server
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// WagerRepository returns the wager repository for this unit of work
func (u *unitOfWork) WagerRepository() service.WagerRepository {
	if u.wagerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.wagerRepo
}

// OperationRepository returns the operation repository for this unit of work
func (u *unitOfWork) OperationRepository() service.OperationRepository {
	if u.operationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.operationRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
