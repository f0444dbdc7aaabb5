package service

import (
	"context"

	"wagerbook/events"
	"wagerbook/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// FindOrCreate returns the user with the given slack handle, creating it if absent.
	// created reports whether the row was inserted by this call.
	FindOrCreate(ctx context.Context, slackHandle string) (user *models.User, created bool, err error)

	// GetBySlackHandle retrieves a user by slack handle
	GetBySlackHandle(ctx context.Context, slackHandle string) (*models.User, error)

	// AddWager adds a wager to the user's collection
	AddWager(ctx context.Context, userID, wagerID uuid.UUID) error
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// CreateWithOffers creates a wager together with its maker and taker offers
	CreateWithOffers(ctx context.Context, wager *models.Wager) error

	// GetByID retrieves a wager and its offers by opaque ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wager, error)

	// GetBySequentialID retrieves a wager and its offers by its human-readable number
	GetBySequentialID(ctx context.Context, sequentialID int64) (*models.Wager, error)

	// GetByUser returns the wagers in a user's collection
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Wager, error)

	// SetMaker sets the wager's maker reference
	SetMaker(ctx context.Context, wagerID, userID uuid.UUID) error

	// SetTaker sets the wager's taker reference
	SetTaker(ctx context.Context, wagerID, userID uuid.UUID) error

	// SetArbiter sets the wager's arbiter reference
	SetArbiter(ctx context.Context, wagerID, userID uuid.UUID) error

	// SoftDelete marks a wager and its offers deleted
	SoftDelete(ctx context.Context, wagerID uuid.UUID) error
}

// OperationRepository defines the interface for the append-only operation log
type OperationRepository interface {
	// Create inserts an unlinked operation of the given type
	Create(ctx context.Context, operation *models.Operation) error

	// LinkUser links an operation to the acting user
	LinkUser(ctx context.Context, operationID, userID uuid.UUID) error

	// LinkWager links an operation to the wager it acts on
	LinkWager(ctx context.Context, operationID, wagerID uuid.UUID) error

	// GetByID retrieves an operation by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Operation, error)

	// GetByWager returns the operations recorded against a wager, oldest first
	GetByWager(ctx context.Context, wagerID uuid.UUID) ([]*models.Operation, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// OperationMetrics receives the outcome of every submitted operation
type OperationMetrics interface {
	OperationSubmitted(opType models.OperationType, result string)
}

// OperationService defines the interface for submitting operations
type OperationService interface {
	// SubmitOperation validates the request and applies it in a single transaction
	SubmitOperation(ctx context.Context, req *OperationRequest) (*models.Operation, error)
}

// WagerService defines the interface for reading and retiring wagers
type WagerService interface {
	// GetWager retrieves a wager by opaque or sequential ID
	GetWager(ctx context.Context, ref WagerReference) (*models.Wager, error)

	// GetOperation retrieves a single operation
	GetOperation(ctx context.Context, id uuid.UUID) (*models.Operation, error)

	// ListWagerOperations returns the operation log of a wager
	ListWagerOperations(ctx context.Context, wagerID uuid.UUID) ([]*models.Operation, error)

	// ListUserWagers returns the wagers in a user's collection
	ListUserWagers(ctx context.Context, slackHandle string) ([]*models.Wager, error)

	// DeleteWager soft-deletes a wager
	DeleteWager(ctx context.Context, wagerID uuid.UUID) error
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	WagerRepository() WagerRepository
	OperationRepository() OperationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
