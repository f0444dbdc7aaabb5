package service

import (
	"context"

	"wagerbook/events"
	"wagerbook/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindOrCreate(ctx context.Context, slackHandle string) (*models.User, bool, error) {
	args := m.Called(ctx, slackHandle)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) GetBySlackHandle(ctx context.Context, slackHandle string) (*models.User, error) {
	args := m.Called(ctx, slackHandle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) AddWager(ctx context.Context, userID, wagerID uuid.UUID) error {
	args := m.Called(ctx, userID, wagerID)
	return args.Error(0)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) CreateWithOffers(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetBySequentialID(ctx context.Context, sequentialID int64) (*models.Wager, error) {
	args := m.Called(ctx, sequentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Wager, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) SetMaker(ctx context.Context, wagerID, userID uuid.UUID) error {
	args := m.Called(ctx, wagerID, userID)
	return args.Error(0)
}

func (m *MockWagerRepository) SetTaker(ctx context.Context, wagerID, userID uuid.UUID) error {
	args := m.Called(ctx, wagerID, userID)
	return args.Error(0)
}

func (m *MockWagerRepository) SetArbiter(ctx context.Context, wagerID, userID uuid.UUID) error {
	args := m.Called(ctx, wagerID, userID)
	return args.Error(0)
}

func (m *MockWagerRepository) SoftDelete(ctx context.Context, wagerID uuid.UUID) error {
	args := m.Called(ctx, wagerID)
	return args.Error(0)
}

// MockOperationRepository is a mock implementation of OperationRepository
type MockOperationRepository struct {
	mock.Mock
}

func (m *MockOperationRepository) Create(ctx context.Context, operation *models.Operation) error {
	args := m.Called(ctx, operation)
	return args.Error(0)
}

func (m *MockOperationRepository) LinkUser(ctx context.Context, operationID, userID uuid.UUID) error {
	args := m.Called(ctx, operationID, userID)
	return args.Error(0)
}

func (m *MockOperationRepository) LinkWager(ctx context.Context, operationID, wagerID uuid.UUID) error {
	args := m.Called(ctx, operationID, wagerID)
	return args.Error(0)
}

func (m *MockOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Operation), args.Error(1)
}

func (m *MockOperationRepository) GetByWager(ctx context.Context, wagerID uuid.UUID) ([]*models.Operation, error) {
	args := m.Called(ctx, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Operation), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockOperationMetrics is a mock implementation of OperationMetrics
type MockOperationMetrics struct {
	mock.Mock
}

func (m *MockOperationMetrics) OperationSubmitted(opType models.OperationType, result string) {
	m.Called(opType, result)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Transaction control is
// mocked; repositories are fixed with SetRepositories.
type MockUnitOfWork struct {
	mock.Mock
	userRepo      UserRepository
	wagerRepo     WagerRepository
	operationRepo OperationRepository
	eventBus      EventPublisher
}

// SetRepositories configures the repositories returned by the unit of work
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, wagerRepo WagerRepository, operationRepo OperationRepository, eventBus EventPublisher) {
	m.userRepo = userRepo
	m.wagerRepo = wagerRepo
	m.operationRepo = operationRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) WagerRepository() WagerRepository {
	return m.wagerRepo
}

func (m *MockUnitOfWork) OperationRepository() OperationRepository {
	return m.operationRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
