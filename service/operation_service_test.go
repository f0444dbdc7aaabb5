package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wagerbook/events"
	"wagerbook/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mutatorMocks struct {
	factory    *MockUnitOfWorkFactory
	uow        *MockUnitOfWork
	users      *MockUserRepository
	wagers     *MockWagerRepository
	operations *MockOperationRepository
	bus        *MockEventPublisher
	metrics    *MockOperationMetrics
}

func newMutatorMocks() *mutatorMocks {
	m := &mutatorMocks{
		factory:    new(MockUnitOfWorkFactory),
		uow:        new(MockUnitOfWork),
		users:      new(MockUserRepository),
		wagers:     new(MockWagerRepository),
		operations: new(MockOperationRepository),
		bus:        new(MockEventPublisher),
		metrics:    new(MockOperationMetrics),
	}
	m.uow.SetRepositories(m.users, m.wagers, m.operations, m.bus)
	return m
}

func (m *mutatorMocks) service() OperationService {
	return NewOperationService(m.factory, DefaultPolicyTable(), testHandlePattern, m.metrics)
}

func (m *mutatorMocks) assertExpectations(t *testing.T) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.wagers.AssertExpectations(t)
	m.operations.AssertExpectations(t)
	m.bus.AssertExpectations(t)
	m.metrics.AssertExpectations(t)
}

// expectTransaction sets up Begin/Rollback and, when committed, Commit
func (m *mutatorMocks) expectTransaction(ctx context.Context, committed bool) {
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	if committed {
		m.uow.On("Commit").Return(nil)
	}
}

// expectOperationCreate assigns id to the operation row created during the resolve phase
func (m *mutatorMocks) expectOperationCreate(opType models.OperationType, id uuid.UUID) {
	m.operations.On("Create", mock.Anything, mock.MatchedBy(func(op *models.Operation) bool {
		return op.Type == opType
	})).Run(func(args mock.Arguments) {
		op := args.Get(1).(*models.Operation)
		op.ID = id
		op.CreatedAt = time.Now()
	}).Return(nil)
}

func testUser(handle string) *models.User {
	return &models.User{ID: uuid.New(), SlackHandle: handle}
}

func TestSubmitOperation_ProposeWithoutTakerIsListed(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	actor := testUser("U1")
	wagerID := uuid.New()
	opID := uuid.New()

	m.expectTransaction(ctx, true)
	m.users.On("FindOrCreate", mock.Anything, "U1").Return(actor, true, nil)
	m.wagers.On("CreateWithOffers", mock.Anything, mock.MatchedBy(func(w *models.Wager) bool {
		return w.Status == models.WagerStatusListed &&
			w.Outcome == "it snows on friday" &&
			w.MakerOffer.Role == models.OfferRoleMaker &&
			w.TakerOffer.Role == models.OfferRoleTaker &&
			w.MakerOffer.AmountInCents == 500
	})).Run(func(args mock.Arguments) {
		w := args.Get(1).(*models.Wager)
		w.ID = wagerID
		w.SequentialID = 1
	}).Return(nil)
	m.expectOperationCreate(models.OperationTypePropose, opID)

	m.operations.On("LinkUser", ctx, opID, actor.ID).Return(nil)
	m.operations.On("LinkWager", ctx, opID, wagerID).Return(nil)
	m.wagers.On("SetMaker", ctx, wagerID, actor.ID).Return(nil)
	m.users.On("AddWager", ctx, actor.ID, wagerID).Return(nil)

	m.bus.On("Publish", mock.MatchedBy(func(e events.UserCreatedEvent) bool {
		return e.UserID == actor.ID && e.SlackHandle == "U1"
	})).Return().Once()
	m.bus.On("Publish", mock.MatchedBy(func(e events.OperationRecordedEvent) bool {
		return e.OperationID == opID &&
			e.WagerID == wagerID &&
			e.WagerSequentialID == 1 &&
			e.WagerStatus == models.WagerStatusListed &&
			e.UserID == actor.ID
	})).Return().Once()
	m.metrics.On("OperationSubmitted", models.OperationTypePropose, ResultCommitted).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle: "U1",
		Type:             models.OperationTypePropose,
		WagerParameters:  validProposeParameters(),
	})

	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, opID, op.ID)
	assert.Equal(t, models.OperationTypePropose, op.Type)
	require.NotNil(t, op.UserID)
	require.NotNil(t, op.WagerID)
	assert.Equal(t, actor.ID, *op.UserID)
	assert.Equal(t, wagerID, *op.WagerID)

	m.wagers.AssertNotCalled(t, "SetTaker", mock.Anything, mock.Anything, mock.Anything)
	m.wagers.AssertNotCalled(t, "SetArbiter", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestSubmitOperation_ProposeWithTakerIsUnaccepted(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	actor := testUser("U1")
	taker := testUser("U2")
	arbiter := testUser("U3")
	wagerID := uuid.New()
	opID := uuid.New()

	params := validProposeParameters()
	params.TakerHandle = strPtr("U2")
	params.ArbiterHandle = strPtr("U3")

	m.expectTransaction(ctx, true)
	m.users.On("FindOrCreate", mock.Anything, "U1").Return(actor, false, nil)
	m.users.On("FindOrCreate", mock.Anything, "U2").Return(taker, true, nil)
	m.users.On("FindOrCreate", mock.Anything, "U3").Return(arbiter, false, nil)
	m.wagers.On("CreateWithOffers", mock.Anything, mock.MatchedBy(func(w *models.Wager) bool {
		return w.Status == models.WagerStatusUnaccepted
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Wager).ID = wagerID
	}).Return(nil)
	m.expectOperationCreate(models.OperationTypePropose, opID)

	m.operations.On("LinkUser", ctx, opID, actor.ID).Return(nil)
	m.operations.On("LinkWager", ctx, opID, wagerID).Return(nil)
	m.wagers.On("SetMaker", ctx, wagerID, actor.ID).Return(nil)
	m.wagers.On("SetTaker", ctx, wagerID, taker.ID).Return(nil)
	m.wagers.On("SetArbiter", ctx, wagerID, arbiter.ID).Return(nil)
	m.users.On("AddWager", ctx, actor.ID, wagerID).Return(nil)
	m.users.On("AddWager", ctx, taker.ID, wagerID).Return(nil)
	m.users.On("AddWager", ctx, arbiter.ID, wagerID).Return(nil)

	// Only the taker was created by this request
	m.bus.On("Publish", mock.MatchedBy(func(e events.UserCreatedEvent) bool {
		return e.UserID == taker.ID
	})).Return().Once()
	m.bus.On("Publish", mock.MatchedBy(func(e events.OperationRecordedEvent) bool {
		return e.WagerStatus == models.WagerStatusUnaccepted
	})).Return().Once()
	m.metrics.On("OperationSubmitted", models.OperationTypePropose, ResultCommitted).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle: "U1",
		Type:             models.OperationTypePropose,
		WagerParameters:  params,
	})

	require.NoError(t, err)
	assert.Equal(t, opID, op.ID)
	m.assertExpectations(t)
}

func TestSubmitOperation_AcceptReassignsMakerToActingUser(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	maker := testUser("U1")
	acceptor := testUser("U2")
	opID := uuid.New()
	wager := &models.Wager{
		ID:           uuid.New(),
		SequentialID: 1,
		Status:       models.WagerStatusListed,
		MakerID:      &maker.ID,
	}

	m.expectTransaction(ctx, true)
	m.users.On("FindOrCreate", mock.Anything, "U2").Return(acceptor, true, nil)
	m.wagers.On("GetBySequentialID", mock.Anything, int64(1)).Return(wager, nil)
	m.expectOperationCreate(models.OperationTypeAccept, opID)

	m.operations.On("LinkUser", ctx, opID, acceptor.ID).Return(nil)
	m.operations.On("LinkWager", ctx, opID, wager.ID).Return(nil)
	m.wagers.On("SetMaker", ctx, wager.ID, acceptor.ID).Return(nil)
	m.users.On("AddWager", ctx, acceptor.ID, wager.ID).Return(nil)
	m.bus.On("Publish", mock.Anything).Return()
	m.metrics.On("OperationSubmitted", models.OperationTypeAccept, ResultCommitted).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle:  "U2",
		Type:              models.OperationTypeAccept,
		WagerSequentialID: int64Ptr(1),
	})

	require.NoError(t, err)
	assert.Equal(t, acceptor.ID, *op.UserID)
	assert.Equal(t, wager.ID, *op.WagerID)
	assert.Equal(t, acceptor.ID, *wager.MakerID)

	// Status is left untouched
	assert.Equal(t, models.WagerStatusListed, wager.Status)
	m.wagers.AssertNotCalled(t, "CreateWithOffers", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestSubmitOperation_ValidationFailureTouchesNoStorage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		req      *OperationRequest
		expected error
	}{
		{
			name: "propose with wager reference",
			req: &OperationRequest{
				ActingUserHandle: "U1",
				Type:             models.OperationTypePropose,
				WagerOpaqueID:    opaqueIDPtr(uuid.New()),
				WagerParameters:  validProposeParameters(),
			},
			expected: ErrUnexpectedWagerReference,
		},
		{
			name: "propose without outcome",
			req: &OperationRequest{
				ActingUserHandle: "U1",
				Type:             models.OperationTypePropose,
				WagerParameters:  &WagerParameters{MakerOffer: &OfferParameters{Currency: models.CurrencyCAD}},
			},
			expected: ErrWagerParameterPolicyViolation,
		},
		{
			name: "accept with parameters",
			req: &OperationRequest{
				ActingUserHandle:  "U1",
				Type:              models.OperationTypeAccept,
				WagerSequentialID: int64Ptr(1),
				WagerParameters:   validProposeParameters(),
			},
			expected: ErrUnexpectedWagerParameters,
		},
		{
			name: "cancel without reference",
			req: &OperationRequest{
				ActingUserHandle: "U1",
				Type:             models.OperationTypeCancel,
			},
			expected: ErrMissingWagerReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMutatorMocks()
			m.metrics.On("OperationSubmitted", tt.req.Type, ResultRejected).Return()

			op, err := m.service().SubmitOperation(ctx, tt.req)

			assert.Nil(t, op)
			assert.ErrorIs(t, err, tt.expected)
			assert.NotErrorIs(t, err, ErrTransactionFailed)
			m.factory.AssertNotCalled(t, "Create")
			m.assertExpectations(t)
		})
	}
}

func TestSubmitOperation_WagerNotFound(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	wagerID := uuid.New()

	m.expectTransaction(ctx, false)
	m.users.On("FindOrCreate", mock.Anything, "U2").Return(testUser("U2"), false, nil)
	m.wagers.On("GetByID", mock.Anything, wagerID).Return(nil, nil)
	m.expectOperationCreate(models.OperationTypeReject, uuid.New())
	m.metrics.On("OperationSubmitted", models.OperationTypeReject, ResultNotFound).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle: "U2",
		Type:             models.OperationTypeReject,
		WagerOpaqueID:    opaqueIDPtr(wagerID),
	})

	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrWagerNotFound)
	assert.NotErrorIs(t, err, ErrTransactionFailed)
	m.uow.AssertNotCalled(t, "Commit")
	m.operations.AssertNotCalled(t, "LinkUser", mock.Anything, mock.Anything, mock.Anything)
	m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	m.assertExpectations(t)
}

func TestSubmitOperation_OpaqueIDThatIsNotAWagerID(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	m.expectTransaction(ctx, false)
	m.users.On("FindOrCreate", mock.Anything, "U2").Return(testUser("U2"), false, nil)
	m.expectOperationCreate(models.OperationTypeAccept, uuid.New())
	m.metrics.On("OperationSubmitted", models.OperationTypeAccept, ResultNotFound).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle: "U2",
		Type:             models.OperationTypeAccept,
		WagerOpaqueID:    strPtr("abc"),
	})

	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrWagerNotFound)
	m.wagers.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
	m.assertExpectations(t)
}

func TestSubmitOperation_FailedLookupLeavesOtherStatementsUncancelled(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	var createCtx context.Context
	m.expectTransaction(ctx, false)
	m.users.On("FindOrCreate", mock.Anything, "U2").Return(testUser("U2"), false, nil)
	m.wagers.On("GetBySequentialID", mock.Anything, int64(9)).Return(nil, nil)
	m.operations.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createCtx = args.Get(0).(context.Context)
	}).Return(nil)
	m.metrics.On("OperationSubmitted", models.OperationTypeTake, ResultNotFound).Return()

	_, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle:  "U2",
		Type:              models.OperationTypeTake,
		WagerSequentialID: int64Ptr(9),
	})

	assert.ErrorIs(t, err, ErrWagerNotFound)
	require.NotNil(t, createCtx)
	assert.NoError(t, createCtx.Err())
	m.assertExpectations(t)
}

func TestSubmitOperation_ResolveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	dbErr := errors.New("connection reset")

	m.expectTransaction(ctx, false)
	m.users.On("FindOrCreate", mock.Anything, "U1").Return(nil, false, dbErr)
	m.wagers.On("CreateWithOffers", mock.Anything, mock.Anything).Return(nil)
	m.expectOperationCreate(models.OperationTypePropose, uuid.New())
	m.metrics.On("OperationSubmitted", models.OperationTypePropose, ResultFailed).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle: "U1",
		Type:             models.OperationTypePropose,
		WagerParameters:  validProposeParameters(),
	})

	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, dbErr)
	m.uow.AssertNotCalled(t, "Commit")
	m.operations.AssertNotCalled(t, "LinkUser", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestSubmitOperation_LinkFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	actor := testUser("U1")
	wagerID := uuid.New()
	opID := uuid.New()
	linkErr := errors.New("foreign key violation")

	m.expectTransaction(ctx, false)
	m.users.On("FindOrCreate", mock.Anything, "U1").Return(actor, true, nil)
	m.wagers.On("CreateWithOffers", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Wager).ID = wagerID
	}).Return(nil)
	m.expectOperationCreate(models.OperationTypePropose, opID)
	m.operations.On("LinkUser", ctx, opID, actor.ID).Return(nil)
	m.operations.On("LinkWager", ctx, opID, wagerID).Return(linkErr)
	m.metrics.On("OperationSubmitted", models.OperationTypePropose, ResultFailed).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle: "U1",
		Type:             models.OperationTypePropose,
		WagerParameters:  validProposeParameters(),
	})

	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, linkErr)
	m.wagers.AssertNotCalled(t, "SetMaker", mock.Anything, mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
	m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	m.assertExpectations(t)
}

func TestSubmitOperation_CommitFailure(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	actor := testUser("U1")
	wager := &models.Wager{ID: uuid.New(), SequentialID: 4}
	opID := uuid.New()
	commitErr := errors.New("could not serialize access")

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(commitErr)
	m.uow.On("Rollback").Return(nil)
	m.users.On("FindOrCreate", mock.Anything, "U1").Return(actor, false, nil)
	m.wagers.On("GetBySequentialID", mock.Anything, int64(4)).Return(wager, nil)
	m.expectOperationCreate(models.OperationTypeClose, opID)
	m.operations.On("LinkUser", ctx, opID, actor.ID).Return(nil)
	m.operations.On("LinkWager", ctx, opID, wager.ID).Return(nil)
	m.wagers.On("SetMaker", ctx, wager.ID, actor.ID).Return(nil)
	m.users.On("AddWager", ctx, actor.ID, wager.ID).Return(nil)
	m.bus.On("Publish", mock.Anything).Return()
	m.metrics.On("OperationSubmitted", models.OperationTypeClose, ResultFailed).Return()

	op, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle:  "U1",
		Type:              models.OperationTypeClose,
		WagerSequentialID: int64Ptr(4),
	})

	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, commitErr)
	m.assertExpectations(t)
}

func TestSubmitOperation_BeginFailure(t *testing.T) {
	ctx := context.Background()
	m := newMutatorMocks()

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(errors.New("pool closed"))
	m.metrics.On("OperationSubmitted", models.OperationTypeTake, ResultFailed).Return()

	_, err := m.service().SubmitOperation(ctx, &OperationRequest{
		ActingUserHandle:  "U1",
		Type:              models.OperationTypeTake,
		WagerSequentialID: int64Ptr(1),
	})

	assert.ErrorIs(t, err, ErrTransactionFailed)
	m.users.AssertNotCalled(t, "FindOrCreate", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestSubmitOperation_NilMetrics(t *testing.T) {
	svc := NewOperationService(new(MockUnitOfWorkFactory), DefaultPolicyTable(), testHandlePattern, nil)

	_, err := svc.SubmitOperation(context.Background(), &OperationRequest{
		ActingUserHandle: "U1",
		Type:             models.OperationTypeAppeal,
	})

	assert.ErrorIs(t, err, ErrMissingWagerReference)
}
