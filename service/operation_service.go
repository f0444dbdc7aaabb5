package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"wagerbook/events"
	"wagerbook/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome labels reported to OperationMetrics
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultNotFound  = "not_found"
	ResultFailed    = "failed"
)

type operationService struct {
	uowFactory    UnitOfWorkFactory
	policy        PolicyTable
	handlePattern *regexp.Regexp
	metrics       OperationMetrics
}

// NewOperationService creates a new operation service. metrics may be nil.
func NewOperationService(uowFactory UnitOfWorkFactory, policy PolicyTable, handlePattern *regexp.Regexp, metrics OperationMetrics) OperationService {
	return &operationService{
		uowFactory:    uowFactory,
		policy:        policy,
		handlePattern: handlePattern,
		metrics:       metrics,
	}
}

// resolvedOperation holds everything the resolve phase found or created
type resolvedOperation struct {
	actor          *models.User
	actorCreated   bool
	taker          *models.User
	takerCreated   bool
	arbiter        *models.User
	arbiterCreated bool
	wager          *models.Wager
	operation      *models.Operation
}

// SubmitOperation validates the request and applies it in a single transaction
func (s *operationService) SubmitOperation(ctx context.Context, req *OperationRequest) (*models.Operation, error) {
	operation, err := s.submit(ctx, req)
	if s.metrics != nil {
		s.metrics.OperationSubmitted(req.Type, resultLabel(err))
	}
	return operation, err
}

func (s *operationService) submit(ctx context.Context, req *OperationRequest) (*models.Operation, error) {
	logger := log.WithFields(log.Fields{
		"operationType": req.Type,
		"actingUser":    req.ActingUserHandle,
	})

	if err := ValidateOperationRequest(req, s.policy, s.handlePattern); err != nil {
		logger.WithError(err).Debug("Rejected operation request")
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer uow.Rollback()

	resolved, err := s.resolve(ctx, uow, req)
	if err != nil {
		return nil, s.abort(logger, err)
	}
	logger.WithFields(log.Fields{
		"wagerId":     resolved.wager.ID,
		"operationId": resolved.operation.ID,
	}).Debug("Resolve phase complete")

	if err := s.link(ctx, uow, resolved); err != nil {
		return nil, s.abort(logger, err)
	}

	s.publish(uow.EventBus(), resolved)

	if err := uow.Commit(); err != nil {
		return nil, s.abort(logger, fmt.Errorf("failed to commit transaction: %w", err))
	}

	logger.WithFields(log.Fields{
		"operationId":       resolved.operation.ID,
		"wagerId":           resolved.wager.ID,
		"wagerSequentialId": resolved.wager.SequentialID,
		"wagerStatus":       resolved.wager.Status,
	}).Info("Operation recorded")

	return resolved.operation, nil
}

// resolve finds or creates every entity the operation touches. The lookups run
// concurrently and are joined before anything is linked. They run on ctx, not a
// group context, so one failed lookup never cancels a statement on the shared connection.
func (s *operationService) resolve(ctx context.Context, uow UnitOfWork, req *OperationRequest) (*resolvedOperation, error) {
	var r resolvedOperation
	users := uow.UserRepository()

	var g errgroup.Group

	g.Go(func() error {
		user, created, err := users.FindOrCreate(ctx, req.ActingUserHandle)
		if err != nil {
			return fmt.Errorf("failed to resolve acting user: %w", err)
		}
		r.actor, r.actorCreated = user, created
		return nil
	})

	g.Go(func() error {
		wager, err := s.resolveWager(ctx, uow.WagerRepository(), req)
		if err != nil {
			return err
		}
		r.wager = wager
		return nil
	})

	if req.Type == models.OperationTypePropose {
		params := req.WagerParameters
		if params.TakerHandle != nil {
			g.Go(func() error {
				user, created, err := users.FindOrCreate(ctx, *params.TakerHandle)
				if err != nil {
					return fmt.Errorf("failed to resolve taker: %w", err)
				}
				r.taker, r.takerCreated = user, created
				return nil
			})
		}
		if params.ArbiterHandle != nil {
			g.Go(func() error {
				user, created, err := users.FindOrCreate(ctx, *params.ArbiterHandle)
				if err != nil {
					return fmt.Errorf("failed to resolve arbiter: %w", err)
				}
				r.arbiter, r.arbiterCreated = user, created
				return nil
			})
		}
	}

	g.Go(func() error {
		operation := &models.Operation{Type: req.Type}
		if err := uow.OperationRepository().Create(ctx, operation); err != nil {
			return fmt.Errorf("failed to create operation: %w", err)
		}
		r.operation = operation
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &r, nil
}

// resolveWager creates the wager of a proposal or locates the referenced one
func (s *operationService) resolveWager(ctx context.Context, wagers WagerRepository, req *OperationRequest) (*models.Wager, error) {
	if req.Type == models.OperationTypePropose {
		params := req.WagerParameters
		wager := &models.Wager{
			Outcome:    *params.Outcome,
			Status:     models.InitialWagerStatus(params.TakerHandle != nil),
			MakerOffer: params.MakerOffer.toOffer(models.OfferRoleMaker),
			TakerOffer: params.TakerOffer.toOffer(models.OfferRoleTaker),
			Expiration: params.Expiration,
			Maturation: params.Maturation,
		}
		if err := wagers.CreateWithOffers(ctx, wager); err != nil {
			return nil, fmt.Errorf("failed to create wager: %w", err)
		}
		return wager, nil
	}

	return lookupWager(ctx, wagers, req.Reference())
}

// link connects the resolved entities. It runs only after every lookup has returned.
func (s *operationService) link(ctx context.Context, uow UnitOfWork, r *resolvedOperation) error {
	users := uow.UserRepository()
	wagers := uow.WagerRepository()
	operations := uow.OperationRepository()

	if err := operations.LinkUser(ctx, r.operation.ID, r.actor.ID); err != nil {
		return fmt.Errorf("failed to link operation to user: %w", err)
	}
	r.operation.UserID = &r.actor.ID

	if err := operations.LinkWager(ctx, r.operation.ID, r.wager.ID); err != nil {
		return fmt.Errorf("failed to link operation to wager: %w", err)
	}
	r.operation.WagerID = &r.wager.ID

	// The acting user becomes the maker for every operation type, not only PROPOSE
	if err := wagers.SetMaker(ctx, r.wager.ID, r.actor.ID); err != nil {
		return fmt.Errorf("failed to set wager maker: %w", err)
	}
	r.wager.MakerID = &r.actor.ID

	if r.taker != nil {
		if err := wagers.SetTaker(ctx, r.wager.ID, r.taker.ID); err != nil {
			return fmt.Errorf("failed to set wager taker: %w", err)
		}
		r.wager.TakerID = &r.taker.ID
		if err := users.AddWager(ctx, r.taker.ID, r.wager.ID); err != nil {
			return fmt.Errorf("failed to add wager to taker: %w", err)
		}
	}

	if r.arbiter != nil {
		if err := wagers.SetArbiter(ctx, r.wager.ID, r.arbiter.ID); err != nil {
			return fmt.Errorf("failed to set wager arbiter: %w", err)
		}
		r.wager.ArbiterID = &r.arbiter.ID
		if err := users.AddWager(ctx, r.arbiter.ID, r.wager.ID); err != nil {
			return fmt.Errorf("failed to add wager to arbiter: %w", err)
		}
	}

	if err := users.AddWager(ctx, r.actor.ID, r.wager.ID); err != nil {
		return fmt.Errorf("failed to add wager to acting user: %w", err)
	}

	return nil
}

// publish stages events on the unit of work; they are emitted only after commit
func (s *operationService) publish(bus EventPublisher, r *resolvedOperation) {
	seen := make(map[string]bool)
	for _, u := range []struct {
		user    *models.User
		created bool
	}{
		{r.actor, r.actorCreated},
		{r.taker, r.takerCreated},
		{r.arbiter, r.arbiterCreated},
	} {
		if u.user == nil || !u.created || seen[u.user.ID.String()] {
			continue
		}
		seen[u.user.ID.String()] = true
		bus.Publish(events.UserCreatedEvent{
			UserID:      u.user.ID,
			SlackHandle: u.user.SlackHandle,
		})
	}

	bus.Publish(events.OperationRecordedEvent{
		OperationID:       r.operation.ID,
		OperationType:     r.operation.Type,
		UserID:            r.actor.ID,
		SlackHandle:       r.actor.SlackHandle,
		WagerID:           r.wager.ID,
		WagerSequentialID: r.wager.SequentialID,
		WagerStatus:       r.wager.Status,
		RecordedAt:        r.operation.CreatedAt,
	})
}

// abort logs the failure and shapes the error returned to the caller. The
// deferred Rollback discards the transaction and any staged events.
func (s *operationService) abort(logger *log.Entry, err error) error {
	if errors.Is(err, ErrWagerNotFound) {
		logger.WithError(err).Info("Operation references an unknown wager")
		return err
	}
	logger.WithError(err).Warn("Operation rolled back")
	return transactionFailure(err)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return ResultCommitted
	case IsValidationError(err):
		return ResultRejected
	case IsNotFoundError(err):
		return ResultNotFound
	default:
		return ResultFailed
	}
}
