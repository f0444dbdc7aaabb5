package service

import (
	"errors"
	"fmt"
)

// Validation errors. These are returned before any persistence call is made.
var (
	ErrAmbiguousWagerReference       = errors.New("ambiguous wager reference: supply either a wager id or a sequential id, not both")
	ErrMissingWagerReference         = errors.New("missing wager reference: a wager id or sequential id is required")
	ErrUnexpectedWagerReference      = errors.New("unexpected wager reference: a proposal creates its own wager")
	ErrMissingWagerParameters        = errors.New("missing wager parameters: a proposal requires wager parameters")
	ErrUnexpectedWagerParameters     = errors.New("unexpected wager parameters: only a proposal accepts wager parameters")
	ErrWagerParameterPolicyViolation = errors.New("wager parameter policy violation")
	ErrUnknownOperationType          = errors.New("unknown operation type")
	ErrInvalidSlackHandle            = errors.New("invalid slack handle")
	ErrInvalidOffer                  = errors.New("invalid offer")
)

// Resolution errors.
var (
	ErrWagerNotFound     = errors.New("wager not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrUserNotFound      = errors.New("user not found")
)

// ErrTransactionFailed wraps any failure of the resolve, link or commit phases.
// The transaction has been rolled back when it is returned.
var ErrTransactionFailed = errors.New("transaction failed")

// WagerParameterPolicyViolation names the wager parameter that broke the policy row
type WagerParameterPolicyViolation struct {
	Parameter WagerParameter
	Policy    ParameterPolicy
}

func (e *WagerParameterPolicyViolation) Error() string {
	switch e.Policy {
	case PolicyRequired:
		return fmt.Sprintf("%s: %s is required", ErrWagerParameterPolicyViolation, e.Parameter)
	case PolicyForbidden:
		return fmt.Sprintf("%s: %s is forbidden", ErrWagerParameterPolicyViolation, e.Parameter)
	default:
		return fmt.Sprintf("%s: %s (%s)", ErrWagerParameterPolicyViolation, e.Parameter, e.Policy)
	}
}

// Is lets errors.Is match the sentinel
func (e *WagerParameterPolicyViolation) Is(target error) bool {
	return target == ErrWagerParameterPolicyViolation
}

// IsValidationError reports whether err was raised by request validation
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrAmbiguousWagerReference,
		ErrMissingWagerReference,
		ErrUnexpectedWagerReference,
		ErrMissingWagerParameters,
		ErrUnexpectedWagerParameters,
		ErrWagerParameterPolicyViolation,
		ErrUnknownOperationType,
		ErrInvalidSlackHandle,
		ErrInvalidOffer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err is a resolution failure
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWagerNotFound) ||
		errors.Is(err, ErrOperationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// transactionFailure wraps cause so that both ErrTransactionFailed and the cause match errors.Is
func transactionFailure(cause error) error {
	return fmt.Errorf("%w: %w", ErrTransactionFailed, cause)
}
