package service

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"wagerbook/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHandlePattern = regexp.MustCompile(`^[UW][A-Z0-9]+$`)

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func opaqueIDPtr(id uuid.UUID) *string { return strPtr(id.String()) }

func validProposeParameters() *WagerParameters {
	return &WagerParameters{
		Outcome:    strPtr("it snows on friday"),
		MakerOffer: &OfferParameters{Currency: models.CurrencyCAD, AmountInCents: 500, Description: "a coffee"},
		TakerOffer: &OfferParameters{Currency: models.CurrencyCAD, AmountInCents: 500, Description: "a coffee"},
	}
}

func validate(req *OperationRequest) error {
	return ValidateOperationRequest(req, DefaultPolicyTable(), testHandlePattern)
}

func TestValidateOperationRequest_Propose(t *testing.T) {
	t.Run("minimal proposal", func(t *testing.T) {
		req := &OperationRequest{
			ActingUserHandle: "U1",
			Type:             models.OperationTypePropose,
			WagerParameters:  validProposeParameters(),
		}
		assert.NoError(t, validate(req))
	})

	t.Run("proposal with every optional parameter", func(t *testing.T) {
		expiration := time.Now().Add(24 * time.Hour)
		maturation := time.Now().Add(48 * time.Hour)
		params := validProposeParameters()
		params.TakerHandle = strPtr("U2")
		params.ArbiterHandle = strPtr("W3")
		params.Expiration = &expiration
		params.Maturation = &maturation

		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
		assert.NoError(t, validate(req))
	})

	t.Run("zero amounts are allowed", func(t *testing.T) {
		params := validProposeParameters()
		params.TakerOffer.AmountInCents = 0

		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
		assert.NoError(t, validate(req))
	})

	t.Run("wager reference is unexpected regardless of parameters", func(t *testing.T) {
		for _, params := range []*WagerParameters{nil, validProposeParameters(), {}} {
			req := &OperationRequest{
				ActingUserHandle: "U1",
				Type:             models.OperationTypePropose,
				WagerOpaqueID:    opaqueIDPtr(uuid.New()),
				WagerParameters:  params,
			}
			assert.ErrorIs(t, validate(req), ErrUnexpectedWagerReference)
		}

		req := &OperationRequest{
			ActingUserHandle:  "U1",
			Type:              models.OperationTypePropose,
			WagerSequentialID: int64Ptr(1),
			WagerParameters:   validProposeParameters(),
		}
		assert.ErrorIs(t, validate(req), ErrUnexpectedWagerReference)

		// The opaque id is not interpreted; any value counts as a reference
		req = &OperationRequest{
			ActingUserHandle: "U1",
			Type:             models.OperationTypePropose,
			WagerOpaqueID:    strPtr("abc"),
			WagerParameters:  validProposeParameters(),
		}
		assert.ErrorIs(t, validate(req), ErrUnexpectedWagerReference)
	})

	t.Run("missing parameters", func(t *testing.T) {
		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose}
		assert.ErrorIs(t, validate(req), ErrMissingWagerParameters)
	})
}

func TestValidateOperationRequest_ProposeRequiredParameters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *WagerParameters)
		missing WagerParameter
	}{
		{"outcome omitted", func(p *WagerParameters) { p.Outcome = nil }, ParamOutcome},
		{"outcome blank", func(p *WagerParameters) { p.Outcome = strPtr("   ") }, ParamOutcome},
		{"maker offer omitted", func(p *WagerParameters) { p.MakerOffer = nil }, ParamMakerOffer},
		{"taker offer omitted", func(p *WagerParameters) { p.TakerOffer = nil }, ParamTakerOffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validProposeParameters()
			tt.mutate(params)
			req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}

			err := validate(req)
			require.ErrorIs(t, err, ErrWagerParameterPolicyViolation)

			var violation *WagerParameterPolicyViolation
			require.True(t, errors.As(err, &violation))
			assert.Equal(t, tt.missing, violation.Parameter)
			assert.Equal(t, PolicyRequired, violation.Policy)
			assert.Contains(t, err.Error(), string(tt.missing))
		})
	}

	t.Run("first missing field in parameter order is reported", func(t *testing.T) {
		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: &WagerParameters{}}

		var violation *WagerParameterPolicyViolation
		require.True(t, errors.As(validate(req), &violation))
		assert.Equal(t, ParamOutcome, violation.Parameter)
	})
}

func TestValidateOperationRequest_NonPropose(t *testing.T) {
	nonPropose := []models.OperationType{
		models.OperationTypeAccept,
		models.OperationTypeReject,
		models.OperationTypeCancel,
		models.OperationTypeTake,
		models.OperationTypeClose,
		models.OperationTypeAppeal,
	}

	for _, opType := range nonPropose {
		t.Run(string(opType), func(t *testing.T) {
			byID := &OperationRequest{ActingUserHandle: "U2", Type: opType, WagerOpaqueID: opaqueIDPtr(uuid.New())}
			assert.NoError(t, validate(byID))

			bySequence := &OperationRequest{ActingUserHandle: "U2", Type: opType, WagerSequentialID: int64Ptr(1)}
			assert.NoError(t, validate(bySequence))

			both := &OperationRequest{
				ActingUserHandle:  "U2",
				Type:              opType,
				WagerOpaqueID:     opaqueIDPtr(uuid.New()),
				WagerSequentialID: int64Ptr(1),
			}
			assert.ErrorIs(t, validate(both), ErrAmbiguousWagerReference)

			neither := &OperationRequest{ActingUserHandle: "U2", Type: opType}
			assert.ErrorIs(t, validate(neither), ErrMissingWagerReference)

			withParams := &OperationRequest{
				ActingUserHandle:  "U2",
				Type:              opType,
				WagerSequentialID: int64Ptr(1),
				WagerParameters:   validProposeParameters(),
			}
			assert.ErrorIs(t, validate(withParams), ErrUnexpectedWagerParameters)

			emptyParams := &OperationRequest{
				ActingUserHandle:  "U2",
				Type:              opType,
				WagerSequentialID: int64Ptr(1),
				WagerParameters:   &WagerParameters{},
			}
			assert.ErrorIs(t, validate(emptyParams), ErrUnexpectedWagerParameters)
		})
	}

	t.Run("ambiguity is reported before unexpected parameters", func(t *testing.T) {
		req := &OperationRequest{
			ActingUserHandle:  "U2",
			Type:              models.OperationTypeAccept,
			WagerOpaqueID:     opaqueIDPtr(uuid.New()),
			WagerSequentialID: int64Ptr(1),
			WagerParameters:   validProposeParameters(),
		}
		assert.ErrorIs(t, validate(req), ErrAmbiguousWagerReference)
	})
}

func TestValidateOperationRequest_CustomPolicyRow(t *testing.T) {
	table := DefaultPolicyTable()
	table[models.OperationTypePropose][ParamExpiration] = PolicyForbidden
	table[models.OperationTypePropose][ParamArbiter] = PolicyRequired

	expiration := time.Now().Add(time.Hour)
	params := validProposeParameters()
	params.ArbiterHandle = strPtr("U9")
	params.Expiration = &expiration

	req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
	err := ValidateOperationRequest(req, table, testHandlePattern)

	var violation *WagerParameterPolicyViolation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, ParamExpiration, violation.Parameter)
	assert.Equal(t, PolicyForbidden, violation.Policy)

	params.Expiration = nil
	params.ArbiterHandle = nil
	err = ValidateOperationRequest(req, table, testHandlePattern)
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, ParamArbiter, violation.Parameter)
	assert.Equal(t, PolicyRequired, violation.Policy)
}

func TestValidateOperationRequest_UnknownType(t *testing.T) {
	req := &OperationRequest{ActingUserHandle: "U1", Type: "SETTLE", WagerSequentialID: int64Ptr(1)}
	assert.ErrorIs(t, validate(req), ErrUnknownOperationType)
}

func TestValidateOperationRequest_Handles(t *testing.T) {
	t.Run("empty acting user", func(t *testing.T) {
		req := &OperationRequest{Type: models.OperationTypeAccept, WagerSequentialID: int64Ptr(1)}
		assert.ErrorIs(t, validate(req), ErrInvalidSlackHandle)
	})

	t.Run("acting user does not match pattern", func(t *testing.T) {
		req := &OperationRequest{ActingUserHandle: "@alice", Type: models.OperationTypeAccept, WagerSequentialID: int64Ptr(1)}
		assert.ErrorIs(t, validate(req), ErrInvalidSlackHandle)
	})

	t.Run("taker does not match pattern", func(t *testing.T) {
		params := validProposeParameters()
		params.TakerHandle = strPtr("bob")
		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
		assert.ErrorIs(t, validate(req), ErrInvalidSlackHandle)
	})

	t.Run("blank arbiter", func(t *testing.T) {
		params := validProposeParameters()
		params.ArbiterHandle = strPtr("")
		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
		assert.ErrorIs(t, validate(req), ErrInvalidSlackHandle)
	})

	t.Run("nil pattern accepts any non-empty handle", func(t *testing.T) {
		req := &OperationRequest{ActingUserHandle: "alice", Type: models.OperationTypeAccept, WagerSequentialID: int64Ptr(1)}
		assert.NoError(t, ValidateOperationRequest(req, DefaultPolicyTable(), nil))
	})
}

func TestValidateOperationRequest_Offers(t *testing.T) {
	t.Run("negative amount", func(t *testing.T) {
		params := validProposeParameters()
		params.MakerOffer.AmountInCents = -100
		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
		assert.ErrorIs(t, validate(req), ErrInvalidOffer)
	})

	t.Run("unknown currency", func(t *testing.T) {
		params := validProposeParameters()
		params.TakerOffer.Currency = "EUR"
		req := &OperationRequest{ActingUserHandle: "U1", Type: models.OperationTypePropose, WagerParameters: params}
		assert.ErrorIs(t, validate(req), ErrInvalidOffer)
	})
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ErrMissingWagerReference))
	assert.True(t, IsValidationError(&WagerParameterPolicyViolation{Parameter: ParamOutcome, Policy: PolicyRequired}))
	assert.False(t, IsValidationError(ErrWagerNotFound))
	assert.False(t, IsValidationError(transactionFailure(errors.New("boom"))))
}
