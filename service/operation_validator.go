package service

import (
	"fmt"
	"regexp"
	"strings"

	"wagerbook/models"
)

// ValidateOperationRequest decides whether a request may proceed to the mutator.
// It performs no I/O.
func ValidateOperationRequest(req *OperationRequest, table PolicyTable, handlePattern *regexp.Regexp) error {
	if !req.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperationType, req.Type)
	}

	isPropose := req.Type == models.OperationTypePropose

	if !isPropose {
		if req.WagerOpaqueID != nil && req.WagerSequentialID != nil {
			return ErrAmbiguousWagerReference
		}
		if !req.HasWagerReference() {
			return ErrMissingWagerReference
		}
		if req.WagerParameters != nil {
			return ErrUnexpectedWagerParameters
		}
	} else {
		if req.HasWagerReference() {
			return ErrUnexpectedWagerReference
		}
		if req.WagerParameters == nil {
			return ErrMissingWagerParameters
		}
	}

	if req.WagerParameters != nil {
		if err := checkParameterPolicy(req.WagerParameters, table[req.Type]); err != nil {
			return err
		}
	}

	if err := validateHandle("acting user", req.ActingUserHandle, handlePattern); err != nil {
		return err
	}
	if params := req.WagerParameters; params != nil {
		if params.TakerHandle != nil {
			if err := validateHandle("taker", *params.TakerHandle, handlePattern); err != nil {
				return err
			}
		}
		if params.ArbiterHandle != nil {
			if err := validateHandle("arbiter", *params.ArbiterHandle, handlePattern); err != nil {
				return err
			}
		}
		if err := validateOffer(ParamMakerOffer, params.MakerOffer); err != nil {
			return err
		}
		if err := validateOffer(ParamTakerOffer, params.TakerOffer); err != nil {
			return err
		}
	}

	return nil
}

// checkParameterPolicy walks the row in parameter order so the first offending
// field is reported deterministically
func checkParameterPolicy(params *WagerParameters, row map[WagerParameter]ParameterPolicy) error {
	for _, param := range AllWagerParameters() {
		present, empty := parameterState(params, param)
		switch row[param] {
		case PolicyRequired:
			if !present || empty {
				return &WagerParameterPolicyViolation{Parameter: param, Policy: PolicyRequired}
			}
		case PolicyForbidden:
			if present {
				return &WagerParameterPolicyViolation{Parameter: param, Policy: PolicyForbidden}
			}
		case PolicyOptional:
		default:
			// CheckPolicyTable runs at startup; an unknown value here means an unchecked table
			return &WagerParameterPolicyViolation{Parameter: param, Policy: row[param]}
		}
	}
	return nil
}

// parameterState reports whether a parameter was supplied and whether its value is empty
func parameterState(params *WagerParameters, param WagerParameter) (present bool, empty bool) {
	switch param {
	case ParamTaker:
		return params.TakerHandle != nil, params.TakerHandle != nil && strings.TrimSpace(*params.TakerHandle) == ""
	case ParamArbiter:
		return params.ArbiterHandle != nil, params.ArbiterHandle != nil && strings.TrimSpace(*params.ArbiterHandle) == ""
	case ParamOutcome:
		return params.Outcome != nil, params.Outcome != nil && strings.TrimSpace(*params.Outcome) == ""
	case ParamMakerOffer:
		return params.MakerOffer != nil, false
	case ParamTakerOffer:
		return params.TakerOffer != nil, false
	case ParamExpiration:
		return params.Expiration != nil, params.Expiration != nil && params.Expiration.IsZero()
	case ParamMaturation:
		return params.Maturation != nil, params.Maturation != nil && params.Maturation.IsZero()
	}
	return false, false
}

func validateHandle(role, handle string, pattern *regexp.Regexp) error {
	if handle == "" {
		return fmt.Errorf("%w: %s handle is empty", ErrInvalidSlackHandle, role)
	}
	if pattern != nil && !pattern.MatchString(handle) {
		return fmt.Errorf("%w: %s handle %q does not match %s", ErrInvalidSlackHandle, role, handle, pattern.String())
	}
	return nil
}

func validateOffer(param WagerParameter, offer *OfferParameters) error {
	if offer == nil {
		return nil
	}
	if _, err := models.ParseCurrency(string(offer.Currency)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOffer, param, err)
	}
	if offer.AmountInCents < 0 {
		return fmt.Errorf("%w: %s amount must not be negative", ErrInvalidOffer, param)
	}
	return nil
}
