package service

import (
	"time"

	"wagerbook/models"

	"github.com/google/uuid"
)

// OperationRequest is a submitted action against a wager
type OperationRequest struct {
	ActingUserHandle  string
	Type              models.OperationType
	WagerOpaqueID     *string
	WagerSequentialID *int64
	WagerParameters   *WagerParameters
}

// WagerParameters carries the wager-shaped fields of a proposal
type WagerParameters struct {
	TakerHandle   *string
	ArbiterHandle *string
	Outcome       *string
	MakerOffer    *OfferParameters
	TakerOffer    *OfferParameters
	Expiration    *time.Time
	Maturation    *time.Time
}

// OfferParameters carries one side's stake terms
type OfferParameters struct {
	Currency      models.Currency
	AmountInCents int64
	Description   string
}

// WagerReference locates an existing wager by exactly one of its identifiers.
// OpaqueID is kept as the caller sent it; a value that is not a wager id matches nothing.
type WagerReference struct {
	OpaqueID     *string
	SequentialID *int64
}

// OpaqueIDRef builds a reference from a wager's opaque id
func OpaqueIDRef(id uuid.UUID) WagerReference {
	s := id.String()
	return WagerReference{OpaqueID: &s}
}

// HasWagerReference reports whether either wager identifier was supplied
func (r *OperationRequest) HasWagerReference() bool {
	return r.WagerOpaqueID != nil || r.WagerSequentialID != nil
}

// Reference returns the wager identifiers carried by the request
func (r *OperationRequest) Reference() WagerReference {
	return WagerReference{OpaqueID: r.WagerOpaqueID, SequentialID: r.WagerSequentialID}
}

func (o *OfferParameters) toOffer(role models.OfferRole) *models.Offer {
	return &models.Offer{
		Role:          role,
		Currency:      o.Currency,
		AmountInCents: o.AmountInCents,
		Description:   o.Description,
	}
}
