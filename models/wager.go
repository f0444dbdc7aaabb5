package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WagerStatus represents the lifecycle status of a wager
type WagerStatus string

const (
	WagerStatusUnaccepted  WagerStatus = "UNACCEPTED"
	WagerStatusListed      WagerStatus = "LISTED"
	WagerStatusUnconfirmed WagerStatus = "UNCONFIRMED"
	WagerStatusAccepted    WagerStatus = "ACCEPTED"
	WagerStatusRejected    WagerStatus = "REJECTED"
	WagerStatusCancelled   WagerStatus = "CANCELLED"
	WagerStatusExpired     WagerStatus = "EXPIRED"
	WagerStatusClosed      WagerStatus = "CLOSED"
	WagerStatusCompleted   WagerStatus = "COMPLETED"
	WagerStatusAppealed    WagerStatus = "APPEALED"
)

// AllWagerStatuses returns every known wager status
func AllWagerStatuses() []WagerStatus {
	return []WagerStatus{
		WagerStatusUnaccepted,
		WagerStatusListed,
		WagerStatusUnconfirmed,
		WagerStatusAccepted,
		WagerStatusRejected,
		WagerStatusCancelled,
		WagerStatusExpired,
		WagerStatusClosed,
		WagerStatusCompleted,
		WagerStatusAppealed,
	}
}

// ParseWagerStatus converts a raw value into a known WagerStatus
func ParseWagerStatus(s string) (WagerStatus, error) {
	for _, status := range AllWagerStatuses() {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown wager status %q", s)
}

// Wager represents a bet between a maker and an optional taker, possibly arbitrated
type Wager struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	SequentialID int64       `db:"sequential_id" json:"sequentialId"`
	Outcome      string      `db:"outcome" json:"outcome"`
	Status       WagerStatus `db:"status" json:"status"`

	MakerID   *uuid.UUID `db:"maker_id" json:"makerId"`
	TakerID   *uuid.UUID `db:"taker_id" json:"takerId,omitempty"`
	ArbiterID *uuid.UUID `db:"arbiter_id" json:"arbiterId,omitempty"`

	MakerOffer *Offer `db:"-" json:"makerOffer"`
	TakerOffer *Offer `db:"-" json:"takerOffer"`

	Expiration *time.Time `db:"expiration" json:"expiration,omitempty"`
	Maturation *time.Time `db:"maturation" json:"maturation,omitempty"`

	AcceptedAt          *time.Time `db:"accepted_at" json:"acceptedAt,omitempty"`
	AcceptedByMakerAt   *time.Time `db:"accepted_by_maker_at" json:"acceptedByMakerAt,omitempty"`
	AcceptedByTakerAt   *time.Time `db:"accepted_by_taker_at" json:"acceptedByTakerAt,omitempty"`
	AcceptedByArbiterAt *time.Time `db:"accepted_by_arbiter_at" json:"acceptedByArbiterAt,omitempty"`
	RejectedAt          *time.Time `db:"rejected_at" json:"rejectedAt,omitempty"`
	CancelledAt         *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	AppealedAt          *time.Time `db:"appealed_at" json:"appealedAt,omitempty"`
	TakenAt             *time.Time `db:"taken_at" json:"takenAt,omitempty"`
	CompletedAt         *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	ClosedAt            *time.Time `db:"closed_at" json:"closedAt,omitempty"`

	RejectedBy  *uuid.UUID `db:"rejected_by" json:"rejectedBy,omitempty"`
	CancelledBy *uuid.UUID `db:"cancelled_by" json:"cancelledBy,omitempty"`
	AppealedBy  *uuid.UUID `db:"appealed_by" json:"appealedBy,omitempty"`
	ClosedBy    *uuid.UUID `db:"closed_by" json:"closedBy,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}

// InitialWagerStatus returns the status a freshly proposed wager starts in.
// A wager naming its taker waits for that taker; otherwise it is open to anyone.
func InitialWagerStatus(hasTaker bool) WagerStatus {
	if hasTaker {
		return WagerStatusUnaccepted
	}
	return WagerStatusListed
}
