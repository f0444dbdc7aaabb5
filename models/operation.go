package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OperationType represents the action a user takes against a wager
type OperationType string

const (
	OperationTypePropose OperationType = "PROPOSE"
	OperationTypeAccept  OperationType = "ACCEPT"
	OperationTypeReject  OperationType = "REJECT"
	OperationTypeCancel  OperationType = "CANCEL"
	OperationTypeTake    OperationType = "TAKE"
	OperationTypeClose   OperationType = "CLOSE"
	OperationTypeAppeal  OperationType = "APPEAL"
)

// AllOperationTypes returns every known operation type
func AllOperationTypes() []OperationType {
	return []OperationType{
		OperationTypePropose,
		OperationTypeAccept,
		OperationTypeReject,
		OperationTypeCancel,
		OperationTypeTake,
		OperationTypeClose,
		OperationTypeAppeal,
	}
}

// IsValid checks that the operation type is one of the known values
func (t OperationType) IsValid() bool {
	for _, known := range AllOperationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseOperationType converts a raw value into a known OperationType
func ParseOperationType(s string) (OperationType, error) {
	t := OperationType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown operation type %q", s)
	}
	return t, nil
}

// Operation is an append-only audit record of one action taken against a wager.
// UserID and WagerID are nil only between creation and linking inside a transaction.
type Operation struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Type      OperationType `db:"type" json:"type"`
	UserID    *uuid.UUID    `db:"user_id" json:"userId"`
	WagerID   *uuid.UUID    `db:"wager_id" json:"wagerId"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}
