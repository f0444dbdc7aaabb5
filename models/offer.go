package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Currency is the denomination of an offer
type Currency string

const (
	CurrencyCAD Currency = "CAD"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency converts a raw value into a known Currency
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(s); c {
	case CurrencyCAD, CurrencyUSD:
		return c, nil
	default:
		return "", fmt.Errorf("unknown currency %q", s)
	}
}

// OfferRole is the side of the wager an offer belongs to
type OfferRole string

const (
	OfferRoleMaker OfferRole = "maker"
	OfferRoleTaker OfferRole = "taker"
)

// Offer represents one side's stake terms within a wager
type Offer struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	WagerID       uuid.UUID  `db:"wager_id" json:"wagerId"`
	Role          OfferRole  `db:"role" json:"role"`
	Currency      Currency   `db:"currency" json:"currency"`
	AmountInCents int64      `db:"amount_in_cents" json:"amountInCents"`
	Description   string     `db:"description" json:"description"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
}
