package testutil

import (
	"time"

	"wagerbook/models"
)

// CreateTestOffer creates an offer with default values
func CreateTestOffer(role models.OfferRole, amountInCents int64) *models.Offer {
	return &models.Offer{
		Role:          role,
		Currency:      models.CurrencyCAD,
		AmountInCents: amountInCents,
		Description:   "a coffee",
	}
}

// CreateTestWager creates an unsaved listed wager with both offers
func CreateTestWager(outcome string) *models.Wager {
	return &models.Wager{
		Outcome:    outcome,
		Status:     models.WagerStatusListed,
		MakerOffer: CreateTestOffer(models.OfferRoleMaker, 500),
		TakerOffer: CreateTestOffer(models.OfferRoleTaker, 500),
	}
}

// CreateTestWagerWithExpiration creates an unsaved wager that expires at the given time
func CreateTestWagerWithExpiration(outcome string, expiration time.Time) *models.Wager {
	wager := CreateTestWager(outcome)
	wager.Expiration = &expiration
	return wager
}
