package users

import (
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

var (
	silverThreshold   = decimal.NewFromInt(1000)
	goldThreshold     = decimal.NewFromInt(5000)
	platinumThreshold = decimal.NewFromInt(10000)
)

// TierFor derives the loyalty tier from lifetime spend.
func TierFor(totalSpent decimal.Decimal) enums.LoyaltyTier {
	switch {
	case totalSpent.LessThan(silverThreshold):
		return enums.LoyaltyTierBronze
	case totalSpent.LessThan(goldThreshold):
		return enums.LoyaltyTierSilver
	case totalSpent.LessThan(platinumThreshold):
		return enums.LoyaltyTierGold
	default:
		return enums.LoyaltyTierPlatinum
	}
}
