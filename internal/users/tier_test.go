package users

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		spent string
		want  enums.LoyaltyTier
	}{
		{"0", enums.LoyaltyTierBronze},
		{"999.99", enums.LoyaltyTierBronze},
		{"1000", enums.LoyaltyTierSilver},
		{"1200", enums.LoyaltyTierSilver},
		{"4999.99", enums.LoyaltyTierSilver},
		{"5000", enums.LoyaltyTierGold},
		{"9999.99", enums.LoyaltyTierGold},
		{"10000", enums.LoyaltyTierPlatinum},
		{"250000", enums.LoyaltyTierPlatinum},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(decimal.RequireFromString(tc.spent)), "spent %s", tc.spent)
	}
}
