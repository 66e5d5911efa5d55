package services

import (
	"testing"

	"early-badge-system/models"

	"github.com/stretchr/testify/assert"
)

func TestNextStepOrder(t *testing.T) {
	tests := []struct {
		name  string
		flags models.VerificationFlags
		want  Step
	}{
		{"nothing done", models.VerificationFlags{}, StepEmail},
		{"email done", models.VerificationFlags{Email: true}, StepTwitter},
		{"email and twitter done", models.VerificationFlags{Email: true, Twitter: true}, StepTelegram},
		{"only discord missing", models.VerificationFlags{Email: true, Twitter: true, Telegram: true}, StepDiscord},
		{"all done", allFlags(), StepSummary},
		// Out-of-order completion still routes to the earliest gap.
		{"discord done first", models.VerificationFlags{Discord: true}, StepEmail},
		{"twitter skipped", models.VerificationFlags{Email: true, Telegram: true, Discord: true}, StepTwitter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStep(tt.flags, false))
		})
	}
}

func TestNextStepIsPure(t *testing.T) {
	// Same flags always produce the same step, over every combination
	// and regardless of call order.
	for mask := 0; mask < 16; mask++ {
		flags := models.VerificationFlags{
			Email:    mask&1 != 0,
			Twitter:  mask&2 != 0,
			Telegram: mask&4 != 0,
			Discord:  mask&8 != 0,
		}
		first := NextStep(flags, false)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, NextStep(flags, false), "mask %04b", mask)
		}
	}
}

func TestNextStepBadgeIssuedWinsOverFlags(t *testing.T) {
	assert.Equal(t, StepDashboard, NextStep(allFlags(), true))
	// Even with an inconsistent ledger the claimed badge routes to the
	// dashboard.
	assert.Equal(t, StepDashboard, NextStep(models.VerificationFlags{}, true))
}

func TestCanClaimRequiresAllFour(t *testing.T) {
	assert.True(t, CanClaim(allFlags()))

	// Every proper subset of the four flags is ineligible.
	for mask := 0; mask < 15; mask++ {
		flags := models.VerificationFlags{
			Email:    mask&1 != 0,
			Twitter:  mask&2 != 0,
			Telegram: mask&4 != 0,
			Discord:  mask&8 != 0,
		}
		assert.False(t, CanClaim(flags), "mask %04b should not be claimable", mask)
	}
}
