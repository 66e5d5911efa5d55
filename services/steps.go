package services

import "early-badge-system/models"

// Step is a UI step of the badge quest. NextStep is a pure function of
// the persisted flags, so a reload or resumed session always lands on
// the right step regardless of what the client last showed.
type Step string

const (
	StepEmail     Step = "email"
	StepTwitter   Step = "twitter"
	StepTelegram  Step = "telegram"
	StepDiscord   Step = "discord"
	StepSummary   Step = "summary"
	StepDashboard Step = "dashboard"
)

// NextStep returns the first unfinished step in fixed order
// email → twitter → telegram → discord, then summary once all four are
// set, and dashboard once the badge is claimed.
func NextStep(flags models.VerificationFlags, badgeIssued bool) Step {
	if badgeIssued {
		return StepDashboard
	}
	switch {
	case !flags.Email:
		return StepEmail
	case !flags.Twitter:
		return StepTwitter
	case !flags.Telegram:
		return StepTelegram
	case !flags.Discord:
		return StepDiscord
	}
	return StepSummary
}

// CanClaim reports whether all four verification channels are complete.
func CanClaim(flags models.VerificationFlags) bool {
	return flags.Email && flags.Twitter && flags.Telegram && flags.Discord
}
