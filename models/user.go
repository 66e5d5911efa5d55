package models

import (
	"time"
)

// BadgeUser is the authoritative per-user verification/claim ledger row.
// Keyed by email; provider IDs carry unique indexes so one external
// account can never back two badges.
type BadgeUser struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	TelegramID *string `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	DiscordID  *string `gorm:"uniqueIndex" json:"discord_id,omitempty"`
	TwitterID  *string `gorm:"uniqueIndex" json:"twitter_id,omitempty"`

	TelegramUsername string `json:"telegram_username,omitempty"`
	DiscordUsername  string `json:"discord_username,omitempty"`
	TwitterUsername  string `json:"twitter_username,omitempty"`

	EmailAdded      bool `gorm:"default:false" json:"email_added"`
	TwitterFollowed bool `gorm:"default:false" json:"twitter_followed"`
	TelegramJoined  bool `gorm:"default:false" json:"telegram_joined"`
	DiscordJoined   bool `gorm:"default:false" json:"discord_joined"`

	BadgeIssued   bool       `gorm:"default:false;index" json:"badge_issued"`
	BadgeIssuedAt *time.Time `json:"badge_issued_at,omitempty"`

	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`

	ReferralCode        string  `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy          *string `gorm:"index" json:"referred_by,omitempty"`
	SuccessfulReferrals int64   `gorm:"default:0" json:"successful_referrals"`

	Timestamps
}

// VerificationFlags is the four-channel completion snapshot the claim
// step machine operates on.
type VerificationFlags struct {
	Email    bool `json:"email"`
	Twitter  bool `json:"twitter"`
	Telegram bool `json:"telegram"`
	Discord  bool `json:"discord"`
}

// Flags extracts the completion snapshot from the ledger row.
func (u *BadgeUser) Flags() VerificationFlags {
	return VerificationFlags{
		Email:    u.EmailAdded,
		Twitter:  u.TwitterFollowed,
		Telegram: u.TelegramJoined,
		Discord:  u.DiscordJoined,
	}
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
