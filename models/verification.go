package models

import "time"

// EmailVerificationCode holds the single active login code per email.
// A resend replaces the row; a successful verify deletes it.
type EmailVerificationCode struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	Code       string    `gorm:"not null" json:"-"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	LastSentAt time.Time `gorm:"not null" json:"last_sent_at"`
}

// OAuthState is a single-use OAuth round-trip token. The row is deleted
// when the callback consumes it, so a replayed state fails.
type OAuthState struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	State        string    `gorm:"uniqueIndex;not null" json:"-"`
	Platform     string    `gorm:"not null" json:"platform"` // twitter | discord
	Email        string    `gorm:"not null" json:"email"`
	ReferralCode string    `json:"referral_code,omitempty"`
	CodeVerifier string    `json:"-"` // Twitter PKCE only
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
