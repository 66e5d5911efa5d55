package models

import "time"

// DropTier is the referral reward rarity level.
type DropTier string

const (
	DropTierBronze   DropTier = "bronze"
	DropTierGold     DropTier = "gold"
	DropTierPlatinum DropTier = "platinum"
)

// ReferralReward is issued at most once per (referrer, referred) pair,
// when the referred user completes their badge claim. The composite
// unique index backstops the in-transaction existence check.
type ReferralReward struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerCode  string    `gorm:"not null;index;uniqueIndex:idx_referrer_referred" json:"referrer_code"`
	ReferredEmail string    `gorm:"not null;uniqueIndex:idx_referrer_referred" json:"referred_email"`
	DropTier      DropTier  `gorm:"not null" json:"drop_tier"`
	RepRange      string    `gorm:"not null" json:"rep_range"` // display range, e.g. "50-100"
	RepEarned     int64     `gorm:"not null" json:"rep_earned"`
	EarnedAt      time.Time `gorm:"not null;index" json:"earned_at"`
}
