package models

import "time"

// SpinResult records the single reward-wheel outcome per user. The
// unique email index is what makes a concurrent double spin impossible.
type SpinResult struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	RepEarned int64     `gorm:"not null" json:"rep_earned"`
	SpunAt    time.Time `gorm:"not null" json:"spun_at"`
}
