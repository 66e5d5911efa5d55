package models

// Setting is a small key/value table for operator-managed values like
// the current badge artwork URL.
type Setting struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

const SettingBadgeArtURL = "badge_art_url"
