package services

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"early-badge-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.BadgeUser{},
		&models.EmailVerificationCode{},
		&models.OAuthState{},
		&models.SpinResult{},
		&models.ReferralReward{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

// seedUser inserts a ledger row with the given flag state.
func seedUser(t *testing.T, db *gorm.DB, email string, flags models.VerificationFlags) *models.BadgeUser {
	t.Helper()
	now := time.Now()
	user := models.BadgeUser{
		ID:              uuid.NewString(),
		Email:           email,
		EmailAdded:      flags.Email,
		TwitterFollowed: flags.Twitter,
		TelegramJoined:  flags.Telegram,
		DiscordJoined:   flags.Discord,
		ReferralCode:    generateReferralCode(),
	}
	if flags.Email {
		user.EmailVerifiedAt = &now
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return &user
}

func allFlags() models.VerificationFlags {
	return models.VerificationFlags{Email: true, Twitter: true, Telegram: true, Discord: true}
}

// stateParam extracts the OAuth state from an authorize URL.
func stateParam(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	return u.Query().Get("state")
}
