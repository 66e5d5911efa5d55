package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"early-badge-system/models"

	"gorm.io/gorm"
)

// TelegramService links Telegram accounts reported by the bot worker.
// There is no callback channel for Telegram; the client polls the
// status endpoint while the bot completes the link out-of-band.
type TelegramService struct {
	DB    *gorm.DB
	Cache *Cache

	botUsername string
}

func NewTelegramServiceFromEnv(db *gorm.DB, cache *Cache) *TelegramService {
	return &TelegramService{
		DB:          db,
		Cache:       cache,
		botUsername: os.Getenv("TELEGRAM_BOT_USERNAME"),
	}
}

// EncodeDeepLinkPayload packs email (and optional referral code) into
// the bot /start parameter.
func EncodeDeepLinkPayload(email, referralCode string) string {
	payload := email
	if referralCode != "" {
		payload = email + "|" + referralCode
	}
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// DecodeDeepLinkPayload reverses EncodeDeepLinkPayload. Tolerates
// padded and standard-alphabet variants in case an older client built
// the link.
func DecodeDeepLinkPayload(encoded string) (email, referralCode string, err error) {
	normalized := strings.TrimRight(encoded, "=")
	raw, err := base64.RawURLEncoding.DecodeString(normalized)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(normalized)
		if err != nil {
			return "", "", fmt.Errorf("decode deep link payload: %w", err)
		}
	}
	decoded := string(raw)
	if email, referralCode, ok := strings.Cut(decoded, "|"); ok {
		return email, referralCode, nil
	}
	return decoded, "", nil
}

// DeepLink returns the t.me link the client opens to start verification.
func (s *TelegramService) DeepLink(email, referralCode string) string {
	return fmt.Sprintf("https://t.me/%s?start=verify_%s", s.botUsername, EncodeDeepLinkPayload(email, referralCode))
}

// LinkWithChannelCheck records the bot-confirmed link between a
// Telegram account and an email. The flag only goes true when the bot
// saw actual channel membership. Telegram IDs already bound to another
// email are rejected so one Telegram account cannot back two badges.
func (s *TelegramService) LinkWithChannelCheck(email, telegramID, telegramUsername string, isChannelMember bool, referralCode string) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var other models.BadgeUser
		err := tx.Where("telegram_id = ? AND email <> ?", telegramID, email).First(&other).Error
		if err == nil {
			return ErrDuplicateIdentity
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var user models.BadgeUser
		err = tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		user.TelegramID = &telegramID
		user.TelegramUsername = telegramUsername
		user.TelegramJoined = isChannelMember

		if referralCode != "" && user.ReferredBy == nil && referralCode != user.ReferralCode {
			user.ReferredBy = &referralCode
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return err
	}

	s.Cache.InvalidateDashboard(email)
	log.Printf("✅ Telegram %s linked to %s (member=%t)", telegramID, email, isChannelMember)
	return nil
}
