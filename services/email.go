package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"early-badge-system/models"
	"early-badge-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	codeTTL        = 10 * time.Minute
	resendCooldown = 60 * time.Second
)

// EmailService runs the code-based login verification. Instant signup
// for brand-new emails is handled by UserService.RegisterInstant; this
// path is for returning users proving control of their address.
type EmailService struct {
	DB     *gorm.DB
	Mailer *utils.Mailer
}

func NewEmailService(db *gorm.DB, mailer *utils.Mailer) *EmailService {
	return &EmailService{DB: db, Mailer: mailer}
}

// The code is a bearer secret, so it is drawn from crypto/rand like the
// OAuth state tokens.
func generateVerificationCode() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	return fmt.Sprintf("%06d", n)
}

// SendCode generates a fresh 6-digit code, invalidating any prior
// outstanding code for the email, and dispatches it. The cooldown is
// enforced here, not just in the client, so hammering resend cannot
// turn the mailer into a spam cannon.
func (s *EmailService) SendCode(email string) error {
	now := time.Now()
	var sendCode string

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.EmailVerificationCode
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			if now.Sub(existing.LastSentAt) < resendCooldown {
				return ErrResendCooldown
			}
			existing.Code = generateVerificationCode()
			existing.ExpiresAt = now.Add(codeTTL)
			existing.LastSentAt = now
			sendCode = existing.Code
			return tx.Save(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		record := models.EmailVerificationCode{
			ID:         uuid.NewString(),
			Email:      email,
			Code:       generateVerificationCode(),
			ExpiresAt:  now.Add(codeTTL),
			LastSentAt: now,
		}
		sendCode = record.Code
		return tx.Create(&record).Error
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendVerificationCode(email, sendCode); err != nil {
		log.Printf("❌ Failed to send verification email to %s: %v", email, err)
		return err
	}
	log.Printf("✅ Verification code sent to %s", email)
	return nil
}

// VerifyCode checks the submitted code against the single active one.
// On success the code row is consumed, the email flag is set, and a
// user row is created if one does not exist yet.
func (s *EmailService) VerifyCode(email, code string) (*models.BadgeUser, error) {
	var user models.BadgeUser
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var record models.EmailVerificationCode
		err := tx.Where("email = ?", email).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		if err != nil {
			return err
		}

		if time.Now().After(record.ExpiresAt) {
			// Expired codes are gone for good; the user must request a
			// new one.
			if err := tx.Delete(&record).Error; err != nil {
				return err
			}
			return ErrCodeExpired
		}
		if record.Code != code {
			return ErrInvalidCode
		}

		// Consume the code so it cannot be replayed.
		if err := tx.Delete(&record).Error; err != nil {
			return err
		}

		now := time.Now()
		err = tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			refCode, err := uniqueReferralCode(tx)
			if err != nil {
				return err
			}
			user = models.BadgeUser{
				ID:              uuid.NewString(),
				Email:           email,
				EmailAdded:      true,
				EmailVerifiedAt: &now,
				ReferralCode:    refCode,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			log.Printf("✅ Created user %s via code verification", email)
			return nil
		}
		if err != nil {
			return err
		}

		user.EmailAdded = true
		user.EmailVerifiedAt = &now
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PurgeExpiredCodes removes dead code rows. Called by the cleanup job.
func (s *EmailService) PurgeExpiredCodes() (int64, error) {
	res := s.DB.Where("expires_at < ?", time.Now()).Delete(&models.EmailVerificationCode{})
	return res.RowsAffected, res.Error
}
