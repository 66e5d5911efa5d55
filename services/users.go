package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"early-badge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateReferralCode() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = referralCodeAlphabet[rand.Intn(len(referralCodeAlphabet))]
	}
	return string(b)
}

// uniqueReferralCode draws codes until one is free. Collisions on an
// 8-char code are rare enough that the loop terminates immediately in
// practice; the unique index is the real guarantee.
func uniqueReferralCode(tx *gorm.DB) (string, error) {
	for {
		code := generateReferralCode()
		var count int64
		if err := tx.Model(&models.BadgeUser{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

// StatusResponse is the unified status payload served to the client.
// The ledger here is ground truth; OAuth redirect params are only hints.
type StatusResponse struct {
	Exists      bool                     `json:"exists"`
	Email       string                   `json:"email"`
	Tasks       models.VerificationFlags `json:"tasks"`
	CanClaim    bool                     `json:"can_claim"`
	BadgeIssued bool                     `json:"badge_issued"`
	NextStep    Step                     `json:"next_step"`
	UserData    *StatusUserData          `json:"user_data,omitempty"`
}

type StatusUserData struct {
	TelegramUsername string `json:"telegram_username,omitempty"`
	DiscordUsername  string `json:"discord_username,omitempty"`
	TwitterUsername  string `json:"twitter_username,omitempty"`
	ReferralCode     string `json:"referral_code,omitempty"`
}

// Status reports the verification ledger for an email. Unknown emails
// get an all-false snapshot rather than an error so the client can
// route a brand-new visitor to the email step.
func (s *UserService) Status(email string) (*StatusResponse, error) {
	var user models.BadgeUser
	err := s.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &StatusResponse{
			Exists:   false,
			Email:    email,
			NextStep: StepEmail,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	flags := user.Flags()
	return &StatusResponse{
		Exists:      true,
		Email:       email,
		Tasks:       flags,
		CanClaim:    CanClaim(flags),
		BadgeIssued: user.BadgeIssued,
		NextStep:    NextStep(flags, user.BadgeIssued),
		UserData: &StatusUserData{
			TelegramUsername: user.TelegramUsername,
			DiscordUsername:  user.DiscordUsername,
			TwitterUsername:  user.TwitterUsername,
			ReferralCode:     user.ReferralCode,
		},
	}, nil
}

// RegisterInstant creates an account with the email flag already set.
// New signups are trusted once (they have nothing yet to protect);
// returning users must go through the code flow instead. Idempotent:
// re-registering an existing email returns the existing row unchanged.
func (s *UserService) RegisterInstant(email, referredBy string) (*models.BadgeUser, error) {
	var user models.BadgeUser
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			// Existing account: record the referral attribution if it
			// is still vacant, nothing else changes.
			if referredBy != "" && user.ReferredBy == nil && referredBy != user.ReferralCode {
				user.ReferredBy = &referredBy
				return tx.Save(&user).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		code, err := uniqueReferralCode(tx)
		if err != nil {
			return err
		}
		now := time.Now()
		user = models.BadgeUser{
			ID:              uuid.NewString(),
			Email:           email,
			EmailAdded:      true,
			EmailVerifiedAt: &now,
			ReferralCode:    code,
		}
		if referredBy != "" && referredBy != code {
			user.ReferredBy = &referredBy
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create badge user: %w", err)
		}
		log.Printf("✅ Registered new user %s with referral code %s", email, code)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetByEmail(email string) (*models.BadgeUser, error) {
	var user models.BadgeUser
	err := s.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetByReferralCode(code string) (*models.BadgeUser, error) {
	var user models.BadgeUser
	err := s.DB.Where("referral_code = ?", code).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
