package services

import (
	"errors"
	"log"
	"time"

	"early-badge-system/models"

	"gorm.io/gorm"
)

// ClaimService gates the final badge claim on the verification ledger
// and resolves the referral reward in the same transaction.
type ClaimService struct {
	DB        *gorm.DB
	Referrals *ReferralService
	Cache     *Cache
}

func NewClaimService(db *gorm.DB, referrals *ReferralService, cache *Cache) *ClaimService {
	return &ClaimService{DB: db, Referrals: referrals, Cache: cache}
}

// ClaimOutcome reports a successful claim and any referral reward it
// triggered for the referrer.
type ClaimOutcome struct {
	User           *models.BadgeUser      `json:"user"`
	ReferralReward *models.ReferralReward `json:"referral_reward,omitempty"`
}

// Claim issues the badge. The badge_issued flip is a conditional update
// checked via RowsAffected, so two concurrent claims can both read an
// eligible user but only one performs the terminal transition; the
// loser sees AlreadyClaimed. referralCode backfills referred_by when
// the user has no attribution yet (e.g. the ref arrived late via URL).
func (s *ClaimService) Claim(email, referralCode string) (*ClaimOutcome, error) {
	var outcome ClaimOutcome
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.BadgeUser
		err := tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if user.BadgeIssued {
			return ErrAlreadyClaimed
		}
		if !CanClaim(user.Flags()) {
			return ErrNotEligible
		}

		if referralCode != "" && user.ReferredBy == nil && referralCode != user.ReferralCode {
			user.ReferredBy = &referralCode
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		res := tx.Model(&models.BadgeUser{}).
			Where("email = ? AND badge_issued = ?", email, false).
			Updates(map[string]interface{}{
				"badge_issued":    true,
				"badge_issued_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyClaimed
		}
		user.BadgeIssued = true
		user.BadgeIssuedAt = &now

		if user.ReferredBy != nil {
			reward, err := s.Referrals.ResolveReward(tx, *user.ReferredBy, email)
			if err != nil {
				return err
			}
			outcome.ReferralReward = reward
		}

		outcome.User = &user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.InvalidateDashboard(email)
	if outcome.ReferralReward != nil {
		// The referrer's dashboard changed too.
		if referrer, err := s.referrerEmail(outcome.ReferralReward.ReferrerCode); err == nil {
			s.Cache.InvalidateDashboard(referrer)
		}
		log.Printf("🎁 Referral drop issued: %s → %s (%s, %d REP)",
			outcome.ReferralReward.ReferrerCode, email,
			outcome.ReferralReward.DropTier, outcome.ReferralReward.RepEarned)
	}
	log.Printf("🎖️ Badge claimed by %s", email)
	return &outcome, nil
}

func (s *ClaimService) referrerEmail(referrerCode string) (string, error) {
	var referrer models.BadgeUser
	if err := s.DB.Where("referral_code = ?", referrerCode).First(&referrer).Error; err != nil {
		return "", err
	}
	return referrer.Email, nil
}
