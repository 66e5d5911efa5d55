package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"early-badge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DropTierConfig is one row of the referral drop table.
type DropTierConfig struct {
	Tier   models.DropTier
	Weight int
	RepMin int64
	RepMax int64
}

// DefaultDropTable holds the tier odds and REP ranges. Deliberately a
// table rather than constants scattered through the draw code, so the
// odds can be retuned (or injected in tests) without touching logic.
var DefaultDropTable = []DropTierConfig{
	{Tier: models.DropTierBronze, Weight: 70, RepMin: 50, RepMax: 100},
	{Tier: models.DropTierGold, Weight: 25, RepMin: 150, RepMax: 300},
	{Tier: models.DropTierPlatinum, Weight: 5, RepMin: 400, RepMax: 1000},
}

// ReferralService resolves referral rewards when a referred user
// completes their claim. Persistence of the reward rows lives here;
// the claim transaction drives the resolution.
type ReferralService struct {
	DB    *gorm.DB
	Table []DropTierConfig
}

func NewReferralService(db *gorm.DB, table []DropTierConfig) *ReferralService {
	if len(table) == 0 {
		table = DefaultDropTable
	}
	return &ReferralService{DB: db, Table: table}
}

func (s *ReferralService) drawTier() DropTierConfig {
	total := 0
	for _, t := range s.Table {
		total += t.Weight
	}
	n := rand.Intn(total)
	for _, t := range s.Table {
		if n < t.Weight {
			return t
		}
		n -= t.Weight
	}
	return s.Table[len(s.Table)-1]
}

// ResolveReward issues the referral drop for (referrerCode,
// referredEmail) exactly once, inside the caller's transaction. A
// second resolution for the same pair is a silent no-op; the composite
// unique index backstops any race the existence check misses.
func (s *ReferralService) ResolveReward(tx *gorm.DB, referrerCode, referredEmail string) (*models.ReferralReward, error) {
	var existing models.ReferralReward
	err := tx.Where("referrer_code = ? AND referred_email = ?", referrerCode, referredEmail).First(&existing).Error
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var referrer models.BadgeUser
	err = tx.Where("referral_code = ?", referrerCode).First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Dead referral code: the claim still succeeds, there is just
		// nobody to reward.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tier := s.drawTier()
	reward := models.ReferralReward{
		ID:            uuid.NewString(),
		ReferrerCode:  referrerCode,
		ReferredEmail: referredEmail,
		DropTier:      tier.Tier,
		RepRange:      fmt.Sprintf("%d-%d", tier.RepMin, tier.RepMax),
		RepEarned:     tier.RepMin + rand.Int63n(tier.RepMax-tier.RepMin+1),
		EarnedAt:      time.Now(),
	}
	if err := tx.Create(&reward).Error; err != nil {
		return nil, err
	}

	referrer.SuccessfulReferrals++
	if err := tx.Save(&referrer).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// RewardsByReferrer lists a referrer's drops, newest first.
func (s *ReferralService) RewardsByReferrer(referrerCode string) ([]models.ReferralReward, error) {
	var rewards []models.ReferralReward
	err := s.DB.Where("referrer_code = ?", referrerCode).
		Order("earned_at DESC").
		Find(&rewards).Error
	return rewards, err
}
