package services

import (
	"context"
	"time"

	"early-badge-system/models"

	"gorm.io/gorm"
)

const dashboardCacheTTL = 30 * time.Second

// DashboardService aggregates the post-claim view: referral stats,
// drops by tier, earned REP, wheel state.
type DashboardService struct {
	DB        *gorm.DB
	Users     *UserService
	Referrals *ReferralService
	Wheel     *WheelService
	Cache     *Cache
}

func NewDashboardService(db *gorm.DB, users *UserService, referrals *ReferralService, wheel *WheelService, cache *Cache) *DashboardService {
	return &DashboardService{DB: db, Users: users, Referrals: referrals, Wheel: wheel, Cache: cache}
}

type DashboardUser struct {
	ReferralCode        string `json:"referral_code"`
	SuccessfulReferrals int64  `json:"successful_referrals"`
}

type DashboardDrops struct {
	Bronze   int64                   `json:"bronze"`
	Gold     int64                   `json:"gold"`
	Platinum int64                   `json:"platinum"`
	Total    int64                   `json:"total"`
	Recent   []models.ReferralReward `json:"recent"`
}

type DashboardResponse struct {
	User        DashboardUser  `json:"user"`
	TotalRep    int64          `json:"total_rep"`
	Drops       DashboardDrops `json:"drops"`
	WheelStatus *WheelStatus   `json:"wheel_status"`
}

const recentDropLimit = 10

// Get builds the dashboard, serving the cached copy when fresh.
func (s *DashboardService) Get(ctx context.Context, email string) (*DashboardResponse, error) {
	var cached DashboardResponse
	if s.Cache.GetDashboard(ctx, email, &cached) {
		return &cached, nil
	}

	user, err := s.Users.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	rewards, err := s.Referrals.RewardsByReferrer(user.ReferralCode)
	if err != nil {
		return nil, err
	}

	drops := DashboardDrops{Recent: []models.ReferralReward{}}
	var dropRep int64
	for _, r := range rewards {
		switch r.DropTier {
		case models.DropTierBronze:
			drops.Bronze++
		case models.DropTierGold:
			drops.Gold++
		case models.DropTierPlatinum:
			drops.Platinum++
		}
		drops.Total++
		dropRep += r.RepEarned
		if len(drops.Recent) < recentDropLimit {
			drops.Recent = append(drops.Recent, r)
		}
	}

	wheelStatus, err := s.Wheel.Status(email)
	if err != nil {
		return nil, err
	}
	var spinRep int64
	if wheelStatus.SpinData != nil {
		spinRep = wheelStatus.SpinData.RepEarned
	}

	resp := &DashboardResponse{
		User: DashboardUser{
			ReferralCode:        user.ReferralCode,
			SuccessfulReferrals: user.SuccessfulReferrals,
		},
		TotalRep:    dropRep + spinRep,
		Drops:       drops,
		WheelStatus: wheelStatus,
	}
	s.Cache.SetDashboard(ctx, email, resp, dashboardCacheTTL)
	return resp, nil
}
