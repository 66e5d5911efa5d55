package services

import (
	"strconv"
	"strings"
	"testing"

	"early-badge-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRewardIssuesDrop(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, nil)
	referrer := seedUser(t, db, "referrer@example.com", allFlags())

	reward, err := svc.ResolveReward(db, referrer.ReferralCode, "friend@example.com")
	require.NoError(t, err)
	require.NotNil(t, reward)
	assert.Equal(t, referrer.ReferralCode, reward.ReferrerCode)
	assert.Equal(t, "friend@example.com", reward.ReferredEmail)

	// The earned REP sits inside the advertised range of its tier.
	parts := strings.SplitN(reward.RepRange, "-", 2)
	require.Len(t, parts, 2)
	min, _ := strconv.ParseInt(parts[0], 10, 64)
	max, _ := strconv.ParseInt(parts[1], 10, 64)
	assert.GreaterOrEqual(t, reward.RepEarned, min)
	assert.LessOrEqual(t, reward.RepEarned, max)

	var updated models.BadgeUser
	require.NoError(t, db.Where("email = ?", "referrer@example.com").First(&updated).Error)
	assert.Equal(t, int64(1), updated.SuccessfulReferrals)
}

func TestResolveRewardExactlyOncePerPair(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, nil)
	referrer := seedUser(t, db, "referrer@example.com", allFlags())

	first, err := svc.ResolveReward(db, referrer.ReferralCode, "friend@example.com")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.ResolveReward(db, referrer.ReferralCode, "friend@example.com")
	require.NoError(t, err)
	assert.Nil(t, second, "re-resolution is a silent no-op")

	var updated models.BadgeUser
	require.NoError(t, db.Where("email = ?", "referrer@example.com").First(&updated).Error)
	assert.Equal(t, int64(1), updated.SuccessfulReferrals, "counter not double-incremented")
}

func TestResolveRewardDeadCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, nil)

	reward, err := svc.ResolveReward(db, "GHOST000", "friend@example.com")
	require.NoError(t, err)
	assert.Nil(t, reward)
}

func TestResolveRewardDistinctReferreds(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferralService(db, nil)
	referrer := seedUser(t, db, "referrer@example.com", allFlags())

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		reward, err := svc.ResolveReward(db, referrer.ReferralCode, email)
		require.NoError(t, err)
		require.NotNil(t, reward)
	}

	rewards, err := svc.RewardsByReferrer(referrer.ReferralCode)
	require.NoError(t, err)
	assert.Len(t, rewards, 3)

	var updated models.BadgeUser
	require.NoError(t, db.Where("email = ?", "referrer@example.com").First(&updated).Error)
	assert.Equal(t, int64(3), updated.SuccessfulReferrals)
}

func TestDrawTierDistribution(t *testing.T) {
	svc := NewReferralService(nil, nil)

	const draws = 100000
	counts := map[models.DropTier]int{}
	for i := 0; i < draws; i++ {
		counts[svc.drawTier().Tier]++
	}

	for _, tier := range DefaultDropTable {
		got := float64(counts[tier.Tier]) / draws
		want := float64(tier.Weight) / 100
		assert.InDelta(t, want, got, 0.01, "tier %s frequency", tier.Tier)
	}
}
