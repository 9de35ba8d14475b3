package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bounty-hunter-agent/models"
)

func scoredBounty(id string, reward float64, daysOut int, now time.Time) models.ScoredBounty {
	b := testBounty(reward, daysOut, now)
	b.ID = id
	return models.ScoredBounty{Bounty: b, Score: 50}
}

func autoClaimUser() *models.HunterUser {
	return &models.HunterUser{
		ID:            "user-1",
		WalletAddress: "0xCf2126b7e17b53D600323a7E37Be49AD15BcaF94",
		Preferences:   models.Preferences{AutoClaimEnabled: true},
	}
}

func TestFilterRespectsRewardBounds(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()
	maxReward := float64(200)
	user.Preferences.MinReward = 100
	user.Preferences.MaxReward = &maxReward

	ranked := []models.ScoredBounty{
		scoredBounty("b-50", 50, 10, now),
		scoredBounty("b-150", 150, 10, now),
		scoredBounty("b-500", 500, 10, now),
	}

	eligible := FilterForUser(ranked, user, now)
	require.Len(t, eligible, 1)
	require.Equal(t, "b-150", eligible[0].ID)
}

func TestFilterRespectsDeadline(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()

	expired := scoredBounty("b-expired", 100, 0, now)
	expired.Deadline = now.Add(-time.Hour)
	atNow := scoredBounty("b-at-now", 100, 0, now)
	atNow.Deadline = now
	future := scoredBounty("b-future", 100, 5, now)

	eligible := FilterForUser([]models.ScoredBounty{expired, atNow, future}, user, now)
	require.Len(t, eligible, 1)
	require.Equal(t, "b-future", eligible[0].ID)
}

func TestFilterRespectsChainAndCategoryPreferences(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()
	user.Preferences.Chains = models.StringList{"solana"}
	user.Preferences.Categories = models.StringList{"marketing"}

	match := scoredBounty("b-match", 100, 10, now)
	match.Chain = models.ChainSolana
	match.Category = models.CategoryMarketing

	wrongChain := scoredBounty("b-chain", 100, 10, now)
	wrongChain.Category = models.CategoryMarketing

	wrongCategory := scoredBounty("b-cat", 100, 10, now)
	wrongCategory.Chain = models.ChainSolana

	eligible := FilterForUser([]models.ScoredBounty{match, wrongChain, wrongCategory}, user, now)
	require.Len(t, eligible, 1)
	require.Equal(t, "b-match", eligible[0].ID)
}

func TestFilterSkipsOwnPriorClaim(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()

	own := scoredBounty("b-own", 100, 10, now)
	own.ClaimedBy = user.WalletAddress
	other := scoredBounty("b-other", 100, 10, now)
	other.ClaimedBy = "0x0000000000000000000000000000000000000001"

	eligible := FilterForUser([]models.ScoredBounty{own, other}, user, now)
	require.Len(t, eligible, 1)
	require.Equal(t, "b-other", eligible[0].ID)
}

func TestFilterSkipsUnclaimable(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()

	closed := scoredBounty("b-closed", 100, 10, now)
	closed.Claimable = false
	open := scoredBounty("b-open", 100, 10, now)

	eligible := FilterForUser([]models.ScoredBounty{closed, open}, user, now)
	require.Len(t, eligible, 1)
	require.Equal(t, "b-open", eligible[0].ID)
}

func TestFilterPreservesRankedOrder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()

	ranked := []models.ScoredBounty{
		scoredBounty("b-1", 300, 10, now),
		scoredBounty("b-2", 200, 10, now),
		scoredBounty("b-3", 100, 10, now),
	}

	eligible := FilterForUser(ranked, user, now)
	require.Len(t, eligible, 3)
	require.Equal(t, "b-1", eligible[0].ID)
	require.Equal(t, "b-2", eligible[1].ID)
	require.Equal(t, "b-3", eligible[2].ID)
}

func TestFilterDefaultMaxReward(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := autoClaimUser()

	within := scoredBounty("b-within", models.DefaultMaxReward, 10, now)
	above := scoredBounty("b-above", models.DefaultMaxReward+1, 10, now)

	eligible := FilterForUser([]models.ScoredBounty{within, above}, user, now)
	require.Len(t, eligible, 1)
	require.Equal(t, "b-within", eligible[0].ID)
}
