package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bounty-hunter-agent/models"
)

func testBounty(reward float64, daysOut int, now time.Time) models.Bounty {
	return models.Bounty{
		ID:         "gitcoin-test",
		Title:      "Test bounty",
		Reward:     reward,
		Chain:      models.ChainEthereum,
		Platform:   models.PlatformGitcoin,
		Category:   models.CategoryDevelopment,
		Difficulty: models.DifficultyBeginner,
		Deadline:   now.Add(time.Duration(daysOut) * 24 * time.Hour),
		Claimable:  true,
	}
}

func TestScoreDeterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := testBounty(750, 5, now)

	first := Score(&b, now)
	second := Score(&b, now)
	require.Equal(t, first, second)
}

func TestScoreMonotonicInReward(t *testing.T) {
	now := time.Unix(1700000000, 0)

	prev := -1
	for _, reward := range []float64{0, 10, 100, 500, 1000, 5000, 10000, 25000, 100000} {
		b := testBounty(reward, 10, now)
		score := Score(&b, now)
		require.GreaterOrEqual(t, score, prev, "score decreased at reward %.0f", reward)
		prev = score
	}

	// The reward term saturates at 40 points once min(reward/100, 100) caps
	atCap := testBounty(10000, 10, now)
	aboveCap := testBounty(250000, 10, now)
	require.Equal(t, Score(&atCap, now), Score(&aboveCap, now))
}

func TestScoreUrgencyTiers(t *testing.T) {
	now := time.Unix(1700000000, 0)

	day1 := testBounty(100, 1, now)
	day3 := testBounty(100, 3, now)
	day7 := testBounty(100, 7, now)
	day30 := testBounty(100, 30, now)

	s1, s3, s7, s30 := Score(&day1, now), Score(&day3, now), Score(&day7, now), Score(&day30, now)
	require.Greater(t, s1, s3)
	require.Greater(t, s3, s7)
	require.Greater(t, s7, s30)
	require.Equal(t, 25-10, s1-s30)
}

func TestRankOrdersByRewardWhenOtherFactorsEqual(t *testing.T) {
	now := time.Unix(1700000000, 0)

	big := testBounty(2000, 10, now)
	big.ID = "gitcoin-big"
	small := testBounty(50, 10, now)
	small.ID = "gitcoin-small"
	mid := testBounty(900, 10, now)
	mid.ID = "gitcoin-mid"

	ranked := Rank([]models.Bounty{small, big, mid}, now)
	require.Len(t, ranked, 3)
	require.Equal(t, "gitcoin-big", ranked[0].ID)
	require.Equal(t, "gitcoin-mid", ranked[1].ID)
	require.Equal(t, "gitcoin-small", ranked[2].ID)
}

func TestRankStableOnTies(t *testing.T) {
	now := time.Unix(1700000000, 0)

	first := testBounty(100, 10, now)
	first.ID = "gitcoin-first"
	second := testBounty(100, 10, now)
	second.ID = "gitcoin-second"

	ranked := Rank([]models.Bounty{first, second}, now)
	require.Equal(t, ranked[0].Score, ranked[1].Score)
	require.Equal(t, "gitcoin-first", ranked[0].ID)
	require.Equal(t, "gitcoin-second", ranked[1].ID)
}

func TestAnalyzeAdvisoryFields(t *testing.T) {
	now := time.Unix(1700000000, 0)

	b := testBounty(1500, 1, now)
	b.Requirements = nil
	score := Score(&b, now)
	analysis := Analyze(&b, score, now)

	require.Equal(t, "high", analysis.Claimability, "no requirements means high claimability")
	require.Equal(t, "high", analysis.RiskLevel, "reward above 1000 is high risk")
	require.Equal(t, "high", analysis.EstimatedEffort, "development is high effort")
	require.InDelta(t, 1500*0.4, analysis.Profitability, 0.001)
	require.Contains(t, analysis.Recommendations, "High value - verify legitimacy before claiming")
	require.Contains(t, analysis.Recommendations, "No requirements - ideal for automated claiming")
	require.Contains(t, analysis.Recommendations, "Urgent - deadline approaching")
}

func TestAnalyzeSocialRequirements(t *testing.T) {
	now := time.Unix(1700000000, 0)

	b := testBounty(200, 10, now)
	b.Platform = models.PlatformGitcoin
	b.Requirements = models.StringList{"Twitter thread"}
	analysis := Analyze(&b, Score(&b, now), now)

	require.Equal(t, "medium", analysis.Claimability)
	require.Equal(t, "low", analysis.RiskLevel, "gitcoin under 1000 is low risk")
}
