package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bounty-hunter-agent/models"
)

func TestNormalizeStructuredListing(t *testing.T) {
	deadline := time.Now().UTC().Add(7 * 24 * time.Hour)
	raw := RawListing{
		SourceID:    "4321",
		Title:       "Build a staking dashboard",
		Description: "Simple React frontend work",
		Reward:      750,
		RewardToken: "USDC",
		Network:     "matic",
		Deadline:    &deadline,
		Open:        true,
		Skills:      []string{"React", "TypeScript"},
		Structured:  true,
	}

	b := Normalize(raw, models.PlatformGitcoin)
	require.NotNil(t, b)
	require.Equal(t, "gitcoin-4321", b.ID)
	require.Equal(t, models.ChainPolygon, b.Chain)
	require.Equal(t, models.PlatformGitcoin, b.Platform)
	require.Equal(t, 750.0, b.Reward)
	require.Equal(t, models.DifficultyBeginner, b.Difficulty, "description says simple")
	require.Equal(t, models.StringList{"React", "TypeScript"}, b.Requirements)
	require.True(t, b.Claimable)
	require.False(t, b.Claimed)
	require.WithinDuration(t, deadline, b.Deadline, time.Second)
}

func TestNormalizeRejectsStructuredWithoutReward(t *testing.T) {
	raw := RawListing{
		SourceID:   "99",
		Title:      "Mystery task",
		Open:       true,
		Structured: true,
	}
	require.Nil(t, Normalize(raw, models.PlatformDework))
}

func TestNormalizeRejectsMissingTitle(t *testing.T) {
	raw := RawListing{
		SourceID:   "77",
		Reward:     500,
		Open:       true,
		Structured: true,
	}
	require.Nil(t, Normalize(raw, models.PlatformGitcoin))
}

func TestNormalizeExtractsRewardFromContent(t *testing.T) {
	raw := RawListing{
		Title:      "Write docs for our protocol",
		Content:    "Bounty: write documentation for the API. Reward: $1,250.00 paid in USDC on arbitrum.",
		Open:       true,
		Structured: false,
	}

	b := Normalize(raw, models.PlatformLayer3)
	require.NotNil(t, b)
	require.Equal(t, 1250.0, b.Reward)
	require.Equal(t, "USDC", b.RewardToken)
	require.Equal(t, models.ChainArbitrum, b.Chain)
}

func TestNormalizeContentFallbackReward(t *testing.T) {
	raw := RawListing{
		Title:      "Community quest with unknown payout",
		Content:    "Join our community quest and earn rewards for participating.",
		Open:       true,
		Structured: false,
	}

	b := Normalize(raw, models.PlatformLayer3)
	require.NotNil(t, b)
	// Placeholder amount for unparsable content rewards
	require.GreaterOrEqual(t, b.Reward, 50.0)
	require.Less(t, b.Reward, 550.0)
}

func TestNormalizeSlugIDForContentListings(t *testing.T) {
	raw := RawListing{
		Title:      "Design a New Logo!",
		Content:    "Design a new logo for our project, reward $300",
		Open:       true,
		Structured: false,
	}

	b := Normalize(raw, models.PlatformSuperteam)
	require.NotNil(t, b)
	require.True(t, strings.HasPrefix(b.ID, "superteam-"), "got %s", b.ID)
	require.NotEqual(t, "superteam-", b.ID)
}

func TestNormalizeSuperteamDefaultsToSolana(t *testing.T) {
	raw := RawListing{
		Title:      "Translate announcement post",
		Content:    "Translate our announcement, reward $100 for the best translation.",
		Open:       true,
		Structured: false,
	}

	b := Normalize(raw, models.PlatformSuperteam)
	require.NotNil(t, b)
	require.Equal(t, models.ChainSolana, b.Chain)
}

func TestNormalizeCategoryInference(t *testing.T) {
	cases := []struct {
		title    string
		expected models.Category
	}{
		{"Fix smart contract overflow", models.CategoryDevelopment},
		{"Design a brand logo", models.CategoryDesign},
		{"Grow our twitter community", models.CategoryMarketing},
		{"Critical security vulnerability hunt", models.CategoryBugBounty},
	}

	for _, tc := range cases {
		raw := RawListing{
			SourceID:   "1",
			Title:      tc.title,
			Reward:     100,
			Open:       true,
			Structured: true,
		}
		b := Normalize(raw, models.PlatformGitcoin)
		require.NotNil(t, b, tc.title)
		require.Equal(t, tc.expected, b.Category, tc.title)
	}
}

func TestNormalizeDefaultDeadline(t *testing.T) {
	raw := RawListing{
		SourceID:   "5",
		Title:      "Untimed task",
		Reward:     100,
		Open:       true,
		Structured: true,
	}

	b := Normalize(raw, models.PlatformGitcoin)
	require.NotNil(t, b)
	require.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), b.Deadline, time.Minute)
}
