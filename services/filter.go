// services/filter.go
package services

import (
	"time"

	"bounty-hunter-agent/models"
)

// FilterForUser returns the subset of ranked bounties the user may
// auto-claim, preserving the score-descending order established upstream.
// A bounty passes only if every preference and freshness check holds.
func FilterForUser(ranked []models.ScoredBounty, user *models.HunterUser, now time.Time) []models.ScoredBounty {
	prefs := user.Preferences
	maxReward := prefs.EffectiveMaxReward()

	var eligible []models.ScoredBounty
	for _, sb := range ranked {
		if sb.Reward < prefs.MinReward || sb.Reward > maxReward {
			continue
		}
		if !prefs.AllowsChain(sb.Chain) {
			continue
		}
		if !prefs.AllowsCategory(sb.Category) {
			continue
		}
		// Never re-attempt the user's own prior claim
		if sb.ClaimedBy != "" && sb.ClaimedBy == user.WalletAddress {
			continue
		}
		if !sb.Deadline.After(now) {
			continue
		}
		if !sb.Claimable {
			continue
		}
		eligible = append(eligible, sb)
	}
	return eligible
}
