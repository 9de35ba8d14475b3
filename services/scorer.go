// services/scorer.go
package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"bounty-hunter-agent/models"
)

// Scoring weights are fixed design constants, not runtime configuration.
var platformScores = map[models.Platform]int{
	models.PlatformGitcoin:   20,
	models.PlatformLayer3:    16,
	models.PlatformDework:    14,
	models.PlatformSuperteam: 12,
}

var difficultyScores = map[models.Difficulty]int{
	models.DifficultyBeginner:     15,
	models.DifficultyIntermediate: 12,
	models.DifficultyAdvanced:     8,
}

var effortByCategory = map[models.Category]string{
	models.CategoryMarketing:   "low",
	models.CategoryDesign:      "medium",
	models.CategoryResearch:    "medium",
	models.CategoryDevelopment: "high",
	models.CategoryBugBounty:   "high",
}

var effortMultiplier = map[string]float64{
	"low":    1,
	"medium": 0.7,
	"high":   0.4,
}

// Score computes the deterministic ranking score for a bounty.
// Reward contributes up to 40 points (capped), urgency up to 25,
// platform reliability up to 20, difficulty up to 15.
func Score(b *models.Bounty, now time.Time) int {
	score := math.Min(b.Reward/100, 100) * 0.4

	daysLeft := daysUntil(b.Deadline, now)
	switch {
	case daysLeft <= 1:
		score += 25
	case daysLeft <= 3:
		score += 20
	case daysLeft <= 7:
		score += 15
	default:
		score += 10
	}

	if p, ok := platformScores[b.Platform]; ok {
		score += float64(p)
	} else {
		score += 8
	}

	if d, ok := difficultyScores[b.Difficulty]; ok {
		score += float64(d)
	} else {
		score += 10
	}

	return int(math.Round(score))
}

// daysUntil counts whole days until the deadline, rounding up.
func daysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// Analyze builds the advisory record attached to a scored bounty.
// None of these fields feed back into the score.
func Analyze(b *models.Bounty, score int, now time.Time) models.BountyAnalysis {
	effort := estimateEffort(b)
	analysis := models.BountyAnalysis{
		Claimability:    assessClaimability(b),
		RiskLevel:       assessRisk(b),
		EstimatedEffort: effort,
		Profitability:   b.Reward * effortMultiplier[effort],
	}

	if score > 80 {
		analysis.Recommendations = append(analysis.Recommendations, "High priority - excellent auto-claim candidate")
	}
	if b.Reward > 500 {
		analysis.Recommendations = append(analysis.Recommendations, "High value - verify legitimacy before claiming")
	}
	if len(b.Requirements) == 0 {
		analysis.Recommendations = append(analysis.Recommendations, "No requirements - ideal for automated claiming")
	}
	if daysUntil(b.Deadline, now) <= 2 {
		analysis.Recommendations = append(analysis.Recommendations, "Urgent - deadline approaching")
	}

	return analysis
}

func assessClaimability(b *models.Bounty) string {
	if len(b.Requirements) == 0 {
		return "high"
	}
	for _, req := range b.Requirements {
		lower := strings.ToLower(req)
		if strings.Contains(lower, "social") || strings.Contains(lower, "twitter") {
			return "medium"
		}
	}
	return "low"
}

func assessRisk(b *models.Bounty) string {
	if b.Reward > 1000 {
		return "high"
	}
	if b.Platform == models.PlatformGitcoin {
		return "low"
	}
	return "medium"
}

func estimateEffort(b *models.Bounty) string {
	if effort, ok := effortByCategory[b.Category]; ok {
		return effort
	}
	return "medium"
}

// Rank scores every bounty and sorts descending. The sort is stable so
// ties keep their input order within one ranking pass.
func Rank(bounties []models.Bounty, now time.Time) []models.ScoredBounty {
	scored := make([]models.ScoredBounty, 0, len(bounties))
	for _, b := range bounties {
		score := Score(&b, now)
		scored = append(scored, models.ScoredBounty{
			Bounty:   b,
			Score:    score,
			Analysis: Analyze(&b, score, now),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
