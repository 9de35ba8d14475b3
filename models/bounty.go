// models/bounty.go
package models

import (
	"time"
)

// Chain identifies which blockchain backend settles a bounty claim
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
	ChainArbitrum Chain = "arbitrum"
	ChainOptimism Chain = "optimism"
	ChainSolana   Chain = "solana"
)

// IsEVM reports whether the chain uses the shared EVM claim backend.
// Solana is the only non-EVM chain we support.
func (c Chain) IsEVM() bool {
	return c != ChainSolana
}

// NativeToken returns the gas token symbol for the chain.
func (c Chain) NativeToken() string {
	switch c {
	case ChainPolygon:
		return "MATIC"
	case ChainSolana:
		return "SOL"
	default:
		return "ETH"
	}
}

// Platform is the source listing platform
type Platform string

const (
	PlatformGitcoin   Platform = "gitcoin"
	PlatformLayer3    Platform = "layer3"
	PlatformDework    Platform = "dework"
	PlatformSuperteam Platform = "superteam"
)

// AllPlatforms is the discovery order for a cycle.
var AllPlatforms = []Platform{PlatformGitcoin, PlatformLayer3, PlatformDework, PlatformSuperteam}

type Category string

const (
	CategoryDevelopment Category = "development"
	CategoryDesign      Category = "design"
	CategoryMarketing   Category = "marketing"
	CategoryResearch    Category = "research"
	CategoryBugBounty   Category = "bug-bounty"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Bounty is the canonical normalized listing.
// Immutable once normalized until a claim marks it claimed.
type Bounty struct {
	ID              string     `gorm:"primaryKey;size:128" json:"id"` // platform-prefixed, e.g. "gitcoin-1234"
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Reward          float64    `gorm:"not null" json:"reward"`
	RewardToken     string     `gorm:"size:16" json:"reward_token"`
	Chain           Chain      `gorm:"size:32;index;not null" json:"chain"`
	Platform        Platform   `gorm:"size:32;index;not null" json:"platform"`
	Category        Category   `gorm:"size:32;index" json:"category"`
	Difficulty      Difficulty `gorm:"size:32" json:"difficulty"`
	Deadline        time.Time  `gorm:"index;not null" json:"deadline"`
	Claimable       bool       `gorm:"default:false;index" json:"claimable"`
	Claimed         bool       `gorm:"default:false;index" json:"claimed"`
	ClaimedBy       string     `gorm:"size:128" json:"claimed_by,omitempty"` // claimant wallet address
	Requirements    StringList `gorm:"serializer:json" json:"requirements"`
	Tags            StringList `gorm:"serializer:json" json:"tags"`
	SubmissionURL   string     `gorm:"type:text" json:"submission_url,omitempty"`
	ContractAddress string     `gorm:"size:128" json:"contract_address,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StringList is stored as a JSON column (requirements, tags, preference sets).
type StringList []string

// Active reports whether the bounty is eligible for a new claim attempt:
// claimable, unclaimed, and not past its deadline.
func (b *Bounty) Active(now time.Time) bool {
	return b.Claimable && !b.Claimed && b.Deadline.After(now)
}

// BountyAnalysis is the advisory (non-scoring) analysis attached to a
// ranked bounty. Recomputed every cycle, never persisted.
type BountyAnalysis struct {
	Claimability    string   `json:"claimability"`     // high | medium | low
	RiskLevel       string   `json:"risk_level"`       // high | medium | low
	EstimatedEffort string   `json:"estimated_effort"` // high | medium | low
	Profitability   float64  `json:"profitability"`
	Recommendations []string `json:"recommendations"`
}

// ScoredBounty is a Bounty plus its cycle-local ranking score and analysis.
type ScoredBounty struct {
	Bounty
	Score    int            `json:"score"`
	Analysis BountyAnalysis `json:"analysis"`
}
