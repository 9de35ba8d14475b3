// models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Preferences controls which bounties the agent may auto-claim for a user.
// Optional fields use explicit empty/nil sentinels:
//   - Chains/Categories empty  => no restriction
//   - MinReward zero           => no lower bound
//   - MaxReward nil            => defaults to DefaultMaxReward
type Preferences struct {
	AutoClaimEnabled bool       `json:"auto_claim_enabled"`
	Chains           StringList `gorm:"serializer:json" json:"chains,omitempty"`
	Categories       StringList `gorm:"serializer:json" json:"categories,omitempty"`
	MinReward        float64    `json:"min_reward"`
	MaxReward        *float64   `json:"max_reward,omitempty"`
}

// DefaultMaxReward caps auto-claims when a user sets no upper bound.
const DefaultMaxReward = 10000

// EffectiveMaxReward resolves the optional upper bound.
func (p Preferences) EffectiveMaxReward() float64 {
	if p.MaxReward != nil {
		return *p.MaxReward
	}
	return DefaultMaxReward
}

// AllowsChain reports whether the chain passes the preference set.
func (p Preferences) AllowsChain(chain Chain) bool {
	if len(p.Chains) == 0 {
		return true
	}
	for _, c := range p.Chains {
		if Chain(c) == chain {
			return true
		}
	}
	return false
}

// AllowsCategory reports whether the category passes the preference set.
func (p Preferences) AllowsCategory(cat Category) bool {
	if len(p.Categories) == 0 {
		return true
	}
	for _, c := range p.Categories {
		if Category(c) == cat {
			return true
		}
	}
	return false
}

// HunterUser is a dashboard user the agent can claim on behalf of.
// TotalEarned/TotalClaimed are mutated only by post-claim bookkeeping.
type HunterUser struct {
	ID            string      `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string      `gorm:"uniqueIndex;size:128;not null" json:"wallet_address"`
	Preferences   Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	TotalEarned   float64     `gorm:"default:0" json:"total_earned"`
	TotalClaimed  int64       `gorm:"default:0" json:"total_claimed"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *HunterUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
