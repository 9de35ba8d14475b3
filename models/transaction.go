// models/transaction.go
package models

import "time"

// ClaimStatus records how a claim attempt ended.
// "simulated" marks demo-mode results that never reached a chain —
// they must never be read as verified on-chain successes.
type ClaimStatus string

const (
	ClaimStatusConfirmed ClaimStatus = "confirmed"
	ClaimStatusSimulated ClaimStatus = "simulated"
	ClaimStatusFailed    ClaimStatus = "failed"
)

// ClaimTransaction is the immutable audit record of one claim attempt.
// Never updated after insert.
type ClaimTransaction struct {
	ID          string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string      `gorm:"index;not null" json:"user_id"`
	BountyID    string      `gorm:"index;not null" json:"bounty_id"`
	Type        string      `gorm:"size:32;default:'auto-claim'" json:"type"`
	Amount      float64     `json:"amount"`
	Token       string      `gorm:"size:16" json:"token"`
	Chain       Chain       `gorm:"size:32" json:"chain"`
	TxHash      string      `gorm:"index;size:128" json:"tx_hash,omitempty"`
	BlockNumber uint64      `json:"block_number,omitempty"`
	Status      ClaimStatus `gorm:"size:16;not null" json:"status"`
	Error       string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}
