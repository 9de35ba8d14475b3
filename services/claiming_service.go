// services/claiming_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"bounty-hunter-agent/models"
)

// SubmitReceipt is what a chain backend reports after submitting a claim.
type SubmitReceipt struct {
	TxHash      string
	BlockNumber uint64
	Confirmed   bool
}

// ChainSubmitter is the per-chain-family claim backend. The signer behind
// it is a shared resource; callers must not submit concurrently for the
// same (bounty, user) pair.
type ChainSubmitter interface {
	// EstimateAndSubmitClaim estimates gas, submits the claim transaction
	// and waits for one confirmation.
	EstimateAndSubmitClaim(ctx context.Context, bountyID, claimant string) (*SubmitReceipt, error)
	// ValidateBounty re-checks claimability against current chain state.
	ValidateBounty(ctx context.Context, bountyID string) (bool, error)
}

// ClaimOutcome tags how a claim attempt ended. Simulated results come from
// demo mode and must never be treated as verified on-chain successes.
type ClaimOutcome = models.ClaimStatus

// ClaimResult is created once per claim attempt and never mutated.
type ClaimResult struct {
	Outcome     ClaimOutcome `json:"outcome"`
	BountyID    string       `json:"bounty_id"`
	UserID      string       `json:"user_id"`
	Reward      float64      `json:"reward"`
	TxHash      string       `json:"tx_hash,omitempty"`
	BlockNumber uint64       `json:"block_number,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Succeeded reports whether the attempt produced a claim, real or simulated.
func (r *ClaimResult) Succeeded() bool {
	return r.Outcome != models.ClaimStatusFailed
}

// ClaimingService routes claim attempts to the chain backend for the
// bounty's chain family.
type ClaimingService struct {
	Submitters map[models.Chain]ChainSubmitter
	DemoMode   bool
	// FailOpen controls what a validation *error* (not a negative result)
	// means: true = assume valid and attempt the claim anyway.
	FailOpen bool
}

func NewClaimingService(submitters map[models.Chain]ChainSubmitter, demoMode, failOpen bool) *ClaimingService {
	return &ClaimingService{
		Submitters: submitters,
		DemoMode:   demoMode,
		FailOpen:   failOpen,
	}
}

// Claim attempts one claim for (bounty, user) as of now, the caller's
// clock. Pre-chain checks short-circuit without touching any backend.
func (s *ClaimingService) Claim(ctx context.Context, bounty *models.Bounty, user *models.HunterUser, now time.Time) *ClaimResult {
	result := &ClaimResult{
		BountyID: bounty.ID,
		UserID:   user.ID,
		Reward:   bounty.Reward,
	}

	if !bounty.Claimable || bounty.Claimed {
		result.Outcome = models.ClaimStatusFailed
		result.Error = "bounty is not claimable"
		return result
	}
	if bounty.Deadline.Before(now) {
		result.Outcome = models.ClaimStatusFailed
		result.Error = "bounty has expired"
		return result
	}

	submitter, ok := s.Submitters[bounty.Chain]
	if !ok {
		if s.DemoMode {
			log.Printf("🎭 Demo mode: no %s backend configured, simulating claim for bounty %s", bounty.Chain, bounty.ID)
			result.Outcome = models.ClaimStatusSimulated
			result.TxHash = simulatedTxHash()
			result.BlockNumber = uint64(rand.Intn(1_000_000))
			return result
		}
		result.Outcome = models.ClaimStatusFailed
		result.Error = fmt.Sprintf("unsupported chain: %s", bounty.Chain)
		return result
	}

	receipt, err := submitter.EstimateAndSubmitClaim(ctx, bounty.ID, user.WalletAddress)
	if err != nil {
		if s.DemoMode {
			// Simulated fallback. The outcome tag keeps this distinguishable
			// from a confirmed on-chain claim.
			log.Printf("🎭 Demo mode: simulating claim for bounty %s (%v)", bounty.ID, err)
			result.Outcome = models.ClaimStatusSimulated
			result.TxHash = simulatedTxHash()
			result.BlockNumber = uint64(rand.Intn(1_000_000))
			return result
		}
		result.Outcome = models.ClaimStatusFailed
		result.Error = err.Error()
		return result
	}

	if !receipt.Confirmed {
		result.Outcome = models.ClaimStatusFailed
		result.TxHash = receipt.TxHash
		result.Error = "transaction not confirmed"
		return result
	}

	result.Outcome = models.ClaimStatusConfirmed
	result.TxHash = receipt.TxHash
	result.BlockNumber = receipt.BlockNumber
	return result
}

// ValidateBountyOnChain is an optional pre-claim re-check against current
// chain state. A negative answer always skips the bounty. A validation
// *error* resolves per the FailOpen policy, and so does a chain with no
// configured backend. Demo mode has no authoritative state to check and
// always passes.
func (s *ClaimingService) ValidateBountyOnChain(ctx context.Context, bounty *models.Bounty) bool {
	if s.DemoMode {
		return true
	}
	submitter, ok := s.Submitters[bounty.Chain]
	if !ok {
		log.Printf("⚠️ No %s backend to validate bounty %s against (fail-open=%t)", bounty.Chain, bounty.ID, s.FailOpen)
		return s.FailOpen
	}
	valid, err := submitter.ValidateBounty(ctx, bounty.ID)
	if err != nil {
		log.Printf("⚠️ On-chain validation errored for bounty %s: %v (fail-open=%t)", bounty.ID, err, s.FailOpen)
		return s.FailOpen
	}
	return valid
}

func simulatedTxHash() string {
	return fmt.Sprintf("0x%016x%016x", time.Now().UnixNano(), rand.Uint64())
}
