// services/solana_submitter.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SolanaSigner produces a signed, base64-encoded transfer transaction for
// the given blockhash. Key custody stays outside the agent; the submitter
// only relays what the signer hands back.
type SolanaSigner interface {
	SignTransfer(ctx context.Context, recentBlockhash, recipient string, lamports uint64) (string, error)
}

// SolanaSubmitter settles bounty claims on Solana through plain JSON-RPC.
// It only ever reports transactions it actually sent; simulated fallbacks
// live upstream in the claiming service.
type SolanaSubmitter struct {
	Endpoint string
	Signer   SolanaSigner
	Client   *http.Client
}

func NewSolanaSubmitter(endpoint string, signer SolanaSigner) *SolanaSubmitter {
	return &SolanaSubmitter{
		Endpoint: endpoint,
		Signer:   signer,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type solanaRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type solanaRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *SolanaSubmitter) rpc(ctx context.Context, method string, params []any, result any) error {
	payload, _ := json.Marshal(solanaRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", s.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("solana rpc call failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *solanaRPCError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("solana rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode rpc result: %w", err)
		}
	}
	return nil
}

// EstimateAndSubmitClaim fetches a recent blockhash, asks the signer for a
// signed transfer and submits it.
func (s *SolanaSubmitter) EstimateAndSubmitClaim(ctx context.Context, bountyID, claimant string) (*SubmitReceipt, error) {
	if s.Signer == nil {
		return nil, fmt.Errorf("no solana signer configured")
	}

	var blockhashResult struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := s.rpc(ctx, "getLatestBlockhash", []any{map[string]string{"commitment": "confirmed"}}, &blockhashResult); err != nil {
		return nil, fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	// Claim settles as a native transfer; the lamport amount is resolved
	// by the signer from the bounty terms, so we pass zero here.
	signedTx, err := s.Signer.SignTransfer(ctx, blockhashResult.Value.Blockhash, claimant, 0)
	if err != nil {
		return nil, fmt.Errorf("signer rejected transfer: %w", err)
	}

	var signature string
	if err := s.rpc(ctx, "sendTransaction", []any{signedTx, map[string]string{"encoding": "base64"}}, &signature); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	var slot uint64
	if err := s.rpc(ctx, "getSlot", []any{map[string]string{"commitment": "confirmed"}}, &slot); err != nil {
		// Slot lookup is informational only
		log.Printf("⚠️ Failed to fetch slot after Solana claim: %v", err)
	}

	return &SubmitReceipt{
		TxHash:      signature,
		BlockNumber: slot,
		Confirmed:   true,
	}, nil
}

// ValidateBounty has no on-chain program to consult for listing platforms
// that settle off-program, so it only checks the endpoint is reachable.
func (s *SolanaSubmitter) ValidateBounty(ctx context.Context, bountyID string) (bool, error) {
	var slot uint64
	if err := s.rpc(ctx, "getSlot", nil, &slot); err != nil {
		return false, err
	}
	return true, nil
}
