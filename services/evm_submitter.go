// services/evm_submitter.go
package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// bountyClaimABI is the claim contract surface shared by every EVM chain
// we support: claimBounty(bountyId, claimant) and a getBountyStatus view.
const bountyClaimABI = `[
  {
    "inputs": [
      {"name": "bountyId", "type": "string"},
      {"name": "claimant", "type": "address"}
    ],
    "name": "claimBounty",
    "outputs": [{"name": "", "type": "bool"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"name": "bountyId", "type": "string"}],
    "name": "getBountyStatus",
    "outputs": [
      {"name": "isActive", "type": "bool"},
      {"name": "isClaimed", "type": "bool"},
      {"name": "claimant", "type": "address"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var claimABI = mustParseABI(bountyClaimABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid bounty claim ABI: %v", err))
	}
	return parsed
}

// EVMClient is the subset of the Ethereum RPC the submitter needs.
type EVMClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMSubmitter submits bounty claims to one EVM chain's claim contract,
// signing with the shared agent key. Claims through one submitter must be
// serialized by the caller to keep nonce ordering intact.
type EVMSubmitter struct {
	Client   EVMClient
	ChainID  *big.Int
	Contract common.Address

	key  *ecdsa.PrivateKey
	from common.Address

	// ReceiptPollInterval/ReceiptTimeout bound the single-confirmation wait.
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
}

// DialEVMSubmitter connects to an RPC endpoint and prepares a submitter
// for the chain's claim contract.
func DialEVMSubmitter(endpoint, contractAddr, privKeyHex string, chainID int64) (*EVMSubmitter, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("evm endpoint required")
	}
	client, err := ethclient.Dial(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", trimmed, err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid agent private key: %w", err)
	}
	return NewEVMSubmitter(client, big.NewInt(chainID), common.HexToAddress(contractAddr), key), nil
}

func NewEVMSubmitter(client EVMClient, chainID *big.Int, contract common.Address, key *ecdsa.PrivateKey) *EVMSubmitter {
	return &EVMSubmitter{
		Client:              client,
		ChainID:             chainID,
		Contract:            contract,
		key:                 key,
		from:                crypto.PubkeyToAddress(key.PublicKey),
		ReceiptPollInterval: 2 * time.Second,
		ReceiptTimeout:      2 * time.Minute,
	}
}

// EstimateAndSubmitClaim packs claimBounty, estimates gas with a 20%
// buffer, signs and submits from the agent account, then waits for one
// confirmation.
func (s *EVMSubmitter) EstimateAndSubmitClaim(ctx context.Context, bountyID, claimant string) (*SubmitReceipt, error) {
	if !common.IsHexAddress(claimant) {
		return nil, fmt.Errorf("invalid claimant address: %s", claimant)
	}

	input, err := claimABI.Pack("claimBounty", bountyID, common.HexToAddress(claimant))
	if err != nil {
		return nil, fmt.Errorf("failed to pack claim call: %w", err)
	}

	gasLimit, err := s.Client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.Contract,
		Data: input,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}
	gasLimit = gasLimit * 120 / 100

	gasPrice, err := s.Client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	nonce, err := s.Client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	tx := gethtypes.NewTransaction(nonce, s.Contract, big.NewInt(0), gasLimit, gasPrice, input)
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.ChainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign claim tx: %w", err)
	}

	if err := s.Client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to submit claim tx: %w", err)
	}

	receipt, err := s.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	return &SubmitReceipt{
		TxHash:      signed.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Confirmed:   receipt.Status == gethtypes.ReceiptStatusSuccessful,
	}, nil
}

func (s *EVMSubmitter) waitMined(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.Client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for tx %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// ValidateBounty reads getBountyStatus from the claim contract.
func (s *EVMSubmitter) ValidateBounty(ctx context.Context, bountyID string) (bool, error) {
	input, err := claimABI.Pack("getBountyStatus", bountyID)
	if err != nil {
		return false, fmt.Errorf("failed to pack status call: %w", err)
	}

	out, err := s.Client.CallContract(ctx, ethereum.CallMsg{
		To:   &s.Contract,
		Data: input,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("status call failed: %w", err)
	}

	values, err := claimABI.Unpack("getBountyStatus", out)
	if err != nil || len(values) < 2 {
		return false, fmt.Errorf("failed to unpack status: %w", err)
	}
	isActive, _ := values[0].(bool)
	isClaimed, _ := values[1].(bool)
	return isActive && !isClaimed, nil
}
