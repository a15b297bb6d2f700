package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"avara-ussd/internal/models"
)

// avaraCoreABI is the minimal ABI for the contract call this service submits
const avaraCoreABI = `[{"type":"function","name":"mintTicketWithMantle","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"},{"name":"eventId","type":"uint256"},{"name":"timestamp","type":"uint256"},{"name":"nonce","type":"uint256"},{"name":"signature","type":"bytes"}],"outputs":[]}]`

// MinterConfig represents on-chain minter configuration
type MinterConfig struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	PrivateKey      string
}

// MinterService submits mintTicketWithMantle transactions to the AvaraCore
// contract. Callers treat the whole service as best-effort: a failed mint is
// logged and swallowed, never allowed to undo a paid purchase.
type MinterService struct {
	client   *ethclient.Client
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	abi      abi.ABI
}

// NewMinterService creates a new on-chain minter. It returns an error when the
// chain is not fully configured; callers are expected to log it and run
// without minting.
func NewMinterService(config MinterConfig) (*MinterService, error) {
	if config.RPCURL == "" {
		return nil, errors.New("rpc url not configured")
	}
	if config.ContractAddress == "" {
		return nil, errors.New("contract address not configured")
	}
	if !common.IsHexAddress(config.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", config.ContractAddress)
	}
	if config.PrivateKey == "" {
		return nil, errors.New("transaction key not configured")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(config.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction key: %w", err)
	}

	client, err := ethclient.Dial(config.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(avaraCoreABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &MinterService{
		client:   client,
		contract: common.HexToAddress(config.ContractAddress),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(config.ChainID),
		abi:      parsed,
	}, nil
}

// From returns the address the minter submits transactions from. It doubles
// as the default mint recipient for subscribers without a wallet.
func (s *MinterService) From() string {
	return s.from.Hex()
}

// MintTicket submits the mint transaction authorized by the given proof and
// returns the transaction hash. Gas is estimated before submission so a
// rejection by the contract fails here, before any gas is spent.
func (s *MinterService) MintTicket(ctx context.Context, to, tokenURI string, eventID int, proof *models.MintProof) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid mint recipient: %q", to)
	}
	recipient := common.HexToAddress(to)

	nonceVal, ok := new(big.Int).SetString(proof.Nonce, 10)
	if !ok {
		return "", fmt.Errorf("invalid proof nonce: %q", proof.Nonce)
	}

	signature, err := hexutil.Decode(proof.Signature)
	if err != nil {
		return "", fmt.Errorf("failed to decode proof signature: %w", err)
	}

	data, err := s.abi.Pack("mintTicketWithMantle", recipient, tokenURI,
		big.NewInt(int64(eventID)), big.NewInt(proof.Timestamp), nonceVal, signature)
	if err != nil {
		return "", fmt.Errorf("failed to pack mint call: %w", err)
	}

	txNonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", fmt.Errorf("failed to get account nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.contract,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("mint would revert: %w", err)
	}

	tx := types.NewTransaction(txNonce, s.contract, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}
