package services

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"avara-ussd/internal/models"
)

// ErrSignerNotConfigured is returned when no signing key is available. A mint
// must never be attempted without a proof.
var ErrSignerNotConfigured = errors.New("signing key not configured")

// mintAction is the fixed action tag bound into every mint proof. The
// verifying contract checks the same literal, so a proof cannot authorize a
// structurally different call.
const mintAction = "MINT"

// ethSignedMessagePrefix is the Ethereum personal-sign prefix for a 32-byte hash
const ethSignedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// nonceBits sizes the random nonce. 128 bits keeps the collision probability
// negligible within any on-chain validity window.
const nonceBits = 128

// MintProofConfig represents mint proof signer configuration
type MintProofConfig struct {
	PrivateKey      string // Hex-encoded secp256k1 key; empty disables signing
	ExpectedAddress string // Address the verifying contract trusts, if known
}

// MintProofService produces signed authorizations the AvaraCore contract can
// verify before minting a ticket NFT.
type MintProofService struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	expected string
}

// NewMintProofService creates a new mint proof service. A missing key is not a
// construction error: proof creation fails hard instead, so callers can
// distinguish "unconfigured" from "broken".
func NewMintProofService(config MintProofConfig) (*MintProofService, error) {
	s := &MintProofService{expected: config.ExpectedAddress}

	if config.PrivateKey == "" {
		return s, nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(config.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	s.key = key
	s.address = crypto.PubkeyToAddress(key.PublicKey)
	return s, nil
}

// SignerAddress returns the address derived from the configured signing key,
// or an empty string when no key is configured.
func (s *MintProofService) SignerAddress() string {
	if s.key == nil {
		return ""
	}
	return s.address.Hex()
}

// CreateProof signs a mint authorization for the given recipient and event.
// The message layout must match the verifying contract byte for byte:
//
//	keccak256(abi.encodePacked(action, ticketId, eventId, recipient, timestamp, nonce))
//
// with ticketId fixed to 0 (the contract assigns the token id at mint time).
// The signature covers the Ethereum personal-sign digest of that hash.
func (s *MintProofService) CreateProof(to string, eventID int) (*models.MintProof, error) {
	if s.key == nil {
		return nil, ErrSignerNotConfigured
	}

	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient address: %q", to)
	}
	recipient := common.HexToAddress(to)

	timestamp := time.Now().Unix()

	nonce, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), nonceBits))
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	hash := PackedMintHash(mintAction, big.NewInt(0), big.NewInt(int64(eventID)),
		recipient, big.NewInt(timestamp), nonce)

	digest := crypto.Keccak256([]byte(ethSignedMessagePrefix), hash)

	signature, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign mint proof: %w", err)
	}

	// crypto.Sign yields a recovery id of 0 or 1; the contract's ECDSA.recover
	// expects the Ethereum convention of 27 or 28.
	if signature[64] < 27 {
		signature[64] += 27
	}

	mismatch := s.expected != "" && !strings.EqualFold(s.expected, s.address.Hex())

	return &models.MintProof{
		Timestamp:      timestamp,
		Nonce:          nonce.String(),
		Signature:      hexutil.Encode(signature),
		SignerAddress:  s.address.Hex(),
		SignerMismatch: mismatch,
	}, nil
}

// PackedMintHash computes keccak256 over the tightly packed mint authorization
// fields, matching Solidity's abi.encodePacked for
// (string, uint256, uint256, address, uint256, uint256).
func PackedMintHash(action string, ticketID, eventID *big.Int, recipient common.Address, timestamp, nonce *big.Int) []byte {
	var packed []byte
	packed = append(packed, []byte(action)...)
	packed = append(packed, common.LeftPadBytes(ticketID.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(eventID.Bytes(), 32)...)
	packed = append(packed, recipient.Bytes()...)
	packed = append(packed, common.LeftPadBytes(timestamp.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(nonce.Bytes(), 32)...)
	return crypto.Keccak256(packed)
}
