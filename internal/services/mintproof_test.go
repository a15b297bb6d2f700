package services

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

const (
	testSignerKey = "4c0883a69102937d6231471b5dbb6204fe512961708279e5fba7b1eb6800c1c8"
	testRecipient = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
)

func newTestSigner(t *testing.T, expected string) *MintProofService {
	t.Helper()
	s, err := NewMintProofService(MintProofConfig{
		PrivateKey:      testSignerKey,
		ExpectedAddress: expected,
	})
	require.NoError(t, err)
	return s
}

func TestCreateProof_MissingKey(t *testing.T) {
	s, err := NewMintProofService(MintProofConfig{})
	require.NoError(t, err)
	require.Empty(t, s.SignerAddress())

	proof, err := s.CreateProof(testRecipient, 7)
	require.ErrorIs(t, err, ErrSignerNotConfigured)
	require.Nil(t, proof)
}

func TestCreateProof_InvalidKey(t *testing.T) {
	_, err := NewMintProofService(MintProofConfig{PrivateKey: "not-a-key"})
	require.Error(t, err)
}

func TestCreateProof_InvalidRecipient(t *testing.T) {
	s := newTestSigner(t, "")

	_, err := s.CreateProof("1234", 7)
	require.Error(t, err)
}

func TestCreateProof_SignatureRecoversToSignerAddress(t *testing.T) {
	s := newTestSigner(t, "")

	proof, err := s.CreateProof(testRecipient, 42)
	require.NoError(t, err)
	require.Equal(t, s.SignerAddress(), proof.SignerAddress)
	require.False(t, proof.SignerMismatch)

	// Rebuild the message hash from the proof fields the way the verifying
	// contract does, then recover the signer with standard ECDSA recovery.
	nonce, ok := new(big.Int).SetString(proof.Nonce, 10)
	require.True(t, ok)

	hash := PackedMintHash("MINT", big.NewInt(0), big.NewInt(42),
		common.HexToAddress(testRecipient), big.NewInt(proof.Timestamp), nonce)
	digest := crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), hash)

	signature, err := hexutil.Decode(proof.Signature)
	require.NoError(t, err)
	require.Len(t, signature, 65)

	// The proof carries the Ethereum 27/28 recovery convention
	require.GreaterOrEqual(t, signature[64], byte(27))
	signature[64] -= 27

	pubkey, err := crypto.SigToPub(digest, signature)
	require.NoError(t, err)
	require.Equal(t, proof.SignerAddress, crypto.PubkeyToAddress(*pubkey).Hex())
}

func TestCreateProof_NonceNeverRepeats(t *testing.T) {
	s := newTestSigner(t, "")

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		proof, err := s.CreateProof(testRecipient, 1)
		require.NoError(t, err)
		require.False(t, seen[proof.Nonce], "nonce %s repeated after %d proofs", proof.Nonce, i)
		seen[proof.Nonce] = true
	}
}

func TestCreateProof_HashesDifferPerProof(t *testing.T) {
	s := newTestSigner(t, "")

	first, err := s.CreateProof(testRecipient, 5)
	require.NoError(t, err)
	second, err := s.CreateProof(testRecipient, 5)
	require.NoError(t, err)

	// Same recipient and event, but nonce (and possibly timestamp) differ, so
	// the signed messages differ.
	require.NotEqual(t, first.Signature, second.Signature)
}

func TestCreateProof_SignerMismatchFlag(t *testing.T) {
	s := newTestSigner(t, "0x0000000000000000000000000000000000000001")

	proof, err := s.CreateProof(testRecipient, 7)
	require.NoError(t, err)
	require.True(t, proof.SignerMismatch, "a proof is still returned, flagged for the caller to decide")
	require.NotEmpty(t, proof.Signature)
}

func TestCreateProof_SignerMismatchIsCaseInsensitive(t *testing.T) {
	s := newTestSigner(t, "")
	s2 := newTestSigner(t, strings.ToLower(s.SignerAddress()))

	proof, err := s2.CreateProof(testRecipient, 7)
	require.NoError(t, err)
	require.False(t, proof.SignerMismatch)
}

func TestPackedMintHash_MatchesIndependentKeccak(t *testing.T) {
	action := "MINT"
	ticketID := big.NewInt(0)
	eventID := big.NewInt(42)
	recipient := common.HexToAddress(testRecipient)
	timestamp := big.NewInt(1700000000)
	nonce := big.NewInt(987654321)

	got := PackedMintHash(action, ticketID, eventID, recipient, timestamp, nonce)

	// abi.encodePacked(string, uint256, uint256, address, uint256, uint256)
	var packed []byte
	packed = append(packed, []byte(action)...)
	packed = append(packed, common.LeftPadBytes(ticketID.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(eventID.Bytes(), 32)...)
	packed = append(packed, recipient.Bytes()...)
	packed = append(packed, common.LeftPadBytes(timestamp.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(nonce.Bytes(), 32)...)
	require.Len(t, packed, len(action)+32+32+20+32+32)

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(packed)
	want := hasher.Sum(nil)

	require.Equal(t, want, got)
}
