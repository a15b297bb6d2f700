package models

// MintProof authorizes a single on-chain ticket mint. It is generated on
// demand and never persisted; the nonce is the only replay defense.
type MintProof struct {
	Timestamp      int64  `json:"timestamp"`
	Nonce          string `json:"nonce"` // Decimal uint256
	Signature      string `json:"signature"`
	SignerAddress  string `json:"signerAddress"`
	SignerMismatch bool   `json:"signerMismatch"`
}
