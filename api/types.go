package api

import (
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error"`
}

// RegisterIdentityRequest registers or replaces an identity. The thumbprint
// is computed server-side from the public key.
type RegisterIdentityRequest struct {
	IdentityID          string                     `json:"user_id"`
	PublicKey           interfaces.PublicKeyRecord `json:"public_key"`
	EncryptedPrivateKey *interfaces.EncryptedBlob  `json:"encrypted_private_key,omitempty"`
}

// KeyResponse is the public view of an identity's key.
type KeyResponse struct {
	IdentityID string                     `json:"user_id"`
	PublicKey  interfaces.PublicKeyRecord `json:"public_key"`
	Thumbprint interfaces.Thumbprint      `json:"thumbprint"`
	Verified   bool                       `json:"verified"`
}

// NewKeyResponse strips an identity record down to its public key.
func NewKeyResponse(rec interfaces.IdentityRecord) KeyResponse {
	return KeyResponse{
		IdentityID: rec.IdentityID,
		PublicKey:  rec.PublicKey,
		Thumbprint: rec.Thumbprint,
		Verified:   rec.Verified,
	}
}

// ChallengeRequest asks for a nonce for an identity.
type ChallengeRequest struct {
	IdentityID string `json:"user_id"`
}

// VerifyWalletResponse is returned by a successful or rejected proof.
type VerifyWalletResponse struct {
	OK      bool                       `json:"ok"`
	Updated *interfaces.IdentityRecord `json:"updated,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// LedgerHeadResponse carries the latest entry hash, null for an empty ledger.
type LedgerHeadResponse struct {
	Hash *interfaces.Hash `json:"hash"`
}

// LedgerVerifyResponse is the chain walk report.
type LedgerVerifyResponse struct {
	OK     bool          `json:"ok"`
	Report ledger.Report `json:"report"`
}
