package interfaces

import (
	"context"
	"time"
)

// OwnershipProof is what a client submits to prove it controls a registered key.
type OwnershipProof struct {
	IdentityID string          `json:"user_id"`
	PublicKey  PublicKeyRecord `json:"public_key"`
	Challenge  string          `json:"challenge"`
	Signature  string          `json:"signature"`
}

// OwnershipVerifier checks proofs and, on success, flips the identity's verified flag.
// A bad signature is reported as (false, nil); errors are reserved for lookups and storage.
type OwnershipVerifier interface {
	VerifyOwnership(ctx context.Context, proof OwnershipProof) (bool, error)
}

// Challenge is a nonce issued to an identity.
type Challenge struct {
	IdentityID string    `json:"user_id"`
	Nonce      string    `json:"challenge"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ChallengeIssuer hands out and consumes single-use nonces.
type ChallengeIssuer interface {
	Issue(ctx context.Context, identityID string) (Challenge, error)

	// Consume removes the nonce. Returns ErrChallengeUnknown or ErrChallengeExpired.
	Consume(ctx context.Context, identityID, nonce string) error
}

// AssuranceLevel of an identity as reported by the external assurance provider.
type AssuranceLevel string

const (
	AssuranceSingleFactor AssuranceLevel = "aal1"
	AssuranceMultiFactor  AssuranceLevel = "aal2"
)

// AssuranceProvider is the external second-factor service. The wallet core
// only consumes it; enrollment and verification happen elsewhere.
type AssuranceProvider interface {
	Enroll(ctx context.Context, identityID string) (enrollmentURI string, err error)
	Challenge(ctx context.Context, identityID string) (challengeID string, err error)
	Verify(ctx context.Context, identityID, challengeID, code string) error
	AssuranceLevel(ctx context.Context, identityID string) (AssuranceLevel, error)
}
