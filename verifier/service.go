package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/metrics"
)

// ErrIncompleteProof is returned when a proof lacks user_id, public_key, challenge or signature.
var ErrIncompleteProof = errors.New("missing fields")

// Service implements interfaces.OwnershipVerifier over a KeyDirectory.
type Service struct {
	keys       interfaces.KeyDirectory
	challenges interfaces.ChallengeIssuer
	log        *slog.Logger
}

// NewService creates a verifier. With a nil issuer any challenge string is
// accepted and replay protection is left to the caller.
func NewService(keys interfaces.KeyDirectory, challenges interfaces.ChallengeIssuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		keys:       keys,
		challenges: challenges,
		log:        log,
	}
}

// Keys returns the key directory the service verifies against.
func (s *Service) Keys() interfaces.KeyDirectory {
	return s.keys
}

// Challenges returns the issuer, or nil.
func (s *Service) Challenges() interfaces.ChallengeIssuer {
	return s.challenges
}

// VerifyOwnership checks proof and marks the identity verified on success.
// A signature that does not verify yields (false, nil). The nonce is consumed
// before the signature is checked, so a failed attempt cannot be retried with it.
func (s *Service) VerifyOwnership(ctx context.Context, proof interfaces.OwnershipProof) (bool, error) {
	ok, err := s.verify(ctx, proof)
	switch {
	case err != nil:
		metrics.OwnershipVerificationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		s.log.Warn("Ownership verification failed",
			slog.String("identity_id", proof.IdentityID),
			"err", err)
	case !ok:
		metrics.OwnershipVerificationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		s.log.Info("Ownership proof rejected: invalid signature",
			slog.String("identity_id", proof.IdentityID))
	default:
		metrics.OwnershipVerificationsTotal.WithLabelValues(metrics.ResultOK).Inc()
		s.log.Info("Ownership verified", slog.String("identity_id", proof.IdentityID))
	}
	return ok, err
}

func (s *Service) verify(ctx context.Context, proof interfaces.OwnershipProof) (bool, error) {
	if proof.IdentityID == "" || proof.Challenge == "" || proof.Signature == "" || proof.PublicKey.X == "" {
		return false, ErrIncompleteProof
	}

	presented, err := cryptoutils.Thumbprint(proof.PublicKey)
	if err != nil {
		return false, err
	}

	rec, err := s.keys.ByIdentity(ctx, proof.IdentityID)
	if err != nil {
		return false, err
	}

	registered := rec.Thumbprint
	if registered == "" {
		// records created before thumbprints were stored
		registered, err = cryptoutils.Thumbprint(rec.PublicKey)
		if err != nil {
			return false, fmt.Errorf("registered key for %s: %w", proof.IdentityID, err)
		}
	}
	if presented != registered {
		return false, interfaces.ErrKeyMismatch
	}

	if s.challenges != nil {
		if err := s.challenges.Consume(ctx, proof.IdentityID, proof.Challenge); err != nil {
			return false, err
		}
	}

	ok, err := cryptoutils.VerifyChallenge(proof.PublicKey, proof.Challenge, proof.Signature)
	metrics.RecordCrypto("verify", err)
	if err != nil || !ok {
		return false, err
	}

	if err := s.keys.MarkVerified(ctx, proof.IdentityID); err != nil {
		return false, fmt.Errorf("failed to mark %s verified: %w", proof.IdentityID, err)
	}
	return true, nil
}
