package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/google/uuid"
)

// SignatureSize is the length of a raw r||s P-256 signature.
const SignatureSize = 64

// ChallengePrefix starts every nonce produced by NewChallenge.
const ChallengePrefix = "cryopay:"

// Sign signs the UTF-8 bytes of challenge with ECDSA over SHA-256 and returns
// base64 of the fixed-width r||s encoding.
func (k *KeyPair) Sign(challenge string) (string, error) {
	digest := sha256.Sum256([]byte(challenge))
	r, s, err := ecdsa.Sign(randReader, k.priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge: %w", err)
	}

	sig := make([]byte, SignatureSize)
	r.FillBytes(sig[:SignatureSize/2])
	s.FillBytes(sig[SignatureSize/2:])
	return EncodeBase64(sig), nil
}

// SignChallenge imports a private record and signs challenge with it.
func SignChallenge(rec interfaces.PrivateKeyRecord, challenge string) (string, error) {
	kp, err := ParsePrivateRecord(rec)
	if err != nil {
		return "", err
	}
	return kp.Sign(challenge)
}

// VerifyChallenge checks signature over challenge. Only a malformed key record
// is an error; every other failure is a false result.
func VerifyChallenge(rec interfaces.PublicKeyRecord, challenge, signature string) (bool, error) {
	pub, err := ParsePublicRecord(rec)
	if err != nil {
		return false, err
	}
	return VerifyWithKey(pub, challenge, signature), nil
}

// VerifyWithKey is VerifyChallenge for an already imported key.
func VerifyWithKey(pub *ecdsa.PublicKey, challenge, signature string) bool {
	sig, err := DecodeBase64(signature)
	if err != nil || len(sig) != SignatureSize {
		return false
	}
	r := new(big.Int).SetBytes(sig[:SignatureSize/2])
	s := new(big.Int).SetBytes(sig[SignatureSize/2:])

	digest := sha256.Sum256([]byte(challenge))
	return ecdsa.Verify(pub, digest[:], r, s)
}

// NewChallenge returns a client-side nonce of the form cryopay:<unix millis>:<random>.
// Server-issued nonces from the verifier use the same shape.
func NewChallenge() string {
	return NewChallengeAt(time.Now())
}

// NewChallengeAt is NewChallenge with an explicit clock.
func NewChallengeAt(now time.Time) string {
	return ChallengePrefix + strconv.FormatInt(now.UnixMilli(), 10) + ":" + uuid.NewString()
}
