package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Hash is a 32-byte SHA-256 digest. Its text form is lowercase hex.
type Hash [32]byte

// NewHashFromBytes copies a 32-byte slice into a Hash.
func NewHashFromBytes(source []byte) (Hash, error) {
	if len(source) != 32 {
		return Hash{}, errors.New("invalid hash conversion from bytes: incorrect length")
	}

	var h Hash
	copy(h[:], source)
	return h, nil
}

// NewHashFromHex parses a 64 character hex string, with or without a 0x prefix.
func NewHashFromHex(source string) (Hash, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(source), "0x")
	if len(clean) != 64 {
		return Hash{}, errors.New("invalid hash length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex format: %w", err)
	}
	return NewHashFromBytes(raw)
}

// ComputeHash returns the SHA-256 of data.
func ComputeHash(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// String returns hex representation.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns raw 32-byte hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Equal compares two hashes.
func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h[:], other[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := NewHashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashPtr returns a pointer to a copy of h.
func HashPtr(h Hash) *Hash {
	return &h
}

// Thumbprint is the first 40 hex characters of the SHA-256 of a public key
// record's canonical form.
type Thumbprint string

// ThumbprintLength is the number of hex characters kept from the digest.
const ThumbprintLength = 40

// Validate checks the thumbprint is 40 lowercase hex characters.
func (t Thumbprint) Validate() error {
	if len(t) != ThumbprintLength {
		return fmt.Errorf("invalid thumbprint length %d", len(t))
	}
	for _, c := range t {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return errors.New("invalid thumbprint: not lowercase hex")
		}
	}
	return nil
}

// EncryptedBlob is the output of the symmetric cipher.
// Salt and IV are hex, Ciphertext is standard base64 with the GCM tag appended.
type EncryptedBlob struct {
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// PublicKeyRecord is a JWK-shaped P-256 public key.
type PublicKeyRecord struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
	KeyOps []string `json:"key_ops,omitempty"`
	Ext    *bool    `json:"ext,omitempty"`
}

// PrivateKeyRecord is a JWK-shaped P-256 private key.
type PrivateKeyRecord struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
	D      string   `json:"d"`
	KeyOps []string `json:"key_ops,omitempty"`
	Ext    *bool    `json:"ext,omitempty"`
}

// Public strips the private scalar.
func (r PrivateKeyRecord) Public() PublicKeyRecord {
	return PublicKeyRecord{Kty: r.Kty, Crv: r.Crv, X: r.X, Y: r.Y}
}

// IdentityRecord is the directory row of an identity.
type IdentityRecord struct {
	IdentityID          string          `json:"identity_id"`
	PublicKey           PublicKeyRecord `json:"public_key"`
	Thumbprint          Thumbprint      `json:"thumbprint,omitempty"`
	EncryptedPrivateKey *EncryptedBlob  `json:"encrypted_private_key,omitempty"`
	Verified            bool            `json:"verified"`
	CreatedAt           time.Time       `json:"created_at"`
}
