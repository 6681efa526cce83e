package cryptoutils

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"

	"github.com/D4ZA1/Cryopay/interfaces"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is fixed; changing it orphans every existing blob.
	PBKDF2Iterations = 100_000

	// KeySize is the AES-256 key length.
	KeySize = 32

	// SaltSize is the length of a freshly generated salt. Chained entries use
	// the 32-byte previous hash instead.
	SaltSize = 16
)

// randReader is swapped in tests to simulate entropy failure.
var randReader io.Reader = rand.Reader

// DerivedKey is a password-derived AES key together with the salt that produced it.
type DerivedKey struct {
	Key  []byte
	Salt []byte
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over the password. An empty salt is
// replaced by SaltSize random bytes.
func DeriveKey(password string, salt []byte) (*DerivedKey, error) {
	if len(salt) == 0 {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(randReader, salt); err != nil {
			return nil, fmt.Errorf("%w: salt generation: %v", interfaces.ErrKeyDerivationFailed, err)
		}
	} else {
		salt = append([]byte(nil), salt...)
	}

	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySize, sha256.New)
	return &DerivedKey{Key: key, Salt: salt}, nil
}

// DeriveKeyHex is DeriveKey with the salt in its hex text form.
func DeriveKeyHex(password, saltHex string) (*DerivedKey, error) {
	salt, err := DecodeHex(saltHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt: %v", interfaces.ErrKeyDerivationFailed, err)
	}
	return DeriveKey(password, salt)
}

// SaltHex returns the salt in the form stored in EncryptedBlob.
func (k *DerivedKey) SaltHex() string {
	return EncodeHex(k.Salt)
}

// Wipe zeroes the key bytes.
func (k *DerivedKey) Wipe() {
	if k == nil {
		return
	}
	wipe(k.Key)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
