package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"io"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// IVSize is the AES-GCM nonce length.
const IVSize = 12

// EncryptJSON serializes v with CanonicalJSON and seals it under a key derived
// from password and salt. A nil salt gets a fresh random one.
func EncryptJSON(v any, password string, salt []byte) (interfaces.EncryptedBlob, error) {
	plaintext, err := CanonicalJSON(v)
	if err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("failed to serialize payload: %w", err)
	}
	defer wipe(plaintext)

	return EncryptBytes(plaintext, password, salt)
}

// EncryptBytes seals plaintext with AES-256-GCM. No additional data is bound.
func EncryptBytes(plaintext []byte, password string, salt []byte) (interfaces.EncryptedBlob, error) {
	dk, err := DeriveKey(password, salt)
	if err != nil {
		return interfaces.EncryptedBlob{}, err
	}
	defer dk.Wipe()

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return interfaces.EncryptedBlob{}, fmt.Errorf("%w: iv generation: %v", interfaces.ErrKeyDerivationFailed, err)
	}

	aesGCM, err := newGCM(dk.Key)
	if err != nil {
		return interfaces.EncryptedBlob{}, err
	}

	ciphertext := aesGCM.Seal(nil, iv, plaintext, nil)

	return interfaces.EncryptedBlob{
		Salt:       dk.SaltHex(),
		IV:         EncodeHex(iv),
		Ciphertext: EncodeBase64(ciphertext),
	}, nil
}

// DecryptRaw opens a blob. Every failure is reported as ErrDecryptionFailed.
func DecryptRaw(blob interfaces.EncryptedBlob, password string) ([]byte, error) {
	salt, err := DecodeHex(blob.Salt)
	if err != nil || len(salt) == 0 {
		return nil, interfaces.ErrDecryptionFailed
	}
	iv, err := DecodeHex(blob.IV)
	if err != nil || len(iv) != IVSize {
		return nil, interfaces.ErrDecryptionFailed
	}
	ciphertext, err := DecodeBase64(blob.Ciphertext)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}

	dk, err := DeriveKey(password, salt)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	defer dk.Wipe()

	aesGCM, err := newGCM(dk.Key)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	return plaintext, nil
}

// DecryptJSON opens a blob and unmarshals the plaintext into out.
func DecryptJSON(blob interfaces.EncryptedBlob, password string, out any) error {
	plaintext, err := DecryptRaw(blob, password)
	if err != nil {
		return err
	}
	defer wipe(plaintext)

	if err := json.Unmarshal(plaintext, out); err != nil {
		return interfaces.ErrDecryptionFailed
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
