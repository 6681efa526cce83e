package cryptoutils

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func withFailingRand(t *testing.T) {
	t.Helper()
	orig := randReader
	randReader = failingReader{}
	t.Cleanup(func() { randReader = orig })
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	t.Run("matches PBKDF2-SHA256 with fixed parameters", func(t *testing.T) {
		dk, err := DeriveKey("correct-horse", salt)
		require.NoError(t, err)
		require.Len(t, dk.Key, KeySize)
		require.Equal(t, pbkdf2.Key([]byte("correct-horse"), salt, 100000, 32, sha256.New), dk.Key)
		require.Equal(t, salt, dk.Salt)
	})

	t.Run("deterministic for the same inputs", func(t *testing.T) {
		a, err := DeriveKey("pw", salt)
		require.NoError(t, err)
		b, err := DeriveKey("pw", salt)
		require.NoError(t, err)
		require.Equal(t, a.Key, b.Key)

		c, err := DeriveKey("pw", []byte("fedcba9876543210"))
		require.NoError(t, err)
		require.NotEqual(t, a.Key, c.Key)
	})

	t.Run("generates a random salt when none is given", func(t *testing.T) {
		a, err := DeriveKey("pw", nil)
		require.NoError(t, err)
		b, err := DeriveKey("pw", nil)
		require.NoError(t, err)
		require.Len(t, a.Salt, SaltSize)
		require.NotEqual(t, a.Salt, b.Salt)
		require.Len(t, a.SaltHex(), 2*SaltSize)
	})

	t.Run("caller salt is copied", func(t *testing.T) {
		in := []byte("0123456789abcdef")
		dk, err := DeriveKey("pw", in)
		require.NoError(t, err)
		in[0] = 'X'
		require.Equal(t, byte('0'), dk.Salt[0])
	})

	t.Run("wipe zeroes the key", func(t *testing.T) {
		dk, err := DeriveKey("pw", salt)
		require.NoError(t, err)
		dk.Wipe()
		require.Equal(t, make([]byte, KeySize), dk.Key)
	})

	t.Run("random source failure", func(t *testing.T) {
		withFailingRand(t)
		_, err := DeriveKey("pw", nil)
		require.ErrorIs(t, err, interfaces.ErrKeyDerivationFailed)
	})
}

func TestDeriveKeyHex(t *testing.T) {
	dk, err := DeriveKeyHex("pw", "00112233445566778899aabbccddeeff")
	require.NoError(t, err)
	require.Equal(t, "00112233445566778899aabbccddeeff", dk.SaltHex())

	_, err = DeriveKeyHex("pw", "not-hex")
	require.ErrorIs(t, err, interfaces.ErrKeyDerivationFailed)
}
