package cryptoutils

import (
	"strings"
	"testing"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptJSON(t *testing.T) {
	testCases := []struct {
		name    string
		payload any
	}{
		{
			name:    "Transaction payload",
			payload: map[string]any{"kind": "buy", "amountFiat": 100.0, "crypto": "BTC"},
		},
		{
			name:    "Nested values",
			payload: map[string]any{"a": []any{1.0, "two", map[string]any{"three": true}}},
		},
		{
			name:    "Unicode and HTML characters",
			payload: map[string]any{"note": "<b>café</b> & ☃"},
		},
		{
			name:    "Empty object",
			payload: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := EncryptJSON(tc.payload, "correct-horse", nil)
			require.NoError(t, err)

			var out map[string]any
			require.NoError(t, DecryptJSON(blob, "correct-horse", &out))
			require.Equal(t, tc.payload, out)
		})
	}
}

func TestEncryptJSONBlobShape(t *testing.T) {
	blob, err := EncryptJSON(map[string]int{"amount": 100}, "correct-horse", nil)
	require.NoError(t, err)

	salt, err := DecodeHex(blob.Salt)
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	iv, err := DecodeHex(blob.IV)
	require.NoError(t, err)
	require.Len(t, iv, IVSize)

	ct, err := DecodeBase64(blob.Ciphertext)
	require.NoError(t, err)
	// {"amount":100} plus the 16-byte tag
	require.Len(t, ct, len(`{"amount":100}`)+16)
}

func TestEncryptJSONCallerSalt(t *testing.T) {
	prev := interfaces.ComputeHash([]byte("previous"))

	blob, err := EncryptJSON(map[string]int{"amount": 1}, "pw", prev.Bytes())
	require.NoError(t, err)
	require.Equal(t, prev.String(), blob.Salt)
}

func TestDecryptFailsClosed(t *testing.T) {
	blob, err := EncryptJSON(map[string]int{"amount": 100}, "correct-horse", nil)
	require.NoError(t, err)

	other, err := EncryptJSON(map[string]int{"amount": 100}, "correct-horse", nil)
	require.NoError(t, err)

	flipLast := func(s string) string {
		raw, err := DecodeBase64(s)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0x01
		return EncodeBase64(raw)
	}

	tests := []struct {
		name     string
		blob     interfaces.EncryptedBlob
		password string
	}{
		{"wrong password", blob, "battery-staple"},
		{"wrong salt", interfaces.EncryptedBlob{Salt: other.Salt, IV: blob.IV, Ciphertext: blob.Ciphertext}, "correct-horse"},
		{"wrong iv", interfaces.EncryptedBlob{Salt: blob.Salt, IV: other.IV, Ciphertext: blob.Ciphertext}, "correct-horse"},
		{"tampered ciphertext", interfaces.EncryptedBlob{Salt: blob.Salt, IV: blob.IV, Ciphertext: flipLast(blob.Ciphertext)}, "correct-horse"},
		{"bad salt hex", interfaces.EncryptedBlob{Salt: "zz", IV: blob.IV, Ciphertext: blob.Ciphertext}, "correct-horse"},
		{"empty salt", interfaces.EncryptedBlob{Salt: "", IV: blob.IV, Ciphertext: blob.Ciphertext}, "correct-horse"},
		{"short iv", interfaces.EncryptedBlob{Salt: blob.Salt, IV: "0011", Ciphertext: blob.Ciphertext}, "correct-horse"},
		{"bad base64", interfaces.EncryptedBlob{Salt: blob.Salt, IV: blob.IV, Ciphertext: "!!!"}, "correct-horse"},
		{"truncated ciphertext", interfaces.EncryptedBlob{Salt: blob.Salt, IV: blob.IV, Ciphertext: "AAAA"}, "correct-horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]int
			err := DecryptJSON(tt.blob, tt.password, &out)
			require.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
			require.Equal(t, interfaces.ErrDecryptionFailed.Error(), err.Error())
			require.Nil(t, out)
		})
	}
}

func TestDecryptNonJSONPlaintext(t *testing.T) {
	blob, err := EncryptBytes([]byte("not json"), "pw", nil)
	require.NoError(t, err)

	raw, err := DecryptRaw(blob, "pw")
	require.NoError(t, err)
	require.Equal(t, "not json", string(raw))

	var out map[string]any
	require.ErrorIs(t, DecryptJSON(blob, "pw", &out), interfaces.ErrDecryptionFailed)
}

func TestIVUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		blob, err := EncryptJSON(map[string]int{"i": 1}, "pw", []byte("fixed-salt-value"))
		require.NoError(t, err)
		_, dup := seen[blob.IV]
		require.False(t, dup, "IV reused")
		seen[blob.IV] = struct{}{}
	}
}

func TestEncryptRandomFailure(t *testing.T) {
	withFailingRand(t)
	_, err := EncryptJSON(map[string]int{"i": 1}, "pw", []byte("fixed-salt-value"))
	require.ErrorIs(t, err, interfaces.ErrKeyDerivationFailed)
}

func TestCanonicalJSON(t *testing.T) {
	out, err := CanonicalJSON(map[string]string{"b": "<&>", "a": "x"})
	require.NoError(t, err)
	require.Equal(t, `{"a":"x","b":"<&>"}`, string(out))
	require.False(t, strings.HasSuffix(string(out), "\n"))
}
