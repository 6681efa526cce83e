package cryptoutils

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyChallenge(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	challenge := NewChallenge()
	sig, err := SignChallenge(kp.PrivateRecord(), challenge)
	require.NoError(t, err)

	raw, err := DecodeBase64(sig)
	require.NoError(t, err)
	require.Len(t, raw, SignatureSize)

	tests := []struct {
		name      string
		key       interfaces.PublicKeyRecord
		challenge string
		signature string
		expected  bool
	}{
		{"matching key", kp.PublicRecord(), challenge, sig, true},
		{"other key", other.PublicRecord(), challenge, sig, false},
		{"other challenge", kp.PublicRecord(), challenge + "x", sig, false},
		{"not base64", kp.PublicRecord(), challenge, "%%%", false},
		{"wrong length", kp.PublicRecord(), challenge, EncodeBase64(raw[:63]), false},
		{"empty signature", kp.PublicRecord(), challenge, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyChallenge(tt.key, tt.challenge, tt.signature)
			require.NoError(t, err)
			require.Equal(t, tt.expected, ok)
		})
	}
}

func TestVerifyChallengeMalformedKey(t *testing.T) {
	_, err := VerifyChallenge(interfaces.PublicKeyRecord{Kty: "EC", Crv: "P-256", X: "a", Y: "b"}, "c", "d")
	require.ErrorIs(t, err, interfaces.ErrInvalidKeyMaterial)
}

func TestSignaturesAreRandomized(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	a, err := kp.Sign("cryopay:1:abc")
	require.NoError(t, err)
	b, err := kp.Sign("cryopay:1:abc")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	for _, sig := range []string{a, b} {
		ok, err := VerifyChallenge(kp.PublicRecord(), "cryopay:1:abc", sig)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestNewChallengeFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	c := NewChallengeAt(now)

	parts := strings.SplitN(c, ":", 3)
	require.Len(t, parts, 3)
	require.Equal(t, "cryopay", parts[0])
	millis, err := strconv.ParseInt(parts[1], 10, 64)
	require.NoError(t, err)
	require.Equal(t, int64(1700000000123), millis)
	require.NotEmpty(t, parts[2])

	require.NotEqual(t, NewChallenge(), NewChallenge())
}
