package verifier

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock returns an issuer whose clock is advanced by the returned func.
func fakeClock(c *ChallengeIssuer) func(time.Duration) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestChallengeIssuerSingleUse(t *testing.T) {
	ctx := context.Background()
	issuer := NewChallengeIssuer(time.Minute, testLogger())
	fakeClock(issuer)

	ch, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ch.Nonce, cryptoutils.ChallengePrefix))
	require.Equal(t, "alice", ch.IdentityID)
	require.Equal(t, 1, issuer.Pending("alice"))

	require.ErrorIs(t, issuer.Consume(ctx, "bob", ch.Nonce), interfaces.ErrChallengeUnknown)
	require.NoError(t, issuer.Consume(ctx, "alice", ch.Nonce))
	require.ErrorIs(t, issuer.Consume(ctx, "alice", ch.Nonce), interfaces.ErrChallengeUnknown)
	require.Equal(t, 0, issuer.Pending("alice"))
}

func TestChallengeIssuerExpiry(t *testing.T) {
	ctx := context.Background()
	issuer := NewChallengeIssuer(time.Minute, testLogger())
	advance := fakeClock(issuer)

	ch, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)

	advance(61 * time.Second)
	require.ErrorIs(t, issuer.Consume(ctx, "alice", ch.Nonce), interfaces.ErrChallengeExpired)
	require.ErrorIs(t, issuer.Consume(ctx, "alice", ch.Nonce), interfaces.ErrChallengeUnknown)
}

func TestChallengeIssuerPrune(t *testing.T) {
	ctx := context.Background()
	issuer := NewChallengeIssuer(time.Minute, testLogger())
	advance := fakeClock(issuer)

	_, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	_, err = issuer.Issue(ctx, "bob")
	require.NoError(t, err)
	advance(30 * time.Second)
	kept, err := issuer.Issue(ctx, "bob")
	require.NoError(t, err)

	advance(45 * time.Second)
	require.Equal(t, 2, issuer.Prune())
	require.Equal(t, 0, issuer.Pending("alice"))
	require.Equal(t, 1, issuer.Pending("bob"))
	require.NoError(t, issuer.Consume(ctx, "bob", kept.Nonce))
}

func TestChallengeIssuerCapsPending(t *testing.T) {
	ctx := context.Background()
	issuer := NewChallengeIssuer(time.Minute, testLogger())
	fakeClock(issuer)

	first, err := issuer.Issue(ctx, "alice")
	require.NoError(t, err)
	for i := 0; i < MaxPendingChallenges; i++ {
		_, err := issuer.Issue(ctx, "alice")
		require.NoError(t, err)
	}

	require.Equal(t, MaxPendingChallenges, issuer.Pending("alice"))
	require.ErrorIs(t, issuer.Consume(ctx, "alice", first.Nonce), interfaces.ErrChallengeUnknown)
}
