package clients

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/httpserver"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	"github.com/D4ZA1/Cryopay/storage"
	"github.com/D4ZA1/Cryopay/verifier"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore(t.Name())

	h := httpserver.NewHandler(httpserver.HandlerOpts{
		Keys:       store,
		Ledger:     store,
		Challenges: verifier.NewChallengeIssuer(time.Minute, log),
		Log:        log,
	})
	r := chi.NewRouter()
	r.Mount("/api", h.Router())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifierClientOwnership(t *testing.T) {
	ctx := context.Background()
	client := NewVerifierClient(newTestServer(t).URL + "/")

	kp, err := cryptoutils.GenerateKeyPair()
	require.NoError(t, err)
	sealed, err := cryptoutils.EncryptPrivateRecord(kp.PrivateRecord(), "pw")
	require.NoError(t, err)

	rec, err := client.RegisterIdentity(ctx, "alice", kp.PublicRecord(), &sealed)
	require.NoError(t, err)
	assert.Equal(t, kp.Thumbprint(), rec.Thumbprint)

	got, err := client.Identity(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got.EncryptedPrivateKey)
	unsealed, err := cryptoutils.DecryptPrivateRecord(*got.EncryptedPrivateKey, "pw")
	require.NoError(t, err)
	assert.Equal(t, kp.Thumbprint(), unsealed.Thumbprint())

	key, err := client.KeyByThumbprint(ctx, kp.Thumbprint())
	require.NoError(t, err)
	assert.Equal(t, "alice", key.IdentityID)

	_, err = client.Identity(ctx, "bob")
	assert.ErrorIs(t, err, interfaces.ErrIdentityNotFound)

	ch, err := client.Issue(ctx, "alice")
	require.NoError(t, err)

	badSig, err := kp.Sign("other")
	require.NoError(t, err)
	ok, err := client.VerifyOwnership(ctx, interfaces.OwnershipProof{
		IdentityID: "alice", PublicKey: kp.PublicRecord(), Challenge: ch.Nonce, Signature: badSig,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	ch, err = client.Issue(ctx, "alice")
	require.NoError(t, err)
	sig, err := kp.Sign(ch.Nonce)
	require.NoError(t, err)
	ok, err = client.VerifyOwnership(ctx, interfaces.OwnershipProof{
		IdentityID: "alice", PublicKey: kp.PublicRecord(), Challenge: ch.Nonce, Signature: sig,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = client.Identity(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.Verified)

	_, err = client.VerifyOwnership(ctx, interfaces.OwnershipProof{IdentityID: "alice"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)
	assert.Equal(t, "missing fields", se.Message)
}

func TestVerifierClientLedger(t *testing.T) {
	ctx := context.Background()
	client := NewVerifierClient(newTestServer(t).URL)

	head, err := client.LedgerHead(ctx)
	require.NoError(t, err)
	assert.Nil(t, head)

	payload := interfaces.Payload{Kind: interfaces.KindSell, Crypto: "ETH", AmountFiat: 50, AmountCrypto: 0.02, Timestamp: "2024-02-01T00:00:00.000Z"}
	var prev *interfaces.Hash
	for i := 0; i < 3; i++ {
		entry, err := ledger.AppendEntry(payload, "pw", prev)
		require.NoError(t, err)
		require.NoError(t, client.InsertEntry(ctx, entry))
		prev = interfaces.HashPtr(entry.Hash)
	}

	head, err = client.LedgerHead(ctx)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, *prev, *head)

	entries, err := client.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	err = client.InsertEntry(ctx, entries[2])
	assert.ErrorIs(t, err, interfaces.ErrDuplicateEntry)

	report, err := client.VerifyLedger(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, *prev, *report.Report.Tip)
}
