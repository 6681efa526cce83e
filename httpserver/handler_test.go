package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/D4ZA1/Cryopay/api"
	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	"github.com/D4ZA1/Cryopay/storage"
	"github.com/D4ZA1/Cryopay/verifier"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	keys    *storage.MemoryStore
	ledger  *storage.MemoryStore
	issuer  *verifier.ChallengeIssuer
	handler *Handler
	router  http.Handler
	key     *cryptoutils.KeyPair
}

func newTestEnv(t *testing.T, limiter *RateLimiter) *testEnv {
	t.Helper()
	kp, err := cryptoutils.GenerateKeyPair()
	require.NoError(t, err)

	keys := storage.NewMemoryStore(t.Name() + "-keys")
	store := storage.NewMemoryStore(t.Name() + "-ledger")
	issuer := verifier.NewChallengeIssuer(time.Minute, testLogger())

	h := NewHandler(HandlerOpts{
		Keys:       keys,
		Ledger:     store,
		Challenges: issuer,
		Limiter:    limiter,
		Log:        testLogger(),
	})

	r := chi.NewRouter()
	r.Mount("/api", h.Router())

	return &testEnv{keys: keys, ledger: store, issuer: issuer, handler: h, router: r, key: kp}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(body)
			require.NoError(t, err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) register(t *testing.T, id string) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/identities", api.RegisterIdentityRequest{
		IdentityID: id,
		PublicKey:  e.key.PublicRecord(),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestHandleRegisterIdentity(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")

	rec, err := env.keys.ByIdentity(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, env.key.Thumbprint(), rec.Thumbprint)
	assert.False(t, rec.Verified)

	t.Run("missing user_id", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/identities", api.RegisterIdentityRequest{PublicKey: env.key.PublicRecord()})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid key", func(t *testing.T) {
		bad := env.key.PublicRecord()
		bad.X = "AAAA"
		rr := env.do(t, http.MethodPost, "/api/identities", api.RegisterIdentityRequest{IdentityID: "bob", PublicKey: bad})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/identities", []byte("{"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleGetIdentityAndKey(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")

	rr := env.do(t, http.MethodGet, "/api/identities/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec interfaces.IdentityRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "alice", rec.IdentityID)

	rr = env.do(t, http.MethodGet, "/api/identities/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/keys/"+string(env.key.Thumbprint()), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var key api.KeyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &key))
	assert.Equal(t, "alice", key.IdentityID)
	assert.Equal(t, env.key.PublicRecord(), key.PublicKey)

	rr = env.do(t, http.MethodGet, "/api/keys/not-a-thumbprint", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/keys/0000000000000000000000000000000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleVerifyWallet(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")

	issue := func(t *testing.T) interfaces.Challenge {
		rr := env.do(t, http.MethodPost, "/api/challenges", api.ChallengeRequest{IdentityID: "alice"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var ch interfaces.Challenge
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ch))
		return ch
	}

	t.Run("valid proof", func(t *testing.T) {
		ch := issue(t)
		sig, err := env.key.Sign(ch.Nonce)
		require.NoError(t, err)

		rr := env.do(t, http.MethodPost, "/api/verify-wallet", interfaces.OwnershipProof{
			IdentityID: "alice",
			PublicKey:  env.key.PublicRecord(),
			Challenge:  ch.Nonce,
			Signature:  sig,
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp api.VerifyWalletResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		require.NotNil(t, resp.Updated)
		assert.True(t, resp.Updated.Verified)

		// replay
		rr = env.do(t, http.MethodPost, "/api/verify-wallet", interfaces.OwnershipProof{
			IdentityID: "alice",
			PublicKey:  env.key.PublicRecord(),
			Challenge:  ch.Nonce,
			Signature:  sig,
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid signature", func(t *testing.T) {
		ch := issue(t)
		sig, err := env.key.Sign("something else")
		require.NoError(t, err)

		rr := env.do(t, http.MethodPost, "/api/verify-wallet", interfaces.OwnershipProof{
			IdentityID: "alice",
			PublicKey:  env.key.PublicRecord(),
			Challenge:  ch.Nonce,
			Signature:  sig,
		})
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"ok":false,"error":"invalid signature"}`, rr.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/verify-wallet", interfaces.OwnershipProof{IdentityID: "alice"})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"missing fields"}`, rr.Body.String())
	})

	t.Run("unknown identity", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/challenges", api.ChallengeRequest{IdentityID: "mallory"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleLedger(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	rr := env.do(t, http.MethodGet, "/api/ledger/head", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"hash":null}`, rr.Body.String())

	payload := interfaces.Payload{Kind: interfaces.KindBuy, Crypto: "BTC", AmountFiat: 100, AmountCrypto: 0.001, Timestamp: "2024-01-01T00:00:00.000Z"}
	root, err := ledger.AppendEntry(payload, "pw", nil)
	require.NoError(t, err)

	rr = env.do(t, http.MethodPost, "/api/ledger/entries", root)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	next, err := ledger.AppendEntry(payload, "pw", interfaces.HashPtr(root.Hash))
	require.NoError(t, err)
	rr = env.do(t, http.MethodPost, "/api/ledger/entries", next)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	t.Run("duplicate", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/ledger/entries", next)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("hash mismatch", func(t *testing.T) {
		bad, err := ledger.AppendEntry(payload, "pw", interfaces.HashPtr(next.Hash))
		require.NoError(t, err)
		bad.Hash = root.Hash
		rr := env.do(t, http.MethodPost, "/api/ledger/entries", bad)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown predecessor", func(t *testing.T) {
		orphan, err := ledger.AppendEntry(payload, "pw", interfaces.HashPtr(interfaces.ComputeHash([]byte("nope"))))
		require.NoError(t, err)
		rr := env.do(t, http.MethodPost, "/api/ledger/entries", orphan)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	rr = env.do(t, http.MethodGet, "/api/ledger/head", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var head api.LedgerHeadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &head))
	require.NotNil(t, head.Hash)
	assert.Equal(t, next.Hash, *head.Hash)

	rr = env.do(t, http.MethodGet, "/api/ledger/entries", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []interfaces.LedgerEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, root.Hash, entries[0].Hash)

	rr = env.do(t, http.MethodGet, "/api/ledger/verify", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var report api.LedgerVerifyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.True(t, report.OK)
	assert.Equal(t, 2, report.Report.Entries)

	stored, err := env.ledger.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRateLimitedChallenges(t *testing.T) {
	env := newTestEnv(t, NewRateLimiter(0.001, 2, time.Minute))
	env.register(t, "alice")

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodPost, "/api/challenges", api.ChallengeRequest{IdentityID: "alice"})
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := env.do(t, http.MethodPost, "/api/challenges", api.ChallengeRequest{IdentityID: "alice"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestServerHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	srv, err := New(&api.HTTPServerConfig{Log: testLogger()}, env.handler)
	require.NoError(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	live := get("/livez")
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "application/json", live.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"alive"}`, live.Body.String())
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	assert.JSONEq(t, `{"status":"draining"}`, get("/drain").Body.String())
	notReady := get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, notReady.Code)
	assert.JSONEq(t, `{"status":"not ready"}`, notReady.Body.String())
	assert.JSONEq(t, `{"status":"already draining"}`, get("/drain").Body.String())

	assert.JSONEq(t, `{"status":"ready"}`, get("/undrain").Body.String())
	assert.JSONEq(t, `{"status":"already ready"}`, get("/undrain").Body.String())
	assert.JSONEq(t, `{"status":"ready"}`, get("/readyz").Body.String())

	assert.Equal(t, http.StatusOK, get("/api/ledger/head").Code)
}
