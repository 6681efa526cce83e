package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/D4ZA1/Cryopay/api"
	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	"github.com/D4ZA1/Cryopay/metrics"
	"github.com/D4ZA1/Cryopay/verifier"
	"github.com/go-chi/chi/v5"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) *RequestError {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// HandlerOpts wires a Handler to its stores.
type HandlerOpts struct {
	Keys       interfaces.KeyDirectory
	Ledger     interfaces.LedgerStore
	Challenges interfaces.ChallengeIssuer
	Verifier   interfaces.OwnershipVerifier
	Limiter    *RateLimiter
	Log        *slog.Logger
}

// Handler serves the identity, challenge, verification and ledger endpoints.
type Handler struct {
	keys       interfaces.KeyDirectory
	ledger     interfaces.LedgerStore
	challenges interfaces.ChallengeIssuer
	verifier   interfaces.OwnershipVerifier
	limiter    *RateLimiter
	log        *slog.Logger
	now        func() time.Time
}

// NewHandler creates a handler. Verifier defaults to a verifier.Service over
// Keys and Challenges.
func NewHandler(opts HandlerOpts) *Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	v := opts.Verifier
	if v == nil {
		v = verifier.NewService(opts.Keys, opts.Challenges, log)
	}
	return &Handler{
		keys:       opts.Keys,
		ledger:     opts.Ledger,
		challenges: opts.Challenges,
		verifier:   v,
		limiter:    opts.Limiter,
		log:        log,
		now:        time.Now,
	}
}

// Router returns the /api routes. Ledger routes are only mounted when a
// ledger store is configured, challenge routes only with an issuer.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/identities", h.HandleRegisterIdentity)
	r.Get("/identities/{identity_id}", h.HandleGetIdentity)
	r.Get("/keys/{thumbprint}", h.HandleGetKey)
	r.Post("/verify-wallet", h.HandleVerifyWallet)

	if h.challenges != nil {
		r.Post("/challenges", h.HandleIssueChallenge)
	}
	if h.ledger != nil {
		r.Get("/ledger/head", h.HandleLedgerHead)
		r.Get("/ledger/entries", h.HandleListEntries)
		r.Post("/ledger/entries", h.HandleInsertEntry)
		r.Get("/ledger/verify", h.HandleVerifyLedger)
	}
	return r
}

// HandleRegisterIdentity registers or replaces an identity.
//
// URL format: POST /api/identities
// Request body: {"user_id", "public_key", "encrypted_private_key"?}
// Response: the stored identity record
func (h *Handler) HandleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, clientIP(r)) {
		return
	}

	var req api.RegisterIdentityRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.IdentityID == "" {
		h.writeError(w, badRequest("missing fields"))
		return
	}

	if _, err := cryptoutils.ParsePublicRecord(req.PublicKey); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}
	tp, err := cryptoutils.Thumbprint(req.PublicKey)
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	rec := interfaces.IdentityRecord{
		IdentityID:          req.IdentityID,
		PublicKey:           req.PublicKey,
		Thumbprint:          tp,
		EncryptedPrivateKey: req.EncryptedPrivateKey,
		CreatedAt:           h.now().UTC(),
	}
	if err := h.keys.Register(r.Context(), rec); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info("Registered identity",
		slog.String("identity_id", rec.IdentityID),
		slog.String("thumbprint", string(tp)))
	h.writeJSON(w, http.StatusCreated, rec)
}

// HandleGetIdentity returns an identity record, including the sealed private
// key so a client can unlock it.
//
// URL format: GET /api/identities/{identity_id}
func (h *Handler) HandleGetIdentity(w http.ResponseWriter, r *http.Request) {
	rec, err := h.keys.ByIdentity(r.Context(), chi.URLParam(r, "identity_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleGetKey resolves a thumbprint to the public key it was computed from.
//
// URL format: GET /api/keys/{thumbprint}
func (h *Handler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	tp := interfaces.Thumbprint(chi.URLParam(r, "thumbprint"))
	if err := tp.Validate(); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	rec, err := h.keys.ByThumbprint(r.Context(), tp)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.NewKeyResponse(rec))
}

// HandleIssueChallenge issues a nonce for an identity.
//
// URL format: POST /api/challenges
// Request body: {"user_id"}
// Response: {"user_id", "challenge", "expires_at"}
func (h *Handler) HandleIssueChallenge(w http.ResponseWriter, r *http.Request) {
	var req api.ChallengeRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.IdentityID == "" {
		h.writeError(w, badRequest("missing fields"))
		return
	}
	if !h.allow(w, req.IdentityID) {
		return
	}

	if _, err := h.keys.ByIdentity(r.Context(), req.IdentityID); err != nil {
		h.writeError(w, err)
		return
	}

	ch, err := h.challenges.Issue(r.Context(), req.IdentityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ch)
}

// HandleVerifyWallet checks a signed challenge and marks the identity verified.
//
// URL format: POST /api/verify-wallet
// Request body: {"user_id", "public_key", "challenge", "signature"}
// Response: {"ok": true, "updated": {...}} or {"ok": false, "error": "invalid signature"}
func (h *Handler) HandleVerifyWallet(w http.ResponseWriter, r *http.Request) {
	var proof interfaces.OwnershipProof
	if err := decodeBody(r, &proof); err != nil {
		h.writeError(w, err)
		return
	}
	if proof.IdentityID == "" || proof.Challenge == "" || proof.Signature == "" || proof.PublicKey.X == "" {
		h.writeError(w, badRequest("missing fields"))
		return
	}
	if !h.allow(w, proof.IdentityID) {
		return
	}

	ok, err := h.verifier.VerifyOwnership(r.Context(), proof)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, api.VerifyWalletResponse{OK: false, Error: "invalid signature"})
		return
	}

	resp := api.VerifyWalletResponse{OK: true}
	if rec, err := h.keys.ByIdentity(r.Context(), proof.IdentityID); err == nil {
		resp.Updated = &rec
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleLedgerHead returns the latest entry hash.
//
// URL format: GET /api/ledger/head
func (h *Handler) HandleLedgerHead(w http.ResponseWriter, r *http.Request) {
	head, err := h.ledger.LatestHash(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.LedgerHeadResponse{Hash: head})
}

// HandleListEntries returns every stored entry in insertion order.
//
// URL format: GET /api/ledger/entries
func (h *Handler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Entries(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []interfaces.LedgerEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// HandleInsertEntry stores an entry sealed by a client. The server checks
// that the hash matches the ciphertext, that the salt is the previous hash
// and that the predecessor exists; it cannot check the payload.
//
// URL format: POST /api/ledger/entries
func (h *Handler) HandleInsertEntry(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, clientIP(r)) {
		return
	}

	var entry interfaces.LedgerEntry
	if err := decodeBody(r, &entry); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.checkEntry(r, entry); err != nil {
		metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		h.writeError(w, err)
		return
	}

	entry.CreatedAt = time.Time{}
	if err := h.ledger.Insert(r.Context(), entry); err != nil {
		metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		h.writeError(w, err)
		return
	}
	metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultOK).Inc()

	h.log.Info("Inserted client entry",
		slog.String("hash", entry.Hash.String()),
		slog.Bool("root", entry.IsRoot()))
	h.writeJSON(w, http.StatusCreated, api.LedgerHeadResponse{Hash: interfaces.HashPtr(entry.Hash)})
}

func (h *Handler) checkEntry(r *http.Request, entry interfaces.LedgerEntry) error {
	if !entry.PublicSummary.Kind.Valid() {
		return badRequest("unknown kind %q", entry.PublicSummary.Kind)
	}
	hash, err := ledger.EntryHash(entry.EncryptedBlob)
	if err != nil {
		return badRequest("%v", err)
	}
	if hash != entry.Hash {
		return badRequest("hash does not match ciphertext")
	}
	if entry.PreviousHash == nil {
		return nil
	}
	if !strings.EqualFold(entry.EncryptedBlob.Salt, entry.PreviousHash.String()) {
		return badRequest("salt does not match previous_hash")
	}
	if _, err := h.ledger.Entry(r.Context(), *entry.PreviousHash); err != nil {
		if errors.Is(err, interfaces.ErrEntryNotFound) {
			return &RequestError{StatusCode: http.StatusConflict, Err: fmt.Errorf("previous_hash %s is not stored", entry.PreviousHash)}
		}
		return err
	}
	return nil
}

// HandleVerifyLedger walks the stored chain.
//
// URL format: GET /api/ledger/verify
func (h *Handler) HandleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	report, err := ledger.VerifyStore(r.Context(), h.ledger, h.log)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.LedgerVerifyResponse{OK: report.OK(), Report: report})
}

// Available reports whether the key directory and ledger store are reachable.
func (h *Handler) Available(ctx context.Context) bool {
	if !h.keys.Available(ctx) {
		return false
	}
	return h.ledger == nil || h.ledger.Available(ctx)
}

func (h *Handler) allow(w http.ResponseWriter, key string) bool {
	if h.limiter.Allow(key, h.now()) {
		return true
	}
	metrics.RateLimitedTotal.Inc()
	h.writeJSON(w, http.StatusTooManyRequests, api.ErrorResponse{Error: "rate limited"})
	return false
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return badRequest("failed to read request body")
	}
	if len(body) > maxBodySize {
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, verifier.ErrIncompleteProof):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrInvalidKeyMaterial):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrIdentityNotFound), errors.Is(err, interfaces.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrDuplicateEntry):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrKeyMismatch),
		errors.Is(err, interfaces.ErrChallengeUnknown),
		errors.Is(err, interfaces.ErrChallengeExpired):
		return http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrStoreUnavailable), errors.Is(err, interfaces.ErrChainLookupFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := api.ErrorResponse{Error: err.Error()}
	if status == http.StatusUnauthorized {
		ok := false
		resp.OK = &ok
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
