package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/D4ZA1/Cryopay/api"
	"github.com/D4ZA1/Cryopay/interfaces"
)

// VerifierClient talks to the verifier HTTP API.
// It satisfies interfaces.OwnershipVerifier, so a wallet can prove ownership remotely.
type VerifierClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewVerifierClient creates a client for the verifier API.
//
// Parameters:
//   - baseURL: The base URL of the verifier (e.g., "http://localhost:8080")
//   - timeout: Request timeout duration (optional, default 30 seconds)
func NewVerifierClient(baseURL string, timeout ...time.Duration) *VerifierClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &VerifierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("verifier returned %d: %s", e.StatusCode, e.Message)
}

// Is maps 404 and 409 responses to the matching sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == interfaces.ErrIdentityNotFound || target == interfaces.ErrEntryNotFound
	case http.StatusConflict:
		return target == interfaces.ErrDuplicateEntry
	case http.StatusServiceUnavailable:
		return target == interfaces.ErrStoreUnavailable
	}
	return false
}

func (c *VerifierClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		msg := string(data)
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// RegisterIdentity registers a public key, and optionally the sealed private key, for an identity.
func (c *VerifierClient) RegisterIdentity(ctx context.Context, identityID string, pub interfaces.PublicKeyRecord, sealed *interfaces.EncryptedBlob) (interfaces.IdentityRecord, error) {
	var rec interfaces.IdentityRecord
	_, err := c.do(ctx, http.MethodPost, "/api/identities", api.RegisterIdentityRequest{
		IdentityID:          identityID,
		PublicKey:           pub,
		EncryptedPrivateKey: sealed,
	}, &rec)
	return rec, err
}

// Identity fetches an identity record.
func (c *VerifierClient) Identity(ctx context.Context, identityID string) (interfaces.IdentityRecord, error) {
	var rec interfaces.IdentityRecord
	_, err := c.do(ctx, http.MethodGet, "/api/identities/"+url.PathEscape(identityID), nil, &rec)
	return rec, err
}

// KeyByThumbprint resolves a thumbprint to its public key.
func (c *VerifierClient) KeyByThumbprint(ctx context.Context, tp interfaces.Thumbprint) (api.KeyResponse, error) {
	var key api.KeyResponse
	_, err := c.do(ctx, http.MethodGet, "/api/keys/"+url.PathEscape(string(tp)), nil, &key)
	return key, err
}

// Issue requests a challenge for an identity.
func (c *VerifierClient) Issue(ctx context.Context, identityID string) (interfaces.Challenge, error) {
	var ch interfaces.Challenge
	_, err := c.do(ctx, http.MethodPost, "/api/challenges", api.ChallengeRequest{IdentityID: identityID}, &ch)
	return ch, err
}

// VerifyOwnership submits a signed challenge. A 401 is reported as (false, nil).
func (c *VerifierClient) VerifyOwnership(ctx context.Context, proof interfaces.OwnershipProof) (bool, error) {
	var resp api.VerifyWalletResponse
	status, err := c.do(ctx, http.MethodPost, "/api/verify-wallet", proof, &resp)
	if status == http.StatusUnauthorized {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.OK, nil
}

// LedgerHead returns the latest entry hash, nil for an empty ledger.
func (c *VerifierClient) LedgerHead(ctx context.Context) (*interfaces.Hash, error) {
	var head api.LedgerHeadResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/ledger/head", nil, &head); err != nil {
		return nil, err
	}
	return head.Hash, nil
}

// Entries returns every stored entry in insertion order.
func (c *VerifierClient) Entries(ctx context.Context) ([]interfaces.LedgerEntry, error) {
	var entries []interfaces.LedgerEntry
	_, err := c.do(ctx, http.MethodGet, "/api/ledger/entries", nil, &entries)
	return entries, err
}

// InsertEntry stores a locally sealed entry.
func (c *VerifierClient) InsertEntry(ctx context.Context, entry interfaces.LedgerEntry) error {
	_, err := c.do(ctx, http.MethodPost, "/api/ledger/entries", entry, nil)
	return err
}

// VerifyLedger asks the server to walk its chain.
func (c *VerifierClient) VerifyLedger(ctx context.Context) (api.LedgerVerifyResponse, error) {
	var report api.LedgerVerifyResponse
	_, err := c.do(ctx, http.MethodGet, "/api/ledger/verify", nil, &report)
	return report, err
}

// IsUnauthorized reports whether err is a 401 from the verifier.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
