package verifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/metrics"
)

// DefaultChallengeTTL is how long an issued nonce stays redeemable.
const DefaultChallengeTTL = 5 * time.Minute

// MaxPendingChallenges caps outstanding nonces per identity; the oldest is dropped first.
const MaxPendingChallenges = 8

// ChallengeIssuer is an in-memory interfaces.ChallengeIssuer. Nonces are
// single use and expire after the TTL.
type ChallengeIssuer struct {
	ttl time.Duration
	log *slog.Logger
	now func() time.Time

	mu      sync.Mutex
	pending map[string][]interfaces.Challenge
}

func NewChallengeIssuer(ttl time.Duration, log *slog.Logger) *ChallengeIssuer {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChallengeIssuer{
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		pending: make(map[string][]interfaces.Challenge),
	}
}

func (c *ChallengeIssuer) Issue(ctx context.Context, identityID string) (interfaces.Challenge, error) {
	now := c.now()
	challenge := interfaces.Challenge{
		IdentityID: identityID,
		Nonce:      cryptoutils.NewChallengeAt(now),
		ExpiresAt:  now.Add(c.ttl),
	}

	c.mu.Lock()
	live := c.live(identityID, now)
	if len(live) >= MaxPendingChallenges {
		live = live[len(live)-MaxPendingChallenges+1:]
	}
	c.pending[identityID] = append(live, challenge)
	c.mu.Unlock()

	metrics.ChallengesIssuedTotal.Inc()
	c.log.Debug("Issued challenge",
		slog.String("identity_id", identityID),
		slog.Time("expires_at", challenge.ExpiresAt))
	return challenge, nil
}

func (c *ChallengeIssuer) Consume(ctx context.Context, identityID, nonce string) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.pending[identityID]
	for i, ch := range list {
		if ch.Nonce != nonce {
			continue
		}
		rest := append(list[:i:i], list[i+1:]...)
		if len(rest) == 0 {
			delete(c.pending, identityID)
		} else {
			c.pending[identityID] = rest
		}
		if now.After(ch.ExpiresAt) {
			return interfaces.ErrChallengeExpired
		}
		return nil
	}
	return interfaces.ErrChallengeUnknown
}

// Prune drops expired nonces for every identity and returns how many were removed.
func (c *ChallengeIssuer) Prune() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, list := range c.pending {
		live := c.live(id, now)
		removed += len(list) - len(live)
		if len(live) == 0 {
			delete(c.pending, id)
		} else {
			c.pending[id] = live
		}
	}
	return removed
}

// Pending returns the number of outstanding nonces for an identity.
func (c *ChallengeIssuer) Pending(identityID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[identityID])
}

// live returns the unexpired nonces of an identity. Callers hold c.mu.
func (c *ChallengeIssuer) live(identityID string, now time.Time) []interfaces.Challenge {
	list := c.pending[identityID]
	out := list[:0]
	for _, ch := range list {
		if !now.After(ch.ExpiresAt) {
			out = append(out, ch)
		}
	}
	return out
}
