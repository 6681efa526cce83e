package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cryopay"

// Result labels.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
)

var (
	// CryptoOperationsTotal counts cipher and signature operations by kind and result.
	CryptoOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crypto_operations_total",
			Help:      "Symmetric and asymmetric operations performed",
		},
		[]string{"operation", "result"},
	)

	// LedgerAppendsTotal counts ledger entry inserts.
	LedgerAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_appends_total",
			Help:      "Ledger entries appended",
		},
		[]string{"result"},
	)

	// LedgerNewChainsTotal counts appends that started from a null previous hash.
	LedgerNewChainsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_new_chains_total",
			Help:      "Appends that started a chain without a predecessor",
		},
	)

	// ChainVerificationsTotal counts chain walks.
	ChainVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_chain_verifications_total",
			Help:      "Chain verification walks",
		},
		[]string{"result"},
	)

	// ChainIssuesTotal counts issues found by chain verification, by kind.
	ChainIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_chain_issues_total",
			Help:      "Issues found while verifying the ledger chain",
		},
		[]string{"kind"},
	)

	// OwnershipVerificationsTotal counts proof-of-possession checks.
	OwnershipVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ownership_verifications_total",
			Help:      "Ownership proofs checked by the verifier",
		},
		[]string{"result"},
	)

	// ChallengesIssuedTotal counts nonces handed out by the challenge issuer.
	ChallengesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Challenges issued",
		},
	)

	// RateLimitedTotal counts requests rejected by the per-identity limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
)

// RecordCrypto is a shorthand for CryptoOperationsTotal.
func RecordCrypto(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	CryptoOperationsTotal.WithLabelValues(operation, result).Inc()
}
