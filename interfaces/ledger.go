package interfaces

import "time"

// TransactionKind classifies a payload.
type TransactionKind string

const (
	KindBuy      TransactionKind = "buy"
	KindSell     TransactionKind = "sell"
	KindTransfer TransactionKind = "tx"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindTransfer:
		return true
	default:
		return false
	}
}

// Payload is the sealed part of a ledger entry.
type Payload struct {
	Kind           TransactionKind `json:"kind"`
	Crypto         string          `json:"crypto,omitempty"`
	FiatCurrency   string          `json:"fiatCurrency,omitempty"`
	FiatSymbol     string          `json:"fiatSymbol,omitempty"`
	AmountFiat     float64         `json:"amountFiat"`
	AmountCrypto   float64         `json:"amountCrypto"`
	To             string          `json:"to,omitempty"`
	ToUserID       string          `json:"to_user_id,omitempty"`
	From           string          `json:"from,omitempty"`
	FromThumbprint Thumbprint      `json:"from_thumbprint,omitempty"`
	ToThumbprint   Thumbprint      `json:"to_thumbprint,omitempty"`
	Timestamp      string          `json:"timestamp"`
	UserID         string          `json:"user_id,omitempty"`
}

// PublicSummary is the plaintext projection of a payload stored next to the blob.
type PublicSummary struct {
	Kind           TransactionKind `json:"kind"`
	Crypto         string          `json:"crypto,omitempty"`
	AmountFiat     float64         `json:"amountFiat"`
	AmountCrypto   float64         `json:"amountCrypto"`
	FiatCurrency   string          `json:"fiatCurrency,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
	To             string          `json:"to,omitempty"`
	ToUserID       string          `json:"to_user_id,omitempty"`
	ToThumbprint   Thumbprint      `json:"to_thumbprint,omitempty"`
	FromThumbprint Thumbprint      `json:"from_thumbprint,omitempty"`
}

// LedgerEntry is one row of the append-only ledger.
// PreviousHash is nil for the first entry of a chain.
type LedgerEntry struct {
	PublicSummary PublicSummary `json:"public_summary"`
	EncryptedBlob EncryptedBlob `json:"encrypted_blob"`
	PreviousHash  *Hash         `json:"previous_hash"`
	Hash          Hash          `json:"hash"`
	UserID        string        `json:"user_id,omitempty"`

	// CreatedAt is assigned by the store and never used for ordering.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// IsRoot reports whether the entry has no predecessor.
func (e LedgerEntry) IsRoot() bool {
	return e.PreviousHash == nil
}
