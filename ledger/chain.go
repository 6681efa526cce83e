package ledger

import (
	"fmt"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
)

// Summarize projects the non-sensitive fields of a payload.
// Transfers also carry their routing fields.
func Summarize(p interfaces.Payload) interfaces.PublicSummary {
	s := interfaces.PublicSummary{
		Kind:         p.Kind,
		Crypto:       p.Crypto,
		AmountFiat:   p.AmountFiat,
		AmountCrypto: p.AmountCrypto,
		FiatCurrency: p.FiatCurrency,
		Timestamp:    p.Timestamp,
	}
	if p.Kind == interfaces.KindTransfer {
		s.To = p.To
		s.ToUserID = p.ToUserID
		s.ToThumbprint = p.ToThumbprint
		s.FromThumbprint = p.FromThumbprint
	}
	return s
}

// AppendEntry seals payload and links it after previousHash (nil starts a chain).
func AppendEntry(payload interfaces.Payload, password string, previousHash *interfaces.Hash) (interfaces.LedgerEntry, error) {
	entry, err := AppendValue(payload, Summarize(payload), password, previousHash)
	if err != nil {
		return entry, err
	}
	entry.UserID = payload.UserID
	return entry, nil
}

// AppendValue is AppendEntry for arbitrary JSON values with a caller-built summary.
func AppendValue(v any, summary interfaces.PublicSummary, password string, previousHash *interfaces.Hash) (interfaces.LedgerEntry, error) {
	var salt []byte
	var prev *interfaces.Hash
	if previousHash != nil {
		salt = previousHash.Bytes()
		prev = interfaces.HashPtr(*previousHash)
	}

	blob, err := cryptoutils.EncryptJSON(v, password, salt)
	if err != nil {
		return interfaces.LedgerEntry{}, err
	}

	hash, err := EntryHash(blob)
	if err != nil {
		return interfaces.LedgerEntry{}, err
	}

	return interfaces.LedgerEntry{
		PublicSummary: summary,
		EncryptedBlob: blob,
		PreviousHash:  prev,
		Hash:          hash,
	}, nil
}

// EntryHash is the SHA-256 of the decoded ciphertext bytes.
func EntryHash(blob interfaces.EncryptedBlob) (interfaces.Hash, error) {
	ct, err := cryptoutils.DecodeBase64(blob.Ciphertext)
	if err != nil {
		return interfaces.Hash{}, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	return interfaces.ComputeHash(ct), nil
}

// Open decrypts an entry's blob into out.
func Open(entry interfaces.LedgerEntry, password string, out any) error {
	return cryptoutils.DecryptJSON(entry.EncryptedBlob, password, out)
}

// OpenPayload decrypts an entry into a Payload.
func OpenPayload(entry interfaces.LedgerEntry, password string) (interfaces.Payload, error) {
	var p interfaces.Payload
	if err := Open(entry, password, &p); err != nil {
		return interfaces.Payload{}, err
	}
	return p, nil
}
