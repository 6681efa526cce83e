package wallet

import (
	"math"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// Viewer is the identity a ledger is read for.
type Viewer struct {
	IdentityID string
	Thumbprint interfaces.Thumbprint

	// Resolve maps a thumbprint to an identity id, or "" when unknown. Optional.
	Resolve func(interfaces.Thumbprint) string
}

// Movement is one ledger entry as seen by a Viewer. Only the public summary is used.
type Movement struct {
	Hash         interfaces.Hash
	Label        string
	Crypto       string
	AmountFiat   float64
	AmountCrypto float64
	Timestamp    string
	Sent         bool
	Relevant     bool
}

// Classify applies the sign rule: buys are negative, sells positive, and
// transfers negative when sent and positive when received.
func Classify(entry interfaces.LedgerEntry, v Viewer) Movement {
	ps := entry.PublicSummary

	var resolvedFrom, resolvedTo string
	if v.Resolve != nil {
		if ps.FromThumbprint != "" {
			resolvedFrom = v.Resolve(ps.FromThumbprint)
		}
		if ps.ToThumbprint != "" {
			resolvedTo = v.Resolve(ps.ToThumbprint)
		}
	}

	me := v.IdentityID
	fromMe := resolvedFrom != "" && resolvedFrom == me ||
		ps.FromThumbprint != "" && ps.FromThumbprint == v.Thumbprint
	toMe := resolvedTo != "" && resolvedTo == me ||
		ps.ToThumbprint != "" && ps.ToThumbprint == v.Thumbprint ||
		ps.ToUserID != "" && ps.ToUserID == me
	mine := entry.UserID != "" && entry.UserID == me

	var sent bool
	switch {
	case resolvedFrom != "" && resolvedFrom == me:
		sent = true
	case resolvedTo != "" && resolvedTo == me:
		sent = false
	case ps.FromThumbprint != "" && ps.FromThumbprint == v.Thumbprint:
		sent = true
	case ps.ToThumbprint != "" && ps.ToThumbprint == v.Thumbprint:
		sent = false
	case mine:
		sent = true
	}

	m := Movement{
		Hash:         entry.Hash,
		Crypto:       ps.Crypto,
		AmountCrypto: ps.AmountCrypto,
		Timestamp:    ps.Timestamp,
		Sent:         sent,
		Relevant:     me != "" && (fromMe || toMe || mine || ps.To == me),
	}

	switch ps.Kind {
	case interfaces.KindBuy:
		m.Label = "Buy"
		m.AmountFiat = -math.Abs(ps.AmountFiat)
	case interfaces.KindSell:
		m.Label = "Sell"
		m.AmountFiat = math.Abs(ps.AmountFiat)
	case interfaces.KindTransfer:
		if sent {
			m.Label = "Sent"
			m.AmountFiat = -math.Abs(ps.AmountFiat)
		} else {
			m.Label = "Received"
			m.AmountFiat = math.Abs(ps.AmountFiat)
		}
	default:
		m.Label = string(ps.Kind)
		m.AmountFiat = ps.AmountFiat
	}
	return m
}

// Sum adds the fiat amounts of relevant movements.
func Sum(movements []Movement) float64 {
	total := 0.0
	for _, m := range movements {
		if m.Relevant {
			total += m.AmountFiat
		}
	}
	return total
}

// Balance classifies entries for v and sums the relevant ones.
func Balance(entries []interfaces.LedgerEntry, v Viewer) float64 {
	total := 0.0
	for _, e := range entries {
		if m := Classify(e, v); m.Relevant {
			total += m.AmountFiat
		}
	}
	return total
}

// validAmounts requires a positive fiat amount and a non-negative crypto amount, both finite.
func validAmounts(fiat, crypto float64) bool {
	finite := func(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }
	return finite(fiat) && finite(crypto) && fiat > 0 && crypto >= 0
}
