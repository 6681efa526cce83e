package ledger

import (
	"strings"
	"testing"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/require"
)

func TestVerifyChainCorruptedMiddleEntry(t *testing.T) {
	entries := buildChain(t, buyPayload(1), buyPayload(2), buyPayload(3))
	a, b, c := entries[0], entries[1], entries[2]

	require.True(t, VerifyChain(entries).OK())

	corrupt(t, &entries[1])

	_, err := OpenPayload(entries[1], testPassword)
	require.ErrorIs(t, err, interfaces.ErrDecryptionFailed)

	recomputedB, err := EntryHash(entries[1].EncryptedBlob)
	require.NoError(t, err)
	require.NotEqual(t, recomputedB.String(), c.EncryptedBlob.Salt)

	report := VerifyChain(entries)
	require.False(t, report.OK())
	require.True(t, report.Has(IssueHashMismatch, b.Hash))
	require.True(t, report.Has(IssueBrokenLink, c.Hash))
	require.False(t, report.Has(IssueHashMismatch, a.Hash))
	require.False(t, report.Has(IssueHashMismatch, c.Hash))

	// Entries are still walked by link.
	require.Equal(t, []interfaces.Hash{a.Hash, b.Hash, c.Hash}, report.Order)
}

func TestVerifyChainRewrittenHash(t *testing.T) {
	entries := buildChain(t, buyPayload(1), buyPayload(2), buyPayload(3))
	c := entries[2]

	// Corrupt B and also rewrite its stored hash to match.
	corrupt(t, &entries[1])
	h, err := EntryHash(entries[1].EncryptedBlob)
	require.NoError(t, err)
	entries[1].Hash = h

	report := VerifyChain(entries)
	require.False(t, report.Has(IssueHashMismatch, h))
	require.True(t, report.Has(IssueMissingParent, c.Hash))
}

func TestVerifyChainIgnoresInsertionOrder(t *testing.T) {
	entries := buildChain(t, buyPayload(1), buyPayload(2), buyPayload(3))
	shuffled := []interfaces.LedgerEntry{entries[2], entries[0], entries[1]}

	report := VerifyChain(shuffled)
	require.True(t, report.OK(), "%v", report.Issues)
	require.Equal(t, []interfaces.Hash{entries[0].Hash, entries[1].Hash, entries[2].Hash}, report.Order)
	require.Equal(t, entries[2].Hash, *report.Tip)
}

func TestVerifyChainFork(t *testing.T) {
	entries := buildChain(t, buyPayload(1), buyPayload(2))
	sibling, err := AppendEntry(buyPayload(99), testPassword, interfaces.HashPtr(entries[0].Hash))
	require.NoError(t, err)
	entries = append(entries, sibling)

	report := VerifyChain(entries)
	require.True(t, report.Has(IssueFork, entries[0].Hash))
	require.Equal(t, 1, report.Count(IssueFork))
	require.Len(t, report.Order, 3)
}

func TestVerifyChainSaltMismatch(t *testing.T) {
	entries := buildChain(t, buyPayload(1), buyPayload(2))
	entries[1].EncryptedBlob.Salt = strings.Repeat("ab", 32)

	report := VerifyChain(entries)
	require.True(t, report.Has(IssueSaltMismatch, entries[1].Hash))
}

func TestVerifyChainMultipleRootsAndDuplicates(t *testing.T) {
	first := buildChain(t, buyPayload(1), buyPayload(2))
	second := buildChain(t, buyPayload(3))
	entries := append(append([]interfaces.LedgerEntry{}, first...), second...)
	entries = append(entries, first[1])

	report := VerifyChain(entries)
	require.True(t, report.Has(IssueMultipleRoots, second[0].Hash))
	require.True(t, report.Has(IssueDuplicateHash, first[1].Hash))
	require.Len(t, report.Order, 3)
}

func TestVerifyChainEmpty(t *testing.T) {
	report := VerifyChain(nil)
	require.True(t, report.OK())
	require.Nil(t, report.Tip)
	require.Empty(t, report.Order)
}

func TestVerifyChainUndecodableCiphertext(t *testing.T) {
	entries := buildChain(t, buyPayload(1))
	entries[0].EncryptedBlob.Ciphertext = "%%%"

	report := VerifyChain(entries)
	require.True(t, report.Has(IssueHashMismatch, entries[0].Hash))
}
