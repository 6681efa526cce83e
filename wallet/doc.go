// Package wallet is the client-side facade over the crypto core: it creates
// identities, holds the unlocked password for a session, seals buy, sell and
// transfer payloads into the shared ledger, and proves key ownership to a
// verifier.
package wallet
