package interfaces

import "errors"

var (
	// ErrKeyDerivationFailed is returned when a key cannot be derived, e.g. the random source failed.
	ErrKeyDerivationFailed = errors.New("key derivation failed")

	// ErrDecryptionFailed covers every decryption failure: wrong password, wrong salt,
	// tampered data or malformed encodings are deliberately indistinguishable.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeyMaterial is returned when a key record cannot be imported.
	ErrInvalidKeyMaterial = errors.New("invalid key material")

	// ErrChainLookupFailed is returned when the ledger tail cannot be read.
	ErrChainLookupFailed = errors.New("chain lookup failed")
)

var (
	// ErrEntryNotFound is returned when no entry has the requested hash.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrDuplicateEntry is returned when an entry with the same hash is already stored.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrIdentityNotFound is returned when the key directory has no matching identity.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrStoreUnavailable is returned when a backing store is not accessible.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidLocationURI is returned when a store URI is malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

var (
	// ErrChallengeUnknown is returned for nonces that were never issued or already consumed.
	ErrChallengeUnknown = errors.New("unknown challenge")

	// ErrChallengeExpired is returned for nonces used after their TTL.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrKeyMismatch is returned when a presented key is not the one registered for the identity.
	ErrKeyMismatch = errors.New("public key does not match registered identity")
)
