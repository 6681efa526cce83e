// Package interfaces defines the core types and contracts of the cryopay
// wallet core, separating definitions from implementations.
//
// # Ledger Types
//
//   - Hash: 32-byte SHA-256 digest of an entry's ciphertext, hex in text form
//   - EncryptedBlob: salt, IV and ciphertext produced by the symmetric cipher
//   - LedgerEntry: public summary, encrypted blob and the hash link to its predecessor
//   - Payload / PublicSummary: the sealed transaction and its public projection
//
// # Identity Types
//
//   - PublicKeyRecord / PrivateKeyRecord: JWK-shaped P-256 key records
//   - Thumbprint: short stable fingerprint of a public key record
//   - IdentityRecord: the registered public key of an identity plus its sealed private key
//
// # Storage Interfaces
//
//   - LedgerStore: append-only entry table with a tail lookup
//   - KeyDirectory: identity and thumbprint indexed public key registry
//   - LedgerArchive: content-addressed copies of entries
//
// # Verification Interfaces
//
//   - OwnershipVerifier: checks a signed challenge and flips the verified flag
//   - ChallengeIssuer: hands out single-use nonces
//   - AssuranceProvider: external second-factor assurance, consumed only
package interfaces
