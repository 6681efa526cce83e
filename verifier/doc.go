// Package verifier checks proofs of possession for registered wallet keys.
//
// A client asks the ChallengeIssuer for a nonce, signs it with the private key
// it unlocked locally, and submits an OwnershipProof. Service resolves the
// identity in a KeyDirectory, checks that the presented key is the registered
// one, burns the nonce, verifies the signature and marks the identity verified.
package verifier
