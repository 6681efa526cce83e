// Package cryptoutils implements the cryptographic primitives of the cryopay
// wallet: password based sealing of payloads and P-256 signing identities.
//
// # Symmetric Sealing
//
// A 256-bit AES key is derived from the user's password with PBKDF2-HMAC-SHA256
// (100 000 iterations) and used with AES-GCM:
//
//   - Salt: 16 random bytes, or a caller supplied salt such as the previous ledger hash
//   - IV: 12 random bytes, fresh per call
//   - Ciphertext: GCM output with the 16-byte tag appended, no additional data
//
// The result is an EncryptedBlob with hex salt and IV and a base64 ciphertext:
//
//	{"salt":"<hex>","iv":"<hex>","ciphertext":"<base64>"}
//
// Every decryption failure is reported as interfaces.ErrDecryptionFailed, so a
// wrong password cannot be told apart from a tampered blob.
//
// # Signing Identities
//
// Keys are P-256 ECDSA, exported as JWK-shaped records with base64url
// coordinates. The thumbprint of a key is
//
//	hex(sha256(`{"crv":"P-256","kty":"EC","x":"<x>","y":"<y>"}`))[:40]
//
// Challenges are signed over SHA-256 and the signature is the 64-byte r||s
// concatenation in base64, the format produced by browser WebCrypto.
//
// # Usage Example
//
//	kp, err := cryptoutils.GenerateKeyPair()
//	if err != nil {
//	    return err
//	}
//	sealed, err := cryptoutils.EncryptPrivateRecord(kp.PrivateRecord(), password)
//	...
//	sig, err := kp.Sign(challenge)
//	ok, err := cryptoutils.VerifyChallenge(kp.PublicRecord(), challenge, sig)
package cryptoutils
