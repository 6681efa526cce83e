// Package ledger builds and checks the hash-chained ledger.
//
// Every entry seals its payload under a key derived from the user's password,
// using the previous entry's hash as the KDF salt. The entry's own hash is the
// SHA-256 of its ciphertext bytes, so altering a sealed payload changes the
// hash that the next entry was salted with:
//
//	E1: salt=random      hash=H1=sha256(ct1)  previous_hash=null
//	E2: salt=H1          hash=H2=sha256(ct2)  previous_hash=H1
//	E3: salt=H2          hash=H3=sha256(ct3)  previous_hash=H2
//
// This is tamper evidence, not tamper prevention. Appends are not serialized
// across clients, so two entries may share a previous_hash; VerifyChain
// reports such forks but does not reconcile them.
package ledger
