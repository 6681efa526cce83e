/*
Package api holds the wire types and server configuration shared by the
verifier HTTP server (package httpserver) and its Go client (package
api/clients).

# Endpoints

	POST /api/identities                 register an identity and its public key
	GET  /api/identities/{identity_id}   fetch an identity record
	GET  /api/keys/{thumbprint}          resolve a thumbprint to a public key
	POST /api/challenges                 issue a single-use nonce
	POST /api/verify-wallet              submit a signed nonce
	GET  /api/ledger/head                hash of the latest entry
	GET  /api/ledger/entries             every stored entry
	POST /api/ledger/entries             insert a client-sealed entry
	GET  /api/ledger/verify              walk the chain and report issues

# Verify-wallet responses

	200 {"ok":true,"updated":{...identity...}}
	400 {"error":"missing fields"}
	401 {"ok":false,"error":"invalid signature"}

Ledger payloads are sealed client-side; the server only ever sees public
summaries, ciphertexts and hashes.
*/
package api
