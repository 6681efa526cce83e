// Package main (cmd/verifierd) runs the CryoPay verifier server.
//
// The verifier stores public keys and sealed private keys per identity,
// issues single-use challenges, checks signed challenges at
// POST /api/verify-wallet and accepts client-sealed ledger entries.
//
// Configuration is resolved from built-in defaults, an optional YAML file
// (--config), CRYOPAY_* environment variables and command-line flags, in
// increasing order of precedence.
//
// Example usage:
//
//	verifierd --listen-addr 0.0.0.0:8080 \
//	  --keys vault://vault.internal:8200/secret/cryopay \
//	  --ledger file:///var/lib/cryopay --ledger s3://cryopay-ledger/prod?region=eu-west-1 \
//	  --archive ipfs://127.0.0.1:5001
//
// The server shuts down gracefully on SIGINT or SIGTERM.
package main
