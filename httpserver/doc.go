/*
Package httpserver implements the CryoPay verifier HTTP server.

The server keeps public keys and sealed private keys per identity, issues
single-use challenges, checks signed challenges and stores ledger entries
sealed by clients. It never sees passwords or plaintext payloads.

# Endpoints

  - POST /api/identities - Register or replace an identity
  - GET /api/identities/{identity_id} - Fetch an identity record
  - GET /api/keys/{thumbprint} - Resolve a thumbprint to its public key
  - POST /api/challenges - Issue a challenge for an identity
  - POST /api/verify-wallet - Check a signed challenge
  - GET /api/ledger/head - Latest entry hash
  - GET /api/ledger/entries - All stored entries
  - POST /api/ledger/entries - Store a client-sealed entry
  - GET /api/ledger/verify - Walk the stored chain
  - GET /livez, /readyz, /drain, /undrain - Health and drain control

/api/verify-wallet answers 400 {"error":"missing fields"} for incomplete
requests, 401 {"ok":false,"error":"invalid signature"} when the signature
does not verify and 200 {"ok":true,"updated":{...}} otherwise.

# Example Usage

	handler := httpserver.NewHandler(httpserver.HandlerOpts{
		Keys:       keys,
		Ledger:     ledgerStore,
		Challenges: verifier.NewChallengeIssuer(verifier.DefaultChallengeTTL, logger),
		Limiter:    httpserver.NewRateLimiter(5, 10, 0),
		Log:        logger,
	})

	srv, err := httpserver.New(&api.HTTPServerConfig{
		ListenAddr:               ":8080",
		MetricsAddr:              ":9090",
		Log:                      logger,
		GracefulShutdownDuration: 30 * time.Second,
	}, handler)
	if err != nil {
		return err
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package httpserver
