/*
Package clients provides a client for the CryoPay verifier API.

VerifierClient covers identity registration, key lookup by thumbprint,
challenge issuance, ownership proofs and the ledger endpoints. Private keys
and passwords never leave the caller: the client only transports public keys,
sealed blobs, signatures and sealed ledger entries.

# Usage Example

	client := clients.NewVerifierClient("http://localhost:8080")

	ch, err := client.Issue(ctx, "alice")
	if err != nil {
		return err
	}
	ok, err := w.ProveOwnership(ctx, client, ch.Nonce, password)

Non-2xx responses are returned as *StatusError, which matches
interfaces.ErrIdentityNotFound, interfaces.ErrEntryNotFound and
interfaces.ErrDuplicateEntry through errors.Is.
*/
package clients
