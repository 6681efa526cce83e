// Package storage provides the ledger stores, key directories and archives
// behind the cryopay wallet core.
//
// Stores are selected by URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - memory://name                      in-process ledger and key directory
//   - file:///var/lib/cryopay            blocks.jsonl and identities.json on disk
//   - s3://[KEY:SECRET@]bucket/prefix?region=us-east-1&endpoint=...
//   - vault://[TOKEN@]vault.example.com:8200/secret/cryopay?tls=true
//   - ipfs://127.0.0.1:5001              content-addressed entry archive
//
// # Ledger Stores
//
// A LedgerStore is an append-only table. Insertion order is kept for the tail
// lookup only; readers verify the chain by following previous_hash links.
// The S3 store encodes insertion order into object keys:
//
//	<prefix>/blocks/<sequence %020d>-<hash>.json
//
// MultiLedgerStore writes to a primary store and mirrors to the others.
//
// # Key Directories
//
// A KeyDirectory maps identities and thumbprints to public key records. The
// Vault directory keeps records in a KV v2 mount:
//
//	<mount>/data/<path>/identities/<identity_id>
//	<mount>/data/<path>/thumbprints/<thumbprint>
//
// # Archives
//
// The IPFS archive stores a copy of each entry and re-checks the entry hash
// when it is read back.
package storage
