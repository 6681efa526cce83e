// Package metrics exposes the Prometheus counters recorded by the ledger,
// cipher and verifier code paths, and a small HTTP server that serves them.
package metrics
