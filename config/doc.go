// Package config loads the verifier daemon and CLI settings.
//
// Values are resolved in order: built-in defaults, then the YAML file, then
// CRYOPAY_* environment variables. Command-line flags set explicitly are
// applied last by the binaries.
//
// Example file:
//
//	log:
//	  json: true
//	server:
//	  listenAddr: 0.0.0.0:8080
//	  metricsAddr: 127.0.0.1:8090
//	storage:
//	  ledger: [file:///var/lib/cryopay, s3://ledger-bucket/cryopay?region=eu-west-1]
//	  keys: vault://vault.internal:8200/secret/cryopay
//	  archive: ipfs://127.0.0.1:5001
//	verifier:
//	  challengeTTL: 5m
//	  rateLimit: 2
//	  rateBurst: 5
package config
