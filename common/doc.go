// Package common holds process-wide helpers shared by the cryopay binaries:
// logger construction and build metadata.
package common
