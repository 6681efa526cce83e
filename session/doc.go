// Package session holds the unlocked wallet password for the lifetime of a
// client session.
package session
