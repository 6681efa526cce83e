package session

import (
	"runtime"
	"sync"
)

// KeyHolder keeps at most one password in memory. It is an owned value:
// whoever unlocks a wallet holds the KeyHolder and clears it on logout.
// Set replaces any previous value (last write wins).
type KeyHolder struct {
	mu     sync.Mutex
	secret []byte
}

// New returns an empty holder.
func New() *KeyHolder {
	return &KeyHolder{}
}

// Set stores password, wiping whatever was held before.
func (h *KeyHolder) Set(password string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	wipe(h.secret)
	h.secret = append(make([]byte, 0, len(password)), password...)
}

// Get returns the held password, or false when empty.
func (h *KeyHolder) Get() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.secret == nil {
		return "", false
	}
	return string(h.secret), true
}

// Unlocked reports whether a password is held.
func (h *KeyHolder) Unlocked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.secret != nil
}

// Clear wipes the held bytes. Calling it on an empty holder is a no-op.
func (h *KeyHolder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	wipe(h.secret)
	h.secret = nil
}

// With runs fn with the held password, returning false without calling fn
// when the holder is empty.
func (h *KeyHolder) With(fn func(password string) error) (bool, error) {
	password, ok := h.Get()
	if !ok {
		return false, nil
	}
	return true, fn(password)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
