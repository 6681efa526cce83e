package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyHolder(t *testing.T) {
	h := New()

	_, ok := h.Get()
	require.False(t, ok)
	require.False(t, h.Unlocked())

	h.Set("correct-horse")
	pw, ok := h.Get()
	require.True(t, ok)
	require.Equal(t, "correct-horse", pw)

	h.Set("battery-staple")
	pw, _ = h.Get()
	require.Equal(t, "battery-staple", pw, "last write wins")

	h.Clear()
	_, ok = h.Get()
	require.False(t, ok)

	require.NotPanics(t, h.Clear)
}

func TestKeyHolderClearWipesBytes(t *testing.T) {
	h := New()
	h.Set("secret")
	held := h.secret

	h.Clear()
	require.Equal(t, make([]byte, len("secret")), held)
}

func TestKeyHolderEmptyPasswordIsHeld(t *testing.T) {
	h := New()
	h.Set("")
	pw, ok := h.Get()
	require.True(t, ok)
	require.Empty(t, pw)
}

func TestKeyHolderWith(t *testing.T) {
	h := New()

	called, err := h.With(func(string) error { return errors.New("unreachable") })
	require.False(t, called)
	require.NoError(t, err)

	h.Set("pw")
	var seen string
	called, err = h.With(func(p string) error { seen = p; return nil })
	require.True(t, called)
	require.NoError(t, err)
	require.Equal(t, "pw", seen)
}

func TestKeyHolderConcurrentUse(t *testing.T) {
	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Set("pw")
			h.Get()
			h.Clear()
		}()
	}
	wg.Wait()
}
