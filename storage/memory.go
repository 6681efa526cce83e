package storage

import (
	"context"
	"sync"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// MemoryStore is an in-process LedgerStore and KeyDirectory.
type MemoryStore struct {
	name string

	mu           sync.RWMutex
	entries      []interfaces.LedgerEntry
	byHash       map[interfaces.Hash]int
	identities   map[string]interfaces.IdentityRecord
	byThumbprint map[interfaces.Thumbprint]string
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:         name,
		byHash:       make(map[interfaces.Hash]int),
		identities:   make(map[string]interfaces.IdentityRecord),
		byThumbprint: make(map[interfaces.Thumbprint]string),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, entry interfaces.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byHash[entry.Hash]; ok {
		return interfaces.ErrDuplicateEntry
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.byHash[entry.Hash] = len(m.entries)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryStore) LatestHash(ctx context.Context) (*interfaces.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}
	return interfaces.HashPtr(m.entries[len(m.entries)-1].Hash), nil
}

func (m *MemoryStore) Entries(ctx context.Context) ([]interfaces.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]interfaces.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryStore) Entry(ctx context.Context, hash interfaces.Hash) (interfaces.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byHash[hash]
	if !ok {
		return interfaces.LedgerEntry{}, interfaces.ErrEntryNotFound
	}
	return m.entries[idx], nil
}

func (m *MemoryStore) Register(ctx context.Context, rec interfaces.IdentityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.identities[rec.IdentityID]; ok && old.Thumbprint != "" {
		delete(m.byThumbprint, old.Thumbprint)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.identities[rec.IdentityID] = rec
	if rec.Thumbprint != "" {
		m.byThumbprint[rec.Thumbprint] = rec.IdentityID
	}
	return nil
}

func (m *MemoryStore) ByIdentity(ctx context.Context, identityID string) (interfaces.IdentityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.identities[identityID]
	if !ok {
		return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
	}
	return rec, nil
}

func (m *MemoryStore) ByThumbprint(ctx context.Context, thumbprint interfaces.Thumbprint) (interfaces.IdentityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byThumbprint[thumbprint]
	if !ok {
		return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
	}
	return m.identities[id], nil
}

func (m *MemoryStore) MarkVerified(ctx context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.identities[identityID]
	if !ok {
		return interfaces.ErrIdentityNotFound
	}
	rec.Verified = true
	m.identities[identityID] = rec
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]interfaces.IdentityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]interfaces.IdentityRecord, 0, len(m.identities))
	for _, rec := range m.identities {
		out = append(out, rec)
	}
	sortIdentities(out)
	return out, nil
}

func (m *MemoryStore) Available(ctx context.Context) bool {
	return true
}

func (m *MemoryStore) Name() string {
	return "memory-" + m.name
}
