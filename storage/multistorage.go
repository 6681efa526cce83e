package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// MultiLedgerStore fronts a primary LedgerStore with best-effort mirrors.
// Inserts must succeed on the primary; reads fall back across every
// available store in order.
type MultiLedgerStore struct {
	stores []interfaces.LedgerStore
	log    *slog.Logger
}

// NewMultiLedgerStore creates a multi-store; stores[0] is the primary.
func NewMultiLedgerStore(stores []interfaces.LedgerStore, logger *slog.Logger) *MultiLedgerStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiLedgerStore{
		stores: stores,
		log:    logger,
	}
}

func (m *MultiLedgerStore) Insert(ctx context.Context, entry interfaces.LedgerEntry) error {
	if len(m.stores) == 0 {
		return interfaces.ErrStoreUnavailable
	}
	start := time.Now()

	primary := m.stores[0]
	if err := primary.Insert(ctx, entry); err != nil {
		return fmt.Errorf("%s: %w", primary.Name(), err)
	}

	for _, mirror := range m.stores[1:] {
		if !mirror.Available(ctx) {
			m.log.Debug("Mirror unavailable", slog.String("store", mirror.Name()))
			continue
		}
		if err := mirror.Insert(ctx, entry); err != nil && !errors.Is(err, interfaces.ErrDuplicateEntry) {
			m.log.Warn("Failed to mirror entry",
				slog.String("store", mirror.Name()),
				slog.String("hash", entry.Hash.String()),
				"err", err)
		}
	}

	m.log.Debug("Inserted entry",
		slog.String("primary", primary.Name()),
		slog.String("hash", entry.Hash.String()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (m *MultiLedgerStore) LatestHash(ctx context.Context) (*interfaces.Hash, error) {
	var errs []error
	for _, store := range m.stores {
		if !store.Available(ctx) {
			continue
		}
		h, err := store.LatestHash(ctx)
		if err == nil {
			return h, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}
	return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, errs)
}

func (m *MultiLedgerStore) Entries(ctx context.Context) ([]interfaces.LedgerEntry, error) {
	var errs []error
	for _, store := range m.stores {
		if !store.Available(ctx) {
			continue
		}
		entries, err := store.Entries(ctx)
		if err == nil {
			return entries, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}
	return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, errs)
}

func (m *MultiLedgerStore) Entry(ctx context.Context, hash interfaces.Hash) (interfaces.LedgerEntry, error) {
	var errs []error
	notFound := false
	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable",
				slog.String("store", store.Name()),
				slog.String("hash", hash.String()))
			continue
		}
		entry, err := store.Entry(ctx, hash)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, interfaces.ErrEntryNotFound) {
			notFound = true
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}
	if notFound {
		return interfaces.LedgerEntry{}, interfaces.ErrEntryNotFound
	}
	return interfaces.LedgerEntry{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, errs)
}

// Available checks if any store is available.
func (m *MultiLedgerStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiLedgerStore) Name() string {
	names := make([]string, 0, len(m.stores))
	for _, store := range m.stores {
		names = append(names, store.Name())
	}
	return "multi:[" + strings.Join(names, ",") + "]"
}
