package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
)

const (
	blocksFileName     = "blocks.jsonl"
	identitiesFileName = "identities.json"
)

// FileStore implements LedgerStore and KeyDirectory on the local file system.
// Entries are appended one JSON object per line to blocks.jsonl; identities
// live in identities.json, rewritten atomically on every change.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string

	mu sync.Mutex
}

// NewFileStore creates the base directory if it doesn't exist.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

func (s *FileStore) blocksPath() string {
	return filepath.Join(s.baseDir, blocksFileName)
}

func (s *FileStore) identitiesPath() string {
	return filepath.Join(s.baseDir, identitiesFileName)
}

// readBlocks parses blocks.jsonl. Callers hold s.mu.
func (s *FileStore) readBlocks() ([]interfaces.LedgerEntry, error) {
	f, err := os.Open(s.blocksPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	var entries []interfaces.LedgerEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e interfaces.LedgerEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to parse ledger line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) Insert(ctx context.Context, entry interfaces.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readBlocks()
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Hash == entry.Hash {
			return interfaces.ErrDuplicateEntry
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}

	f, err := os.OpenFile(s.blocksPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	s.log.Debug("Appended entry to ledger file",
		slog.String("path", s.blocksPath()),
		slog.String("hash", entry.Hash.String()))
	return nil
}

func (s *FileStore) LatestHash(ctx context.Context) (*interfaces.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readBlocks()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return interfaces.HashPtr(entries[len(entries)-1].Hash), nil
}

func (s *FileStore) Entries(ctx context.Context) ([]interfaces.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readBlocks()
}

func (s *FileStore) Entry(ctx context.Context, hash interfaces.Hash) (interfaces.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readBlocks()
	if err != nil {
		return interfaces.LedgerEntry{}, err
	}
	for _, e := range entries {
		if e.Hash == hash {
			return e, nil
		}
	}
	return interfaces.LedgerEntry{}, interfaces.ErrEntryNotFound
}

// readIdentities loads identities.json. Callers hold s.mu.
func (s *FileStore) readIdentities() (map[string]interfaces.IdentityRecord, error) {
	data, err := os.ReadFile(s.identitiesPath())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]interfaces.IdentityRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identities file: %w", err)
	}

	recs := map[string]interfaces.IdentityRecord{}
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse identities file: %w", err)
	}
	return recs, nil
}

// writeIdentities replaces identities.json via a temp file and rename.
func (s *FileStore) writeIdentities(recs map[string]interfaces.IdentityRecord) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identities: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, identitiesFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write identities: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write identities: %w", err)
	}
	return os.Rename(tmp.Name(), s.identitiesPath())
}

func (s *FileStore) Register(ctx context.Context, rec interfaces.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readIdentities()
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	recs[rec.IdentityID] = rec
	return s.writeIdentities(recs)
}

func (s *FileStore) ByIdentity(ctx context.Context, identityID string) (interfaces.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readIdentities()
	if err != nil {
		return interfaces.IdentityRecord{}, err
	}
	rec, ok := recs[identityID]
	if !ok {
		return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
	}
	return rec, nil
}

func (s *FileStore) ByThumbprint(ctx context.Context, thumbprint interfaces.Thumbprint) (interfaces.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readIdentities()
	if err != nil {
		return interfaces.IdentityRecord{}, err
	}
	for _, rec := range recs {
		if rec.Thumbprint != "" && rec.Thumbprint == thumbprint {
			return rec, nil
		}
	}
	return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
}

func (s *FileStore) MarkVerified(ctx context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readIdentities()
	if err != nil {
		return err
	}
	rec, ok := recs[identityID]
	if !ok {
		return interfaces.ErrIdentityNotFound
	}
	rec.Verified = true
	recs[identityID] = rec
	return s.writeIdentities(recs)
}

func (s *FileStore) List(ctx context.Context) ([]interfaces.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readIdentities()
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.IdentityRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec)
	}
	sortIdentities(out)
	return out, nil
}

// Available checks the base directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}
