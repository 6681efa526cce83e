package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	shell "github.com/ipfs/go-ipfs-api"
)

// ErrArchiveIntegrity is returned when an archived entry no longer hashes to its stored hash.
var ErrArchiveIntegrity = errors.New("archived entry failed integrity check")

// IPFSArchive implements LedgerArchive on an IPFS node. Entries are added as
// canonical JSON and the returned CID is the locator.
type IPFSArchive struct {
	shell       *shell.Shell
	host        string
	port        string
	timeout     time.Duration
	log         *slog.Logger
	locationURI string
}

// NewIPFSArchive connects to the IPFS HTTP API at host:port.
func NewIPFSArchive(host, port string, timeout time.Duration, log *slog.Logger) *IPFSArchive {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSArchive{
		shell:       sh,
		host:        host,
		port:        port,
		timeout:     timeout,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}
}

// Archive adds the entry to IPFS and returns its CID.
func (a *IPFSArchive) Archive(ctx context.Context, entry interfaces.LedgerEntry) (string, error) {
	start := time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode entry: %w", err)
	}

	if !a.shell.IsUp() {
		a.log.Warn("IPFS node unavailable",
			slog.String("host", a.host),
			slog.String("port", a.port))
		return "", interfaces.ErrStoreUnavailable
	}

	cid, err := a.shell.Add(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to add entry to IPFS: %w", err)
	}

	a.log.Debug("Archived entry in IPFS",
		slog.String("cid", cid),
		slog.String("hash", entry.Hash.String()),
		slog.Duration("duration", time.Since(start)))

	return cid, nil
}

// Retrieve loads an entry by CID and checks that its ciphertext still hashes to its hash.
func (a *IPFSArchive) Retrieve(ctx context.Context, locator string) (interfaces.LedgerEntry, error) {
	start := time.Now()

	if !a.shell.IsUp() {
		return interfaces.LedgerEntry{}, interfaces.ErrStoreUnavailable
	}

	reader, err := a.shell.Cat(locator)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") || strings.Contains(err.Error(), "not found") {
			return interfaces.LedgerEntry{}, interfaces.ErrEntryNotFound
		}
		a.log.Error("Failed to fetch entry from IPFS",
			slog.String("cid", locator),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return interfaces.LedgerEntry{}, fmt.Errorf("failed to fetch entry from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return interfaces.LedgerEntry{}, fmt.Errorf("failed to read entry from IPFS: %w", err)
	}

	var entry interfaces.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return interfaces.LedgerEntry{}, fmt.Errorf("%w: %v", ErrArchiveIntegrity, err)
	}

	hash, err := ledger.EntryHash(entry.EncryptedBlob)
	if err != nil || hash != entry.Hash {
		a.log.Warn("Archived entry failed integrity check",
			slog.String("cid", locator),
			slog.String("hash", entry.Hash.String()))
		return interfaces.LedgerEntry{}, ErrArchiveIntegrity
	}

	a.log.Debug("Retrieved entry from IPFS",
		slog.String("cid", locator),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return entry, nil
}

// Available checks if the IPFS node is accessible.
func (a *IPFSArchive) Available(ctx context.Context) bool {
	return a.shell.IsUp()
}

func (a *IPFSArchive) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", a.host, a.port)
}

// LocationURI returns the URI that identifies this archive.
func (a *IPFSArchive) LocationURI() string {
	return a.locationURI
}
