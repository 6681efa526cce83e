package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
)

// Factory creates stores from location URIs and manages multi-store configurations.
// memory:// stores are cached by name so a ledger and a key directory named
// alike share one in-process instance.
type Factory struct {
	log *slog.Logger

	mu     sync.Mutex
	memory map[string]*MemoryStore
}

// NewFactory creates a new factory instance.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{
		log:    logger,
		memory: make(map[string]*MemoryStore),
	}
}

// LedgerStoreFor creates a ledger store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory://name - in-process store
//   - file:///path - local append-only block log
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-east-1&endpoint=host
func (f *Factory) LedgerStoreFor(uri string) (interfaces.LedgerStore, error) {
	loc, err := interfaces.NewStorageLocation(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case "memory":
		return f.memoryStore(loc), nil
	case "file":
		return f.createFileStore(loc)
	case "s3":
		return f.createS3Store(loc)
	default:
		return nil, fmt.Errorf("%w: scheme %q cannot hold a ledger", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// KeyDirectoryFor creates a key directory from a location URI.
//
// Supported schemes:
//   - memory://name
//   - file:///path
//   - vault://[token@]host:port/mount/path?tls=false
func (f *Factory) KeyDirectoryFor(uri string) (interfaces.KeyDirectory, error) {
	loc, err := interfaces.NewStorageLocation(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case "memory":
		return f.memoryStore(loc), nil
	case "file":
		return f.createFileStore(loc)
	case "vault":
		return f.createVaultDirectory(loc)
	default:
		return nil, fmt.Errorf("%w: scheme %q cannot hold identities", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// ArchiveFor creates a ledger archive from a location URI.
// URI format: ipfs://host:port/?timeout=30s
func (f *Factory) ArchiveFor(uri string) (interfaces.LedgerArchive, error) {
	loc, err := interfaces.NewStorageLocation(uri)
	if err != nil {
		return nil, err
	}
	if loc.Scheme != "ipfs" {
		return nil, fmt.Errorf("%w: scheme %q cannot archive entries", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}

	f.log.Debug("Creating IPFS archive", slog.String("uri", loc.String()))

	host, port := splitHostPort(loc.Host, "5001")
	timeout := 30 * time.Second
	if raw := loc.GetParam("timeout"); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
	}
	return NewIPFSArchive(host, port, timeout, f.log), nil
}

// MultiLedgerStore creates a multi-store from a list of URIs. The first URI
// that yields a store becomes the primary.
// Returns an error if no valid stores could be created from the provided URIs.
func (f *Factory) MultiLedgerStore(uris []string) (interfaces.LedgerStore, error) {
	if len(uris) == 1 {
		return f.LedgerStoreFor(uris[0])
	}

	stores := make([]interfaces.LedgerStore, 0, len(uris))
	for _, uri := range uris {
		store, err := f.LedgerStoreFor(uri)
		if err != nil {
			f.log.Warn("Failed to create ledger store",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid ledger stores created")
	}

	return NewMultiLedgerStore(stores, f.log), nil
}

func (f *Factory) memoryStore(loc interfaces.StorageLocation) *MemoryStore {
	name := loc.Host + strings.TrimSuffix(loc.Path, "/")
	if name == "" {
		name = "default"
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if store, ok := f.memory[name]; ok {
		return store
	}
	store := NewMemoryStore(name)
	f.memory[name] = store
	return store
}

// createFileStore handles file:///absolute/path and file://./relative/path.
func (f *Factory) createFileStore(loc interfaces.StorageLocation) (*FileStore, error) {
	f.log.Debug("Creating file store", slog.String("uri", loc.String()))

	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, loc.String())
	}

	return NewFileStore(path, f.log)
}

func (f *Factory) createS3Store(loc interfaces.StorageLocation) (*S3LedgerStore, error) {
	f.log.Debug("Creating S3 store", slog.String("uri", loc.String()))

	bucketName := loc.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket in %s", interfaces.ErrInvalidLocationURI, loc.String())
	}
	prefix := strings.TrimPrefix(loc.Path, "/")

	region := loc.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if loc.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(loc.Auth, ":")
		f.log.Debug("Using embedded credentials for S3")
	}

	return NewS3LedgerStore(bucketName, prefix, region, loc.GetParam("endpoint"), accessKey, secretKey, f.log)
}

// createVaultDirectory handles vault://[token@]host:port/mount/path.
// Without an embedded token, VAULT_TOKEN is used.
func (f *Factory) createVaultDirectory(loc interfaces.StorageLocation) (*VaultKeyDirectory, error) {
	f.log.Debug("Creating Vault key directory", slog.String("host", loc.Host))

	parts := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: expected vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if v := loc.GetParam("tls"); v == "false" || v == "0" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, loc.Host)

	token := loc.Auth
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}

	return NewVaultKeyDirectory(address, parts[0], parts[1], token, f.log)
}

func splitHostPort(hostport, defaultPort string) (string, string) {
	host, port, found := strings.Cut(hostport, ":")
	if !found || port == "" {
		port = defaultPort
	}
	return host, port
}
