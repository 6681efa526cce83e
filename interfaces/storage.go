package interfaces

import (
	"context"
	"fmt"
	"net/url"
)

// StorageLocation represents URI for a store.
type StorageLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageLocation creates a new storage location from a URI string with validation.
func NewStorageLocation(uri string) (StorageLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "memory", "file", "s3", "ipfs", "vault":
	default:
		return StorageLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

// LedgerStore is the append-only entry table.
//
// Entries returns entries in insertion order; consumers must still follow
// previous_hash links rather than trust that order.
type LedgerStore interface {
	// Insert appends an entry. Returns ErrDuplicateEntry if the hash is already present.
	Insert(ctx context.Context, entry LedgerEntry) error

	// LatestHash returns the hash of the most recently inserted entry, or nil for an empty ledger.
	LatestHash(ctx context.Context) (*Hash, error)

	// Entries lists every stored entry.
	Entries(ctx context.Context) ([]LedgerEntry, error)

	// Entry fetches one entry by hash. Returns ErrEntryNotFound when absent.
	Entry(ctx context.Context, hash Hash) (LedgerEntry, error)

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string
}

// KeyDirectory is the registry of identity public keys.
type KeyDirectory interface {
	// Register creates or replaces an identity record.
	Register(ctx context.Context, rec IdentityRecord) error

	// ByIdentity returns the record for an identity. Returns ErrIdentityNotFound when absent.
	ByIdentity(ctx context.Context, identityID string) (IdentityRecord, error)

	// ByThumbprint resolves a thumbprint to its identity record.
	ByThumbprint(ctx context.Context, thumbprint Thumbprint) (IdentityRecord, error)

	// MarkVerified durably sets the verified flag of an identity.
	MarkVerified(ctx context.Context, identityID string) error

	// List returns every registered identity.
	List(ctx context.Context) ([]IdentityRecord, error)

	Available(ctx context.Context) bool
	Name() string
}

// LedgerArchive keeps content-addressed copies of ledger entries.
type LedgerArchive interface {
	// Archive stores an entry and returns the archive's locator for it.
	Archive(ctx context.Context, entry LedgerEntry) (string, error)

	// Retrieve loads an archived entry and checks its hash.
	Retrieve(ctx context.Context, locator string) (LedgerEntry, error)

	Available(ctx context.Context) bool
	Name() string
}
