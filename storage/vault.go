package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/hashicorp/vault/api"
)

// VaultKeyDirectory implements KeyDirectory on a HashiCorp Vault KV v2 mount.
// Identity records are stored as JSON under identities/<id>, and
// thumbprints/<thumbprint> points back to the identity.
type VaultKeyDirectory struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultKeyDirectory creates a Vault-backed key directory.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount (e.g. "secret")
//   - dataPath: path within the mount (e.g. "cryopay")
//   - token: Vault token; when empty the client falls back to VAULT_TOKEN
//   - log: structured logger
func NewVaultKeyDirectory(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultKeyDirectory, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultKeyDirectory{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

func (d *VaultKeyDirectory) dataKey(kind, name string) string {
	return fmt.Sprintf("%s/data/%s/%s/%s", d.mountPath, d.dataPath, kind, name)
}

func (d *VaultKeyDirectory) metadataKey(kind string) string {
	return fmt.Sprintf("%s/metadata/%s/%s", d.mountPath, d.dataPath, kind)
}

// readData returns the inner KV v2 data map, or nil when the path is empty.
func (d *VaultKeyDirectory) readData(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := d.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		d.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response at %s", path)
	}
	return data, nil
}

func (d *VaultKeyDirectory) writeData(ctx context.Context, path string, data map[string]interface{}) error {
	_, err := d.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{"data": data})
	if err != nil {
		d.log.Error("Failed to write to Vault", slog.String("path", path), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *VaultKeyDirectory) Register(ctx context.Context, rec interfaces.IdentityRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode identity record: %w", err)
	}

	if err := d.writeData(ctx, d.dataKey("identities", rec.IdentityID), map[string]interface{}{"record": string(raw)}); err != nil {
		return err
	}
	if rec.Thumbprint != "" {
		if err := d.writeData(ctx, d.dataKey("thumbprints", string(rec.Thumbprint)), map[string]interface{}{"identity_id": rec.IdentityID}); err != nil {
			return err
		}
	}

	d.log.Info("Registered identity in Vault",
		slog.String("identity_id", rec.IdentityID),
		slog.String("thumbprint", string(rec.Thumbprint)))
	return nil
}

func (d *VaultKeyDirectory) ByIdentity(ctx context.Context, identityID string) (interfaces.IdentityRecord, error) {
	data, err := d.readData(ctx, d.dataKey("identities", identityID))
	if err != nil {
		return interfaces.IdentityRecord{}, err
	}
	if data == nil {
		return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
	}

	raw, ok := data["record"].(string)
	if !ok {
		return interfaces.IdentityRecord{}, fmt.Errorf("record key not found in Vault data for %s", identityID)
	}
	var rec interfaces.IdentityRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return interfaces.IdentityRecord{}, fmt.Errorf("invalid identity record in Vault: %w", err)
	}
	return rec, nil
}

func (d *VaultKeyDirectory) ByThumbprint(ctx context.Context, thumbprint interfaces.Thumbprint) (interfaces.IdentityRecord, error) {
	data, err := d.readData(ctx, d.dataKey("thumbprints", string(thumbprint)))
	if err != nil {
		return interfaces.IdentityRecord{}, err
	}
	if data == nil {
		return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
	}

	id, ok := data["identity_id"].(string)
	if !ok {
		return interfaces.IdentityRecord{}, fmt.Errorf("identity_id key not found in Vault data for %s", thumbprint)
	}
	rec, err := d.ByIdentity(ctx, id)
	if err != nil {
		return interfaces.IdentityRecord{}, err
	}
	if rec.Thumbprint != thumbprint {
		// stale index entry left by a key rotation
		return interfaces.IdentityRecord{}, interfaces.ErrIdentityNotFound
	}
	return rec, nil
}

func (d *VaultKeyDirectory) MarkVerified(ctx context.Context, identityID string) error {
	rec, err := d.ByIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	rec.Verified = true

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode identity record: %w", err)
	}
	return d.writeData(ctx, d.dataKey("identities", identityID), map[string]interface{}{"record": string(raw)})
}

func (d *VaultKeyDirectory) List(ctx context.Context) ([]interfaces.IdentityRecord, error) {
	secret, err := d.client.Logical().ListWithContext(ctx, d.metadataKey("identities"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	keys, _ := secret.Data["keys"].([]interface{})
	out := make([]interfaces.IdentityRecord, 0, len(keys))
	for _, k := range keys {
		id, ok := k.(string)
		if !ok || strings.HasSuffix(id, "/") {
			continue
		}
		rec, err := d.ByIdentity(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortIdentities(out)
	return out, nil
}

// Available checks that Vault is initialized and unsealed.
func (d *VaultKeyDirectory) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := d.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		d.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		d.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (d *VaultKeyDirectory) Name() string {
	return fmt.Sprintf("vault-%s-%s", d.mountPath, d.dataPath)
}

// LocationURI returns the URI that identifies this directory.
func (d *VaultKeyDirectory) LocationURI() string {
	return d.locationURI
}
