package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/D4ZA1/Cryopay/cmd/flags"
	"github.com/D4ZA1/Cryopay/common"
	"github.com/D4ZA1/Cryopay/config"
	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	"github.com/D4ZA1/Cryopay/storage"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

type env struct {
	cfg     config.Config
	log     *slog.Logger
	factory *storage.Factory
}

// newEnv resolves configuration for a command. Unlike the server, the CLI
// keeps state under ~/.cryopay unless a store is configured.
func newEnv(cCtx *cli.Context) (*env, error) {
	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		return nil, err
	}

	log := common.SetupLogger(&common.LoggingOpts{
		Debug:   cfg.Log.Debug,
		JSON:    cfg.Log.JSON,
		Service: "cryopayctl",
		Version: common.Version,
		Output:  os.Stderr,
	})

	def := config.Default()
	if slices.Equal(cfg.Storage.LedgerURIs, def.Storage.LedgerURIs) || cfg.Storage.KeysURI == def.Storage.KeysURI {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		local := "file://" + filepath.Join(home, ".cryopay")
		if slices.Equal(cfg.Storage.LedgerURIs, def.Storage.LedgerURIs) {
			cfg.Storage.LedgerURIs = []string{local}
		}
		if cfg.Storage.KeysURI == def.Storage.KeysURI {
			cfg.Storage.KeysURI = local
		}
	}

	return &env{cfg: cfg, log: log, factory: storage.NewFactory(log)}, nil
}

func (e *env) ledgerStore() (interfaces.LedgerStore, error) {
	return e.factory.MultiLedgerStore(e.cfg.Storage.LedgerURIs)
}

func (e *env) keyDirectory() (interfaces.KeyDirectory, error) {
	return e.factory.KeyDirectoryFor(e.cfg.Storage.KeysURI)
}

func (e *env) archive() (interfaces.LedgerArchive, error) {
	if e.cfg.Storage.ArchiveURI == "" {
		return nil, errors.New("no archive configured, set --archive")
	}
	return e.factory.ArchiveFor(e.cfg.Storage.ArchiveURI)
}

func (e *env) appenderOpts() (ledger.AppenderOpts, error) {
	opts := ledger.AppenderOpts{AllowNewChain: e.cfg.Storage.AllowNewChain}
	if e.cfg.Storage.ArchiveURI != "" {
		a, err := e.archive()
		if err != nil {
			return opts, err
		}
		opts.Archive = a
	}
	return opts, nil
}

func password(cCtx *cli.Context) (string, error) {
	pw := cCtx.String(flagPassword.Name)
	if pw == "" {
		return "", errors.New("a password is required, set --password or CRYOPAY_PASSWORD")
	}
	return pw, nil
}

// readInput reads a file argument, or stdin for "-" or no argument.
func readInput(cCtx *cli.Context, idx int) ([]byte, error) {
	path := cCtx.Args().Get(idx)
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// readPublicKey accepts a JWK public record as JSON or a PKIX PEM.
func readPublicKey(data []byte) (interfaces.PublicKeyRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		p, err := cryptoutils.NewPublicKeyPEM([]byte(trimmed))
		if err != nil {
			return interfaces.PublicKeyRecord{}, err
		}
		return p.Record()
	}

	var rec interfaces.PublicKeyRecord
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return interfaces.PublicKeyRecord{}, fmt.Errorf("failed to parse public key: %w", err)
	}
	if _, err := cryptoutils.ParsePublicRecord(rec); err != nil {
		return interfaces.PublicKeyRecord{}, err
	}
	return rec, nil
}

// readKeyPair accepts a private JWK as JSON or an EC PEM.
func readKeyPair(data []byte) (*cryptoutils.KeyPair, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		return cryptoutils.PrivateKeyPEM(trimmed).KeyPair()
	}

	var rec interfaces.PrivateKeyRecord
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return cryptoutils.ParsePrivateRecord(rec)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func success(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString("⚠")+" "+fmt.Sprintf(format, args...))
}
