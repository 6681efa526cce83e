package main

import (
	"fmt"
	"os"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/storage"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var keysCommand = &cli.Command{
	Name:  "keys",
	Usage: "Generate and inspect P-256 identity keys",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "Generate a keypair; with --password the private key is printed sealed",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pem-out", Usage: "also write the private key as PEM to this file"},
			},
			Action: keysGenerate,
		},
		{
			Name:      "thumbprint",
			Usage:     "Print the thumbprint of a public key (JWK JSON or PEM)",
			ArgsUsage: "[file|-]",
			Action:    keysThumbprint,
		},
		{
			Name:      "export-pem",
			Usage:     "Convert a JWK public key to PKIX PEM",
			ArgsUsage: "[file|-]",
			Action:    keysExportPEM,
		},
		{
			Name:   "backfill",
			Usage:  "Compute missing thumbprints in the key directory",
			Action: keysBackfill,
		},
	},
}

type generatedKey struct {
	PublicKey           interfaces.PublicKeyRecord   `json:"public_key"`
	Thumbprint          interfaces.Thumbprint        `json:"thumbprint"`
	PrivateKey          *interfaces.PrivateKeyRecord `json:"private_key,omitempty"`
	EncryptedPrivateKey *interfaces.EncryptedBlob    `json:"encrypted_private_key,omitempty"`
}

func keysGenerate(cCtx *cli.Context) error {
	kp, err := cryptoutils.GenerateKeyPair()
	if err != nil {
		return err
	}

	out := generatedKey{PublicKey: kp.PublicRecord(), Thumbprint: kp.Thumbprint()}
	if pw := cCtx.String(flagPassword.Name); pw != "" {
		blob, err := cryptoutils.EncryptPrivateRecord(kp.PrivateRecord(), pw)
		if err != nil {
			return err
		}
		out.EncryptedPrivateKey = &blob
	} else {
		warn("No password given, printing the private key in the clear")
		priv := kp.PrivateRecord()
		out.PrivateKey = &priv
	}

	if path := cCtx.String("pem-out"); path != "" {
		pemData, err := kp.PEM()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, pemData, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		success("Private key written to %s", color.YellowString(path))
	}
	return printJSON(out)
}

func keysThumbprint(cCtx *cli.Context) error {
	data, err := readInput(cCtx, 0)
	if err != nil {
		return err
	}
	rec, err := readPublicKey(data)
	if err != nil {
		return err
	}
	tp, err := cryptoutils.Thumbprint(rec)
	if err != nil {
		return err
	}
	fmt.Println(tp)
	return nil
}

func keysExportPEM(cCtx *cli.Context) error {
	data, err := readInput(cCtx, 0)
	if err != nil {
		return err
	}
	rec, err := readPublicKey(data)
	if err != nil {
		return err
	}
	pemData, err := cryptoutils.PublicRecordToPEM(rec)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(pemData)
	return err
}

func keysBackfill(cCtx *cli.Context) error {
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	dir, err := e.keyDirectory()
	if err != nil {
		return err
	}

	res, err := storage.BackfillThumbprints(cCtx.Context, dir, e.log)
	if err != nil {
		return err
	}
	success("Backfilled %d thumbprints (%d skipped, %d unchanged)", res.Updated, res.Skipped, res.Unchanged)
	return nil
}
