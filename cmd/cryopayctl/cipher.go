package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var encryptCommand = &cli.Command{
	Name:      "encrypt",
	Usage:     "Seal a file with AES-256-GCM under a password-derived key",
	ArgsUsage: "[file|-]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "salt", Usage: "hex salt; a random 16-byte salt is used when empty"},
	},
	Action: func(cCtx *cli.Context) error {
		pw, err := password(cCtx)
		if err != nil {
			return err
		}
		plaintext, err := readInput(cCtx, 0)
		if err != nil {
			return err
		}

		var salt []byte
		if s := cCtx.String("salt"); s != "" {
			if salt, err = cryptoutils.DecodeHex(s); err != nil {
				return fmt.Errorf("invalid salt: %w", err)
			}
		}

		blob, err := cryptoutils.EncryptBytes(plaintext, pw, salt)
		if err != nil {
			return err
		}
		return printJSON(blob)
	},
}

var decryptCommand = &cli.Command{
	Name:      "decrypt",
	Usage:     "Open a sealed blob",
	ArgsUsage: "[blob.json|-]",
	Action: func(cCtx *cli.Context) error {
		pw, err := password(cCtx)
		if err != nil {
			return err
		}
		data, err := readInput(cCtx, 0)
		if err != nil {
			return err
		}

		var blob interfaces.EncryptedBlob
		if err := json.Unmarshal(data, &blob); err != nil {
			return fmt.Errorf("failed to parse blob: %w", err)
		}
		plaintext, err := cryptoutils.DecryptRaw(blob, pw)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(plaintext)
		return err
	},
}

var signCommand = &cli.Command{
	Name:      "sign",
	Usage:     "Sign a challenge with a private key (JWK JSON or PEM)",
	ArgsUsage: "<challenge>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "key", Required: true, Usage: "private key file"},
	},
	Action: func(cCtx *cli.Context) error {
		challenge := cCtx.Args().First()
		if challenge == "" {
			return cli.Exit("a challenge is required", 2)
		}
		data, err := os.ReadFile(cCtx.String("key"))
		if err != nil {
			return err
		}
		kp, err := readKeyPair(data)
		if err != nil {
			return err
		}
		sig, err := kp.Sign(challenge)
		if err != nil {
			return err
		}
		fmt.Println(sig)
		return nil
	},
}

var verifyCommand = &cli.Command{
	Name:      "verify",
	Usage:     "Verify a challenge signature against a public key (JWK JSON or PEM)",
	ArgsUsage: "<challenge> <signature>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "pub", Required: true, Usage: "public key file"},
	},
	Action: func(cCtx *cli.Context) error {
		challenge, sig := cCtx.Args().Get(0), cCtx.Args().Get(1)
		if challenge == "" || sig == "" {
			return cli.Exit("a challenge and a signature are required", 2)
		}
		data, err := os.ReadFile(cCtx.String("pub"))
		if err != nil {
			return err
		}
		rec, err := readPublicKey(data)
		if err != nil {
			return err
		}

		ok, err := cryptoutils.VerifyChallenge(rec, challenge, sig)
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit(color.RedString("✗")+" invalid signature", 1)
		}
		success("Signature valid")
		return nil
	},
}

var challengeCommand = &cli.Command{
	Name:  "challenge",
	Usage: "Print a fresh challenge; with --verifier and --user, ask the verifier for one",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "identity id for a verifier-issued challenge"},
	},
	Action: func(cCtx *cli.Context) error {
		base, user := cCtx.String(flagVerifier.Name), cCtx.String("user")
		if base == "" || user == "" {
			fmt.Println(cryptoutils.NewChallenge())
			return nil
		}

		ch, err := newVerifierClient(base).Issue(cCtx.Context, user)
		if err != nil {
			return err
		}
		return printJSON(ch)
	},
}
