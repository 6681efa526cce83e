package main

import (
	"fmt"
	"os"

	"github.com/D4ZA1/Cryopay/cmd/flags"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var flagPassword = &cli.StringFlag{
	Name:    "password",
	Aliases: []string{"p"},
	EnvVars: []string{"CRYOPAY_PASSWORD"},
	Usage:   "password used to derive the encryption key",
}

var flagVerifier = &cli.StringFlag{
	Name:    "verifier",
	EnvVars: []string{"CRYOPAY_VERIFIER"},
	Usage:   "verifier base URL; when empty the configured key directory is used directly",
}

var flagUser = &cli.StringFlag{
	Name:     "user",
	Aliases:  []string{"u"},
	Required: true,
	Usage:    "identity id",
}

func main() {
	app := &cli.App{
		Name:  "cryopayctl",
		Usage: "Manage CryoPay keys, sealed blobs and the hash-chained ledger",
		Flags: append(append([]cli.Flag{flagPassword, flagVerifier}, flags.LogFlags...), flags.StorageFlags...),
		Commands: []*cli.Command{
			keysCommand,
			encryptCommand,
			decryptCommand,
			signCommand,
			verifyCommand,
			challengeCommand,
			chainCommand,
			walletCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗")+" "+err.Error())
		os.Exit(1)
	}
}
