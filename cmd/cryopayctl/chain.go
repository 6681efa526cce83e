package main

import (
	"fmt"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	"github.com/D4ZA1/Cryopay/wallet"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var chainCommand = &cli.Command{
	Name:  "chain",
	Usage: "Append to, verify and inspect the hash-chained ledger",
	Subcommands: []*cli.Command{
		{
			Name:  "append",
			Usage: "Seal a payload and append it after the current tail",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "kind", Value: string(interfaces.KindBuy), Usage: "buy, sell or tx"},
				&cli.StringFlag{Name: "crypto", Value: "BTC"},
				&cli.Float64Flag{Name: "amount-fiat", Required: true},
				&cli.Float64Flag{Name: "amount-crypto", Required: true},
				&cli.StringFlag{Name: "fiat-currency", Value: "USD"},
				&cli.StringFlag{Name: "user", Aliases: []string{"u"}},
				&cli.StringFlag{Name: "to"},
				&cli.StringFlag{Name: "to-user"},
			},
			Action: chainAppend,
		},
		{
			Name:   "verify",
			Usage:  "Walk the previous_hash links and report every defect",
			Action: chainVerify,
		},
		{
			Name:   "show",
			Usage:  "List entries; with --password the payloads are decrypted",
			Action: chainShow,
		},
		{
			Name:   "archive",
			Usage:  "Copy every entry to the configured archive",
			Action: chainArchive,
		},
		{
			Name:      "retrieve",
			Usage:     "Load an archived entry and check its hash",
			ArgsUsage: "<locator>",
			Action:    chainRetrieve,
		},
	},
}

func chainAppend(cCtx *cli.Context) error {
	pw, err := password(cCtx)
	if err != nil {
		return err
	}
	kind := interfaces.TransactionKind(cCtx.String("kind"))
	if !kind.Valid() {
		return cli.Exit(fmt.Sprintf("unknown kind %q", kind), 2)
	}

	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	store, err := e.ledgerStore()
	if err != nil {
		return err
	}
	opts, err := e.appenderOpts()
	if err != nil {
		return err
	}

	payload := interfaces.Payload{
		Kind:         kind,
		Crypto:       cCtx.String("crypto"),
		FiatCurrency: cCtx.String("fiat-currency"),
		AmountFiat:   cCtx.Float64("amount-fiat"),
		AmountCrypto: cCtx.Float64("amount-crypto"),
		To:           cCtx.String("to"),
		ToUserID:     cCtx.String("to-user"),
		Timestamp:    time.Now().UTC().Format(wallet.TimestampLayout),
		UserID:       cCtx.String("user"),
	}

	entry, err := ledger.NewAppender(store, e.log, opts).Append(cCtx.Context, payload, pw)
	if err != nil {
		return err
	}
	if entry.IsRoot() {
		warn("Started a new chain")
	}
	success("Appended %s", color.YellowString(entry.Hash.String()))
	return nil
}

func chainVerify(cCtx *cli.Context) error {
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	store, err := e.ledgerStore()
	if err != nil {
		return err
	}

	report, err := ledger.VerifyStore(cCtx.Context, store, e.log)
	if err != nil {
		return err
	}

	if report.OK() {
		tip := "none"
		if report.Tip != nil {
			tip = report.Tip.String()
		}
		success("%d entries, chain intact, tip %s", report.Entries, color.YellowString(tip))
		return nil
	}

	for _, issue := range report.Issues {
		fmt.Printf("  %s %s\n", color.RedString(string(issue.Kind)), issue.String())
	}
	return cli.Exit(fmt.Sprintf("%s %d issues in %d entries", color.RedString("✗"), len(report.Issues), report.Entries), 1)
}

type shownEntry struct {
	interfaces.LedgerEntry
	Payload *interfaces.Payload `json:"payload,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func chainShow(cCtx *cli.Context) error {
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	store, err := e.ledgerStore()
	if err != nil {
		return err
	}
	entries, err := store.Entries(cCtx.Context)
	if err != nil {
		return err
	}

	pw := cCtx.String(flagPassword.Name)
	out := make([]shownEntry, 0, len(entries))
	for _, entry := range entries {
		shown := shownEntry{LedgerEntry: entry}
		if pw != "" {
			if p, err := ledger.OpenPayload(entry, pw); err == nil {
				shown.Payload = &p
			} else {
				shown.Error = err.Error()
			}
		}
		out = append(out, shown)
	}
	return printJSON(out)
}

func chainArchive(cCtx *cli.Context) error {
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	store, err := e.ledgerStore()
	if err != nil {
		return err
	}
	archive, err := e.archive()
	if err != nil {
		return err
	}

	entries, err := store.Entries(cCtx.Context)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		locator, err := archive.Archive(cCtx.Context, entry)
		if err != nil {
			return fmt.Errorf("failed to archive %s: %w", entry.Hash, err)
		}
		fmt.Printf("%s %s\n", entry.Hash, color.CyanString(locator))
	}
	success("Archived %d entries to %s", len(entries), archive.Name())
	return nil
}

func chainRetrieve(cCtx *cli.Context) error {
	locator := cCtx.Args().First()
	if locator == "" {
		return cli.Exit("a locator is required", 2)
	}
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	archive, err := e.archive()
	if err != nil {
		return err
	}

	entry, err := archive.Retrieve(cCtx.Context, locator)
	if err != nil {
		return err
	}
	return printJSON(entry)
}
