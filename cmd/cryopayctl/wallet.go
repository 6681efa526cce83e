package main

import (
	"fmt"

	"github.com/D4ZA1/Cryopay/api/clients"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/verifier"
	"github.com/D4ZA1/Cryopay/wallet"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var tradeFlags = []cli.Flag{
	flagUser,
	&cli.StringFlag{Name: "crypto", Value: "BTC"},
	&cli.Float64Flag{Name: "amount-fiat", Required: true},
	&cli.Float64Flag{Name: "amount-crypto", Required: true},
	&cli.StringFlag{Name: "fiat-currency", Value: "USD"},
	&cli.StringFlag{Name: "fiat-symbol", Value: "$"},
}

var walletCommand = &cli.Command{
	Name:  "wallet",
	Usage: "Create wallets, record transactions and prove key ownership",
	Subcommands: []*cli.Command{
		{
			Name:   "create",
			Usage:  "Generate a keypair, seal it under --password and register the identity",
			Flags:  []cli.Flag{flagUser},
			Action: walletCreate,
		},
		{
			Name:   "buy",
			Usage:  "Record a buy",
			Flags:  tradeFlags,
			Action: walletTrade(interfaces.KindBuy),
		},
		{
			Name:   "sell",
			Usage:  "Record a sell",
			Flags:  tradeFlags,
			Action: walletTrade(interfaces.KindSell),
		},
		{
			Name:  "transfer",
			Usage: "Record a transfer to another identity or address",
			Flags: []cli.Flag{
				flagUser,
				&cli.StringFlag{Name: "to", Usage: "free-form recipient address"},
				&cli.StringFlag{Name: "to-user", Usage: "recipient identity id"},
				&cli.StringFlag{Name: "crypto", Value: "BTC"},
				&cli.Float64Flag{Name: "amount-fiat", Required: true},
				&cli.Float64Flag{Name: "amount-crypto", Required: true},
			},
			Action: walletTransfer,
		},
		{
			Name:   "history",
			Usage:  "List ledger movements as seen by an identity",
			Flags:  []cli.Flag{flagUser},
			Action: walletHistory,
		},
		{
			Name:   "prove",
			Usage:  "Prove ownership of the identity key with a signed challenge",
			Flags:  []cli.Flag{flagUser},
			Action: walletProve,
		},
	},
}

func newVerifierClient(base string) *clients.VerifierClient {
	return clients.NewVerifierClient(base)
}

func openWallet(cCtx *cli.Context, e *env) (*wallet.Wallet, error) {
	keys, err := e.keyDirectory()
	if err != nil {
		return nil, err
	}
	store, err := e.ledgerStore()
	if err != nil {
		return nil, err
	}
	opts, err := e.appenderOpts()
	if err != nil {
		return nil, err
	}
	return wallet.New(cCtx.String(flagUser.Name), keys, store, e.log, opts), nil
}

func unlockedWallet(cCtx *cli.Context) (*wallet.Wallet, error) {
	pw, err := password(cCtx)
	if err != nil {
		return nil, err
	}
	e, err := newEnv(cCtx)
	if err != nil {
		return nil, err
	}
	w, err := openWallet(cCtx, e)
	if err != nil {
		return nil, err
	}
	if err := w.Unlock(cCtx.Context, pw); err != nil {
		return nil, err
	}
	return w, nil
}

func walletCreate(cCtx *cli.Context) error {
	pw, err := password(cCtx)
	if err != nil {
		return err
	}
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	keys, err := e.keyDirectory()
	if err != nil {
		return err
	}

	user := cCtx.String(flagUser.Name)
	rec, _, err := wallet.CreateWallet(cCtx.Context, keys, user, pw)
	if err != nil {
		return err
	}

	if base := cCtx.String(flagVerifier.Name); base != "" {
		if _, err := newVerifierClient(base).RegisterIdentity(cCtx.Context, user, rec.PublicKey, rec.EncryptedPrivateKey); err != nil {
			return fmt.Errorf("failed to register with verifier: %w", err)
		}
		success("Registered %s with %s", color.GreenString(user), base)
	}

	success("Created wallet %s with thumbprint %s", color.GreenString(user), color.YellowString(string(rec.Thumbprint)))
	return nil
}

func walletTrade(kind interfaces.TransactionKind) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		w, err := unlockedWallet(cCtx)
		if err != nil {
			return err
		}
		defer w.Lock()

		t := wallet.Trade{
			Crypto:       cCtx.String("crypto"),
			FiatCurrency: cCtx.String("fiat-currency"),
			FiatSymbol:   cCtx.String("fiat-symbol"),
			AmountFiat:   cCtx.Float64("amount-fiat"),
			AmountCrypto: cCtx.Float64("amount-crypto"),
		}

		var entry interfaces.LedgerEntry
		if kind == interfaces.KindSell {
			entry, err = w.Sell(cCtx.Context, t)
		} else {
			entry, err = w.Buy(cCtx.Context, t)
		}
		if err != nil {
			return err
		}
		success("Recorded %s %s", kind, color.YellowString(entry.Hash.String()))
		return nil
	}
}

func walletTransfer(cCtx *cli.Context) error {
	w, err := unlockedWallet(cCtx)
	if err != nil {
		return err
	}
	defer w.Lock()

	if cCtx.String("to") == "" && cCtx.String("to-user") == "" {
		return cli.Exit("one of --to or --to-user is required", 2)
	}

	entry, err := w.Transfer(cCtx.Context, wallet.Transfer{
		To:           cCtx.String("to"),
		ToUserID:     cCtx.String("to-user"),
		Crypto:       cCtx.String("crypto"),
		AmountFiat:   cCtx.Float64("amount-fiat"),
		AmountCrypto: cCtx.Float64("amount-crypto"),
	})
	if err != nil {
		return err
	}
	success("Recorded transfer %s", color.YellowString(entry.Hash.String()))
	return nil
}

func walletHistory(cCtx *cli.Context) error {
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	w, err := openWallet(cCtx, e)
	if err != nil {
		return err
	}

	history, err := w.History(cCtx.Context)
	if err != nil {
		return err
	}
	for _, m := range history {
		if !m.Relevant {
			continue
		}
		amount := color.GreenString("%+.2f", m.AmountFiat)
		if m.AmountFiat < 0 {
			amount = color.RedString("%+.2f", m.AmountFiat)
		}
		fmt.Printf("  %-24s %-10s %-6s %12s  %s\n", m.Timestamp, m.Label, m.Crypto, amount, color.HiBlackString(m.Hash.String()[:12]))
	}
	fmt.Printf("%s %.2f\n", color.CyanString("Balance:"), wallet.Sum(history))
	return nil
}

// walletProve signs a verifier-issued challenge when --verifier is set, and
// otherwise runs the check in-process against the configured key directory.
func walletProve(cCtx *cli.Context) error {
	pw, err := password(cCtx)
	if err != nil {
		return err
	}
	e, err := newEnv(cCtx)
	if err != nil {
		return err
	}
	w, err := openWallet(cCtx, e)
	if err != nil {
		return err
	}
	user := cCtx.String(flagUser.Name)

	var (
		v  interfaces.OwnershipVerifier
		ch interfaces.Challenge
	)
	if base := cCtx.String(flagVerifier.Name); base != "" {
		client := newVerifierClient(base)
		if ch, err = client.Issue(cCtx.Context, user); err != nil {
			return err
		}
		v = client
	} else {
		keys, err := e.keyDirectory()
		if err != nil {
			return err
		}
		issuer := verifier.NewChallengeIssuer(verifier.DefaultChallengeTTL, e.log)
		if ch, err = issuer.Issue(cCtx.Context, user); err != nil {
			return err
		}
		v = verifier.NewService(keys, issuer, e.log)
	}

	ok, err := w.ProveOwnership(cCtx.Context, v, ch.Nonce, pw)
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit(color.RedString("✗")+" invalid signature", 1)
	}
	success("Ownership of %s verified", color.GreenString(user))
	return nil
}
