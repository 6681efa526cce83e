package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/D4ZA1/Cryopay/cmd/flags"
	"github.com/D4ZA1/Cryopay/httpserver"
	"github.com/D4ZA1/Cryopay/storage"
	"github.com/D4ZA1/Cryopay/verifier"
	"github.com/urfave/cli/v2"
)

var flagBackfill = &cli.BoolFlag{
	Name:  "backfill-thumbprints",
	Value: true,
	Usage: "compute missing thumbprints in the key directory on startup",
}

func main() {
	app := &cli.App{
		Name:  "verifierd",
		Usage: "Serve the CryoPay verifier API",
		Flags: append(flags.CommonFlags, flagBackfill),
		Action: func(cCtx *cli.Context) error {
			cfg, err := flags.LoadConfig(cCtx)
			if err != nil {
				return err
			}
			logger := flags.SetupLogger(cCtx, cfg.Log)

			factory := storage.NewFactory(logger)

			keys, err := factory.KeyDirectoryFor(cfg.Storage.KeysURI)
			if err != nil {
				logger.Error("Failed to open key directory", "uri", cfg.Storage.KeysURI, "err", err)
				return err
			}
			ledgerStore, err := factory.MultiLedgerStore(cfg.Storage.LedgerURIs)
			if err != nil {
				logger.Error("Failed to open ledger stores", "err", err)
				return err
			}
			logger.Info("Storage configured",
				"keys", keys.Name(),
				"ledger", ledgerStore.Name())

			if cCtx.Bool(flagBackfill.Name) {
				res, err := storage.BackfillThumbprints(cCtx.Context, keys, logger)
				if err != nil {
					logger.Warn("Thumbprint backfill failed", "err", err)
				} else if res.Updated > 0 {
					logger.Info("Backfilled thumbprints", "updated", res.Updated, "skipped", res.Skipped)
				}
			}

			challenges := verifier.NewChallengeIssuer(cfg.Verifier.ChallengeTTL, logger)
			serverCfg := flags.ConfigureServer(cfg, logger)

			handler := httpserver.NewHandler(httpserver.HandlerOpts{
				Keys:       keys,
				Ledger:     ledgerStore,
				Challenges: challenges,
				Limiter:    httpserver.NewRateLimiter(serverCfg.RateLimit, serverCfg.RateBurst, 10*time.Minute),
				Log:        logger,
			})

			server, err := httpserver.New(serverCfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go pruneChallenges(ctx, challenges, cfg.Verifier.ChallengeTTL)

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func pruneChallenges(ctx context.Context, challenges *verifier.ChallengeIssuer, ttl time.Duration) {
	if ttl <= 0 {
		ttl = verifier.DefaultChallengeTTL
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			challenges.Prune()
		}
	}
}
