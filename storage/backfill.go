package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
)

// BackfillResult counts what BackfillThumbprints did.
type BackfillResult struct {
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Unchanged int `json:"unchanged"`
}

// BackfillThumbprints computes the thumbprint of every identity that has a
// public key but no stored thumbprint. Records whose key lacks crv, kty, x
// or y are skipped and logged. An update failure for one record does not
// stop the run; the first such error is returned at the end.
func BackfillThumbprints(ctx context.Context, dir interfaces.KeyDirectory, log *slog.Logger) (BackfillResult, error) {
	var result BackfillResult

	recs, err := dir.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list identities: %w", err)
	}

	log.Info("Backfilling thumbprints", slog.Int("identities", len(recs)))

	var firstErr error
	for _, rec := range recs {
		if rec.Thumbprint != "" {
			result.Unchanged++
			continue
		}

		tp, err := cryptoutils.Thumbprint(rec.PublicKey)
		if err != nil {
			log.Warn("Skipping identity: public key missing expected fields",
				slog.String("identity_id", rec.IdentityID))
			result.Skipped++
			continue
		}

		rec.Thumbprint = tp
		if err := dir.Register(ctx, rec); err != nil {
			log.Error("Failed to update identity",
				slog.String("identity_id", rec.IdentityID),
				"err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to update %s: %w", rec.IdentityID, err)
			}
			continue
		}

		log.Info("Updated identity with thumbprint",
			slog.String("identity_id", rec.IdentityID),
			slog.String("thumbprint", string(tp)))
		result.Updated++
	}

	return result, firstErr
}
