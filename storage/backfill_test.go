package storage

import (
	"context"
	"testing"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/require"
)

func TestBackfillThumbprints(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryStore("backfill")

	done := makeIdentity(t, "done")
	missing := makeIdentity(t, "missing")
	want := missing.Thumbprint
	missing.Thumbprint = ""
	broken := makeIdentity(t, "broken")
	broken.Thumbprint = ""
	broken.PublicKey.Y = ""

	for _, rec := range []interfaces.IdentityRecord{done, missing, broken} {
		require.NoError(t, dir.Register(ctx, rec))
	}

	result, err := BackfillThumbprints(ctx, dir, testLogger())
	require.NoError(t, err)
	require.Equal(t, BackfillResult{Updated: 1, Skipped: 1, Unchanged: 1}, result)

	got, err := dir.ByThumbprint(ctx, want)
	require.NoError(t, err)
	require.Equal(t, "missing", got.IdentityID)

	tp, err := cryptoutils.Thumbprint(got.PublicKey)
	require.NoError(t, err)
	require.Equal(t, want, tp)

	got, err = dir.ByIdentity(ctx, "broken")
	require.NoError(t, err)
	require.Empty(t, got.Thumbprint)

	// A second run has nothing left to update.
	result, err = BackfillThumbprints(ctx, dir, testLogger())
	require.NoError(t, err)
	require.Equal(t, BackfillResult{Updated: 0, Skipped: 1, Unchanged: 2}, result)
}
