package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/metrics"
)

// AppenderOpts tunes an Appender.
type AppenderOpts struct {
	// AllowNewChain starts a new chain (null previous hash) when the tail
	// lookup fails, instead of failing the append.
	AllowNewChain bool

	// Archive, when set, receives a copy of every inserted entry. Archive
	// failures are logged and do not fail the append.
	Archive interfaces.LedgerArchive
}

// Appender reads the ledger tail, builds the next entry and inserts it.
type Appender struct {
	store interfaces.LedgerStore
	opts  AppenderOpts
	log   *slog.Logger
}

func NewAppender(store interfaces.LedgerStore, log *slog.Logger, opts AppenderOpts) *Appender {
	if log == nil {
		log = slog.Default()
	}
	return &Appender{store: store, opts: opts, log: log}
}

// Append seals payload under password and inserts it after the current tail.
func (a *Appender) Append(ctx context.Context, payload interfaces.Payload, password string) (interfaces.LedgerEntry, error) {
	return a.append(ctx, func(prev *interfaces.Hash) (interfaces.LedgerEntry, error) {
		return AppendEntry(payload, password, prev)
	})
}

// AppendValue is Append for arbitrary values.
func (a *Appender) AppendValue(ctx context.Context, v any, summary interfaces.PublicSummary, userID, password string) (interfaces.LedgerEntry, error) {
	return a.append(ctx, func(prev *interfaces.Hash) (interfaces.LedgerEntry, error) {
		entry, err := AppendValue(v, summary, password, prev)
		entry.UserID = userID
		return entry, err
	})
}

func (a *Appender) append(ctx context.Context, build func(prev *interfaces.Hash) (interfaces.LedgerEntry, error)) (interfaces.LedgerEntry, error) {
	start := time.Now()

	prev, err := a.store.LatestHash(ctx)
	if err != nil {
		if !a.opts.AllowNewChain {
			metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return interfaces.LedgerEntry{}, fmt.Errorf("%w: %v", interfaces.ErrChainLookupFailed, err)
		}
		a.log.Warn("Ledger tail lookup failed, starting a new chain",
			slog.String("store", a.store.Name()),
			"err", err)
		prev = nil
	}
	if prev == nil {
		metrics.LedgerNewChainsTotal.Inc()
	}

	entry, err := build(prev)
	if err != nil {
		metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		metrics.RecordCrypto("ledger_seal", err)
		return interfaces.LedgerEntry{}, err
	}
	metrics.RecordCrypto("ledger_seal", nil)

	if err := a.store.Insert(ctx, entry); err != nil {
		metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return interfaces.LedgerEntry{}, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	metrics.LedgerAppendsTotal.WithLabelValues(metrics.ResultOK).Inc()

	a.log.Debug("Appended ledger entry",
		slog.String("hash", entry.Hash.String()),
		slog.Bool("root", entry.IsRoot()),
		slog.Duration("duration", time.Since(start)))

	if a.opts.Archive != nil {
		if locator, err := a.opts.Archive.Archive(ctx, entry); err != nil {
			a.log.Warn("Failed to archive ledger entry",
				slog.String("archive", a.opts.Archive.Name()),
				slog.String("hash", entry.Hash.String()),
				"err", err)
		} else {
			a.log.Debug("Archived ledger entry",
				slog.String("archive", a.opts.Archive.Name()),
				slog.String("locator", locator))
		}
	}

	return entry, nil
}

// Verify loads every entry from the store and walks the chain.
func (a *Appender) Verify(ctx context.Context) (Report, error) {
	return VerifyStore(ctx, a.store, a.log)
}

// VerifyStore loads every entry from store and walks the chain.
func VerifyStore(ctx context.Context, store interfaces.LedgerStore, log *slog.Logger) (Report, error) {
	entries, err := store.Entries(ctx)
	if err != nil {
		metrics.ChainVerificationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return Report{}, fmt.Errorf("%w: %v", interfaces.ErrChainLookupFailed, err)
	}

	report := VerifyChain(entries)
	for _, issue := range report.Issues {
		metrics.ChainIssuesTotal.WithLabelValues(string(issue.Kind)).Inc()
		if log != nil {
			log.Warn("Ledger chain issue",
				slog.String("kind", string(issue.Kind)),
				slog.String("hash", issue.Hash.String()),
				slog.String("detail", issue.Detail))
		}
	}
	if report.OK() {
		metrics.ChainVerificationsTotal.WithLabelValues(metrics.ResultOK).Inc()
	} else {
		metrics.ChainVerificationsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
	}
	return report, nil
}
