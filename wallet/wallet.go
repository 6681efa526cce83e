package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/D4ZA1/Cryopay/cryptoutils"
	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/D4ZA1/Cryopay/ledger"
	"github.com/D4ZA1/Cryopay/metrics"
	"github.com/D4ZA1/Cryopay/session"
)

var (
	// ErrLocked is returned by operations that need the session password while none is held.
	ErrLocked = errors.New("wallet is locked")

	// ErrInvalidAmount is returned for non-positive or non-finite amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNoPrivateKey is returned when the identity record carries no encrypted private key.
	ErrNoPrivateKey = errors.New("identity has no encrypted private key")
)

// TimestampLayout is the millisecond UTC format payload timestamps use.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Trade describes a buy or sell.
type Trade struct {
	Crypto       string
	FiatCurrency string
	FiatSymbol   string
	AmountFiat   float64
	AmountCrypto float64
}

// Transfer describes a send to another party. When ToUserID is set and
// ToThumbprint is empty, the recipient's thumbprint is looked up.
type Transfer struct {
	To           string
	ToUserID     string
	ToThumbprint interfaces.Thumbprint
	Crypto       string
	AmountFiat   float64
	AmountCrypto float64
}

// Wallet acts for one identity.
type Wallet struct {
	identityID string
	keys       interfaces.KeyDirectory
	store      interfaces.LedgerStore
	appender   *ledger.Appender
	session    *session.KeyHolder
	log        *slog.Logger
	now        func() time.Time
}

// New creates a locked wallet for identityID.
func New(identityID string, keys interfaces.KeyDirectory, store interfaces.LedgerStore, log *slog.Logger, opts ledger.AppenderOpts) *Wallet {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("identity_id", identityID))
	return &Wallet{
		identityID: identityID,
		keys:       keys,
		store:      store,
		appender:   ledger.NewAppender(store, log, opts),
		session:    session.New(),
		log:        log,
		now:        time.Now,
	}
}

// CreateWallet generates a keypair for identityID, seals the private key under
// password and registers the unverified identity.
func CreateWallet(ctx context.Context, keys interfaces.KeyDirectory, identityID, password string) (interfaces.IdentityRecord, *cryptoutils.KeyPair, error) {
	kp, err := cryptoutils.GenerateKeyPair()
	metrics.RecordCrypto("generate_key", err)
	if err != nil {
		return interfaces.IdentityRecord{}, nil, err
	}

	blob, err := cryptoutils.EncryptPrivateRecord(kp.PrivateRecord(), password)
	metrics.RecordCrypto("encrypt", err)
	if err != nil {
		return interfaces.IdentityRecord{}, nil, fmt.Errorf("failed to seal private key: %w", err)
	}

	rec := interfaces.IdentityRecord{
		IdentityID:          identityID,
		PublicKey:           kp.PublicRecord(),
		Thumbprint:          kp.Thumbprint(),
		EncryptedPrivateKey: &blob,
		CreatedAt:           time.Now().UTC(),
	}
	if err := keys.Register(ctx, rec); err != nil {
		return interfaces.IdentityRecord{}, nil, fmt.Errorf("failed to register identity: %w", err)
	}
	return rec, kp, nil
}

func (w *Wallet) IdentityID() string {
	return w.identityID
}

// Unlock checks password against the sealed private key, when there is one,
// and holds it for the session.
func (w *Wallet) Unlock(ctx context.Context, password string) error {
	rec, err := w.keys.ByIdentity(ctx, w.identityID)
	if err != nil && !errors.Is(err, interfaces.ErrIdentityNotFound) {
		return err
	}
	if err == nil && rec.EncryptedPrivateKey != nil {
		_, err := cryptoutils.DecryptPrivateRecord(*rec.EncryptedPrivateKey, password)
		metrics.RecordCrypto("decrypt", err)
		if err != nil {
			return err
		}
	}

	w.session.Set(password)
	w.log.Debug("Wallet unlocked")
	return nil
}

// Lock forgets the held password.
func (w *Wallet) Lock() {
	w.session.Clear()
	w.log.Debug("Wallet locked")
}

func (w *Wallet) Unlocked() bool {
	return w.session.Unlocked()
}

func (w *Wallet) Buy(ctx context.Context, t Trade) (interfaces.LedgerEntry, error) {
	return w.trade(ctx, interfaces.KindBuy, t)
}

func (w *Wallet) Sell(ctx context.Context, t Trade) (interfaces.LedgerEntry, error) {
	return w.trade(ctx, interfaces.KindSell, t)
}

func (w *Wallet) trade(ctx context.Context, kind interfaces.TransactionKind, t Trade) (interfaces.LedgerEntry, error) {
	if !validAmounts(t.AmountFiat, t.AmountCrypto) {
		return interfaces.LedgerEntry{}, ErrInvalidAmount
	}
	return w.seal(ctx, interfaces.Payload{
		Kind:         kind,
		Crypto:       t.Crypto,
		FiatCurrency: t.FiatCurrency,
		FiatSymbol:   t.FiatSymbol,
		AmountFiat:   t.AmountFiat,
		AmountCrypto: t.AmountCrypto,
	})
}

// Transfer records a send. Sender and recipient thumbprints are attached when
// they can be resolved so either side can later tell sent from received.
func (w *Wallet) Transfer(ctx context.Context, t Transfer) (interfaces.LedgerEntry, error) {
	if !validAmounts(t.AmountFiat, t.AmountCrypto) {
		return interfaces.LedgerEntry{}, ErrInvalidAmount
	}

	payload := interfaces.Payload{
		Kind:         interfaces.KindTransfer,
		Crypto:       t.Crypto,
		AmountFiat:   t.AmountFiat,
		AmountCrypto: t.AmountCrypto,
		To:           t.To,
		ToUserID:     t.ToUserID,
		ToThumbprint: t.ToThumbprint,
		From:         w.identityID,
	}

	if rec, err := w.keys.ByIdentity(ctx, w.identityID); err == nil {
		payload.FromThumbprint = rec.Thumbprint
	}
	if payload.ToThumbprint == "" && t.ToUserID != "" {
		if rec, err := w.keys.ByIdentity(ctx, t.ToUserID); err == nil {
			payload.ToThumbprint = rec.Thumbprint
		} else {
			w.log.Debug("Recipient thumbprint not resolved",
				slog.String("to_user_id", t.ToUserID),
				"err", err)
		}
	}

	return w.seal(ctx, payload)
}

func (w *Wallet) seal(ctx context.Context, payload interfaces.Payload) (interfaces.LedgerEntry, error) {
	payload.Timestamp = w.now().UTC().Format(TimestampLayout)
	payload.UserID = w.identityID

	var entry interfaces.LedgerEntry
	held, err := w.session.With(func(password string) error {
		var err error
		entry, err = w.appender.Append(ctx, payload, password)
		return err
	})
	if !held {
		return interfaces.LedgerEntry{}, ErrLocked
	}
	if err != nil {
		return interfaces.LedgerEntry{}, err
	}

	w.log.Info("Recorded transaction",
		slog.String("kind", string(payload.Kind)),
		slog.String("hash", entry.Hash.String()))
	return entry, nil
}

// OpenEntry decrypts an entry with the held password.
func (w *Wallet) OpenEntry(entry interfaces.LedgerEntry) (interfaces.Payload, error) {
	var payload interfaces.Payload
	held, err := w.session.With(func(password string) error {
		var err error
		payload, err = ledger.OpenPayload(entry, password)
		return err
	})
	if !held {
		return interfaces.Payload{}, ErrLocked
	}
	metrics.RecordCrypto("decrypt", err)
	return payload, err
}

// ProveOwnership unseals the private key with password, signs challenge and
// submits the proof. The password is asked for explicitly rather than taken
// from the session.
func (w *Wallet) ProveOwnership(ctx context.Context, verifier interfaces.OwnershipVerifier, challenge, password string) (bool, error) {
	rec, err := w.keys.ByIdentity(ctx, w.identityID)
	if err != nil {
		return false, err
	}
	if rec.EncryptedPrivateKey == nil {
		return false, ErrNoPrivateKey
	}

	kp, err := cryptoutils.DecryptPrivateRecord(*rec.EncryptedPrivateKey, password)
	metrics.RecordCrypto("decrypt", err)
	if err != nil {
		return false, err
	}

	sig, err := kp.Sign(challenge)
	metrics.RecordCrypto("sign", err)
	if err != nil {
		return false, err
	}

	return verifier.VerifyOwnership(ctx, interfaces.OwnershipProof{
		IdentityID: w.identityID,
		PublicKey:  kp.PublicRecord(),
		Challenge:  challenge,
		Signature:  sig,
	})
}

// History classifies every ledger entry from this identity's point of view.
func (w *Wallet) History(ctx context.Context) ([]Movement, error) {
	entries, err := w.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	viewer := Viewer{IdentityID: w.identityID, Resolve: w.resolveThumbprint(ctx)}
	if rec, err := w.keys.ByIdentity(ctx, w.identityID); err == nil {
		viewer.Thumbprint = rec.Thumbprint
	}

	out := make([]Movement, 0, len(entries))
	for _, e := range entries {
		out = append(out, Classify(e, viewer))
	}
	return out, nil
}

// Balance sums the signed fiat amounts of every relevant ledger entry.
func (w *Wallet) Balance(ctx context.Context) (float64, error) {
	history, err := w.History(ctx)
	if err != nil {
		return 0, err
	}
	return Sum(history), nil
}

func (w *Wallet) resolveThumbprint(ctx context.Context) func(interfaces.Thumbprint) string {
	cache := map[interfaces.Thumbprint]string{}
	return func(tp interfaces.Thumbprint) string {
		if id, ok := cache[tp]; ok {
			return id
		}
		id := ""
		if rec, err := w.keys.ByThumbprint(ctx, tp); err == nil {
			id = rec.IdentityID
		}
		cache[tp] = id
		return id
	}
}
