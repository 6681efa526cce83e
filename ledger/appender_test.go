package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLedgerStore implements interfaces.LedgerStore for testing
type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Insert(ctx context.Context, entry interfaces.LedgerEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerStore) LatestHash(ctx context.Context) (*interfaces.Hash, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Hash), args.Error(1)
}

func (m *MockLedgerStore) Entries(ctx context.Context) ([]interfaces.LedgerEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.LedgerEntry), args.Error(1)
}

func (m *MockLedgerStore) Entry(ctx context.Context, hash interfaces.Hash) (interfaces.LedgerEntry, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(interfaces.LedgerEntry), args.Error(1)
}

func (m *MockLedgerStore) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockLedgerStore) Name() string {
	return "mock-ledger"
}

// MockArchive implements interfaces.LedgerArchive for testing
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, entry interfaces.LedgerEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockArchive) Retrieve(ctx context.Context, locator string) (interfaces.LedgerEntry, error) {
	args := m.Called(ctx, locator)
	return args.Get(0).(interfaces.LedgerEntry), args.Error(1)
}

func (m *MockArchive) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockArchive) Name() string {
	return "mock-archive"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppenderAppend(t *testing.T) {
	ctx := context.Background()
	tail := interfaces.ComputeHash([]byte("tail"))

	tests := []struct {
		name          string
		allowNewChain bool
		latest        *interfaces.Hash
		latestErr     error
		insertErr     error
		expectInsert  bool
		expectPrev    *interfaces.Hash
		expectErr     error
	}{
		{
			name:         "links after the current tail",
			latest:       &tail,
			expectInsert: true,
			expectPrev:   &tail,
		},
		{
			name:         "empty ledger starts a chain",
			latest:       nil,
			expectInsert: true,
		},
		{
			name:      "tail lookup failure is surfaced",
			latestErr: errors.New("connection reset"),
			expectErr: interfaces.ErrChainLookupFailed,
		},
		{
			name:          "tail lookup failure starts a new chain when allowed",
			allowNewChain: true,
			latestErr:     errors.New("connection reset"),
			expectInsert:  true,
		},
		{
			name:         "insert failure is surfaced",
			latest:       &tail,
			insertErr:    interfaces.ErrStoreUnavailable,
			expectInsert: true,
			expectErr:    interfaces.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockLedgerStore{}
			if tt.latest != nil {
				store.On("LatestHash", mock.Anything).Return(tt.latest, tt.latestErr)
			} else {
				store.On("LatestHash", mock.Anything).Return(nil, tt.latestErr)
			}
			if tt.expectInsert {
				store.On("Insert", mock.Anything, mock.AnythingOfType("interfaces.LedgerEntry")).Return(tt.insertErr)
			}

			appender := NewAppender(store, testLogger(), AppenderOpts{AllowNewChain: tt.allowNewChain})
			entry, err := appender.Append(ctx, buyPayload(10), testPassword)

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
			} else {
				require.NoError(t, err)
				if tt.expectPrev == nil {
					require.Nil(t, entry.PreviousHash)
				} else {
					require.Equal(t, *tt.expectPrev, *entry.PreviousHash)
					require.Equal(t, tt.expectPrev.String(), entry.EncryptedBlob.Salt)
				}
			}
			store.AssertExpectations(t)
			if !tt.expectInsert {
				store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAppenderArchives(t *testing.T) {
	ctx := context.Background()

	store := &MockLedgerStore{}
	store.On("LatestHash", mock.Anything).Return(nil, nil)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	archive := &MockArchive{}
	archive.On("Archive", mock.Anything, mock.Anything).Return("", errors.New("ipfs down")).Once()

	appender := NewAppender(store, testLogger(), AppenderOpts{Archive: archive})
	_, err := appender.Append(ctx, buyPayload(1), testPassword)
	require.NoError(t, err, "archive failures must not fail the append")
	archive.AssertExpectations(t)
}

func TestAppenderAppendValue(t *testing.T) {
	store := &MockLedgerStore{}
	store.On("LatestHash", mock.Anything).Return(nil, nil)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	appender := NewAppender(store, testLogger(), AppenderOpts{})
	entry, err := appender.AppendValue(context.Background(), map[string]int{"n": 1}, interfaces.PublicSummary{Kind: "note"}, "user-9", testPassword)
	require.NoError(t, err)
	require.Equal(t, "user-9", entry.UserID)
}

func TestVerifyStore(t *testing.T) {
	entries := buildChain(t, buyPayload(1), buyPayload(2))

	store := &MockLedgerStore{}
	store.On("Entries", mock.Anything).Return(entries, nil).Once()
	report, err := NewAppender(store, testLogger(), AppenderOpts{}).Verify(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK())

	failing := &MockLedgerStore{}
	failing.On("Entries", mock.Anything).Return(nil, errors.New("timeout"))
	_, err = VerifyStore(context.Background(), failing, testLogger())
	require.ErrorIs(t, err, interfaces.ErrChainLookupFailed)
}
