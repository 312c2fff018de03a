package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/account"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/clients/faucetClient"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/clients/restClient"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/config"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/memory"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/testutil"
)

func newTestWallet(t *testing.T, nodeCfg *testutil.FakeNodeConfig, maxAttempts int) (*Wallet, *testutil.FakeNode) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	node := testutil.NewFakeNode(t, nodeCfg)

	rc, err := restClient.NewClient(&restClient.ClientConfig{
		NodeUrl: node.URL,
		Logger:  logger,
		Poll:    &config.PollConfig{Interval: time.Millisecond, MaxAttempts: maxAttempts},
	})
	require.NoError(t, err)

	fc, err := faucetClient.NewClient(&faucetClient.ClientConfig{
		FaucetUrl: node.URL,
		Logger:    logger,
		Waiter:    rc,
	})
	require.NoError(t, err)

	store := memory.NewMemoryPersistence()
	t.Cleanup(func() { _ = store.Close() })

	w, err := NewWallet(&Config{
		RestClient:   rc,
		FaucetClient: fc,
		Persistence:  store,
		Logger:       logger,
	})
	require.NoError(t, err)
	return w, node
}

func TestNewWallet(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := memory.NewMemoryPersistence()
	rc := &restClient.Client{}

	tests := []struct {
		name        string
		cfg         *Config
		expectedErr string
	}{
		{name: "nil config", expectedErr: "config cannot be nil"},
		{name: "missing rest client", cfg: &Config{Persistence: store, Logger: logger}, expectedErr: "rest client is required"},
		{name: "missing persistence", cfg: &Config{RestClient: rc, Logger: logger}, expectedErr: "persistence is required"},
		{name: "missing logger", cfg: &Config{RestClient: rc, Persistence: store}, expectedErr: "logger is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWallet(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
			assert.Nil(t, w)
		})
	}
}

func TestWallet_Accounts(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, nil, 10)

	t.Run("Should name unnamed accounts with a uuid", func(t *testing.T) {
		record, err := w.CreateAccount(ctx, "", nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(record.Name, "account-"))
		assert.Len(t, record.Address, 64)
	})

	t.Run("Should derive the same address from the same seed", func(t *testing.T) {
		seed := make([]byte, 32)
		seed[0] = 7
		expected, err := account.NewAccountFromSeed(seed)
		require.NoError(t, err)

		record, err := w.CreateAccount(ctx, "seeded", seed)
		require.NoError(t, err)
		assert.Equal(t, expected.Address(), record.Address)

		loaded, err := w.LoadAccount("seeded")
		require.NoError(t, err)
		assert.Equal(t, expected.PublicKey(), loaded.PublicKey())
	})

	t.Run("Should reject duplicate names", func(t *testing.T) {
		_, err := w.CreateAccount(ctx, "dup", nil)
		require.NoError(t, err)
		_, err = w.CreateAccount(ctx, "dup", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("Should reject bad seeds", func(t *testing.T) {
		_, err := w.CreateAccount(ctx, "short", []byte{1, 2, 3})
		var seedErr *account.InvalidSeedError
		require.ErrorAs(t, err, &seedErr)
		assert.Equal(t, 3, seedErr.Length)
	})

	t.Run("Should report unknown accounts", func(t *testing.T) {
		_, err := w.LoadAccount("ghost")
		assert.True(t, errors.Is(err, ErrAccountNotFound))

		_, err = w.Balance(ctx, "ghost")
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})

	t.Run("Should delete accounts", func(t *testing.T) {
		_, err := w.CreateAccount(ctx, "temporary", nil)
		require.NoError(t, err)

		require.NoError(t, w.DeleteAccount("temporary"))
		_, err = w.LoadAccount("temporary")
		assert.True(t, errors.Is(err, ErrAccountNotFound))

		err = w.DeleteAccount("temporary")
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})

	t.Run("Should list accounts by name", func(t *testing.T) {
		accounts, err := w.ListAccounts()
		require.NoError(t, err)
		for i := 1; i < len(accounts); i++ {
			assert.Less(t, accounts[i-1].Name, accounts[i].Name)
		}
	})
}

func TestWallet_TransferAndWait(t *testing.T) {
	ctx := context.Background()

	t.Run("Should journal a settled transfer", func(t *testing.T) {
		w, node := newTestWallet(t, &testutil.FakeNodeConfig{PendingPolls: 2}, 10)

		alice, err := w.CreateAccount(ctx, "alice", nil)
		require.NoError(t, err)
		_, err = w.Fund(ctx, "alice", 500)
		require.NoError(t, err)

		recipient, err := account.NewAccount()
		require.NoError(t, err)

		record, err := w.Transfer(ctx, "alice", "0x"+strings.ToUpper(recipient.Address()), 200)
		require.NoError(t, err)
		assert.Equal(t, persistence.TransactionStatus_Submitted, record.Status)
		assert.Equal(t, alice.Address, record.Sender)
		assert.Equal(t, recipient.Address(), record.Recipient)
		assert.Equal(t, uint64(0), record.SequenceNumber)

		settled, err := w.Wait(ctx, record.Hash)
		require.NoError(t, err)
		assert.Equal(t, persistence.TransactionStatus_Settled, settled.Status)
		require.NotNil(t, settled.SettledAt)

		history, err := w.History()
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, persistence.TransactionStatus_Settled, history[0].Status)

		balance, ok := node.Balance(recipient.Address())
		assert.True(t, ok)
		assert.Equal(t, uint64(200), balance)

		// a settled entry is answered from the journal
		polls := node.Polls(record.Hash)
		again, err := w.Wait(ctx, record.Hash)
		require.NoError(t, err)
		assert.Equal(t, persistence.TransactionStatus_Settled, again.Status)
		assert.Equal(t, settled.SettledAt.Unix(), again.SettledAt.Unix())
		assert.Equal(t, polls, node.Polls(record.Hash))
	})

	t.Run("Should journal a timeout", func(t *testing.T) {
		w, node := newTestWallet(t, &testutil.FakeNodeConfig{PendingPolls: 1000}, 3)

		alice, err := w.CreateAccount(ctx, "alice", nil)
		require.NoError(t, err)
		_, err = w.CreateAccount(ctx, "bob", nil)
		require.NoError(t, err)

		// the faucet path times out as well; the mint itself still lands
		_, err = w.Fund(ctx, "alice", 10)
		require.Error(t, err)
		assert.True(t, restClient.IsTimeout(err))
		balance, ok := node.Balance(alice.Address)
		require.True(t, ok)
		assert.Equal(t, uint64(10), balance)

		record, err := w.Transfer(ctx, "alice", "bob", 5)
		require.NoError(t, err)

		timedOut, err := w.Wait(ctx, record.Hash)
		require.Error(t, err)
		assert.True(t, restClient.IsTimeout(err))
		assert.Equal(t, persistence.TransactionStatus_TimedOut, timedOut.Status)
		assert.Nil(t, timedOut.SettledAt)

		stored, err := w.store.LoadTransaction(record.Hash)
		require.NoError(t, err)
		assert.Equal(t, persistence.TransactionStatus_TimedOut, stored.Status)

		// a timed out transaction may still commit, so waiting again polls the node
		polls := node.Polls(record.Hash)
		_, err = w.Wait(ctx, record.Hash)
		assert.True(t, restClient.IsTimeout(err))
		assert.Equal(t, polls+3, node.Polls(record.Hash))
	})

	t.Run("Should journal a failed execution", func(t *testing.T) {
		w, node := newTestWallet(t, nil, 10)

		alice, err := w.CreateAccount(ctx, "alice", nil)
		require.NoError(t, err)
		node.CreateAccount(alice.Address, 10)
		_, err = w.CreateAccount(ctx, "bob", nil)
		require.NoError(t, err)

		record, err := w.Transfer(ctx, "alice", "bob", 50)
		require.NoError(t, err)

		failed, err := w.Wait(ctx, record.Hash)
		require.Error(t, err)
		assert.Equal(t, persistence.TransactionStatus_Failed, failed.Status)
		assert.Contains(t, failed.Error, "EINSUFFICIENT_BALANCE")

		polls := node.Polls(record.Hash)
		again, err := w.Wait(ctx, record.Hash)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already failed")
		assert.Equal(t, persistence.TransactionStatus_Failed, again.Status)
		assert.Equal(t, polls, node.Polls(record.Hash))
	})

	t.Run("Should journal a missing success marker as failed", func(t *testing.T) {
		w, node := newTestWallet(t, nil, 10)
		node.OmitSuccess(true)

		alice, err := w.CreateAccount(ctx, "alice", nil)
		require.NoError(t, err)
		node.CreateAccount(alice.Address, 10)
		_, err = w.CreateAccount(ctx, "bob", nil)
		require.NoError(t, err)

		record, err := w.Transfer(ctx, "alice", "bob", 1)
		require.NoError(t, err)

		failed, err := w.Wait(ctx, record.Hash)
		var settlementErr *restClient.SettlementError
		require.ErrorAs(t, err, &settlementErr)
		assert.Equal(t, persistence.TransactionStatus_Failed, failed.Status)
	})

	t.Run("Should reject unknown recipients and hashes", func(t *testing.T) {
		w, node := newTestWallet(t, nil, 10)
		alice, err := w.CreateAccount(ctx, "alice", nil)
		require.NoError(t, err)
		node.CreateAccount(alice.Address, 10)

		_, err = w.Transfer(ctx, "alice", "not-an-address", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid address")

		_, err = w.Transfer(ctx, "alice", "0xabcd", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 32 bytes")

		_, err = w.Wait(ctx, "0xdeadbeef")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in the journal")
		assert.Zero(t, node.SubmitCount())
	})
}

func TestWallet_RunTransferDemo(t *testing.T) {
	ctx := context.Background()
	w, node := newTestWallet(t, &testutil.FakeNodeConfig{NotFoundPolls: 1, PendingPolls: 1}, 10)

	report, err := w.RunTransferDemo(ctx, DemoConfig{})
	require.NoError(t, err)

	assert.Equal(t, DemoBalances{Alice: 5000, Bob: 0}, report.Initial)
	assert.Equal(t, DemoBalances{Alice: 4000, Bob: 1000}, report.Final)
	assert.NotEmpty(t, report.TransactionHash)
	assert.NotEqual(t, report.AliceAddress, report.BobAddress)
	assert.Equal(t, uint64(1), node.SequenceNumber(report.AliceAddress))

	record, err := w.store.LoadTransaction(report.TransactionHash)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, persistence.TransactionStatus_Settled, record.Status)
	assert.Equal(t, uint64(1000), record.Amount)
	assert.Equal(t, report.BobAddress, record.Recipient)
}
