// Package persistencetest holds the behaviour every IWalletPersistence backend must share.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
)

// Factory returns a fresh, empty backend. The suite closes it.
type Factory func(t *testing.T) persistence.IWalletPersistence

func NewAccountRecord(name string) *persistence.AccountRecord {
	return &persistence.AccountRecord{
		Name:      name,
		Address:   fmt.Sprintf("%064x", len(name)),
		PublicKey: fmt.Sprintf("%064x", len(name)+1),
		Seed:      fmt.Sprintf("%064x", len(name)+2),
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func NewTransactionRecord(hash string, submittedAt time.Time) *persistence.TransactionRecord {
	return &persistence.TransactionRecord{
		Hash:           hash,
		Sender:         fmt.Sprintf("%064x", 1),
		Recipient:      fmt.Sprintf("%064x", 2),
		Amount:         1000,
		SequenceNumber: 3,
		Status:         persistence.TransactionStatus_Submitted,
		SubmittedAt:    submittedAt.UTC(),
	}
}

// Run exercises the IWalletPersistence contract against backends built by newBackend
func Run(t *testing.T, newBackend Factory) {
	t.Run("Should save and load an account", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record := NewAccountRecord("alice")
		require.NoError(t, p.SaveAccount(record))

		loaded, err := p.LoadAccount("alice")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, record.Address, loaded.Address)
		assert.Equal(t, record.Seed, loaded.Seed)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Should return nil for unknown keys", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		account, err := p.LoadAccount("nobody")
		require.NoError(t, err)
		assert.Nil(t, account)

		txn, err := p.LoadTransaction("0xmissing")
		require.NoError(t, err)
		assert.Nil(t, txn)
	})

	t.Run("Should reject invalid records", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		assert.Error(t, p.SaveAccount(nil))
		assert.Error(t, p.SaveAccount(&persistence.AccountRecord{Name: "x"}))
		assert.Error(t, p.SaveTransaction(nil))
		assert.Error(t, p.SaveTransaction(&persistence.TransactionRecord{Hash: "0x1", Status: "unknown"}))
	})

	t.Run("Should list accounts sorted by name", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		for _, name := range []string{"carol", "alice", "bob"} {
			require.NoError(t, p.SaveAccount(NewAccountRecord(name)))
		}

		accounts, err := p.ListAccounts()
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, "alice", accounts[0].Name)
		assert.Equal(t, "bob", accounts[1].Name)
		assert.Equal(t, "carol", accounts[2].Name)
	})

	t.Run("Should delete accounts idempotently", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		require.NoError(t, p.SaveAccount(NewAccountRecord("alice")))
		require.NoError(t, p.DeleteAccount("alice"))
		require.NoError(t, p.DeleteAccount("alice"))

		loaded, err := p.LoadAccount("alice")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		accounts, err := p.ListAccounts()
		require.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("Should update a transaction in place", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		record := NewTransactionRecord("0xaa", time.Now())
		require.NoError(t, p.SaveTransaction(record))

		settledAt := time.Now().UTC()
		record.Status = persistence.TransactionStatus_Settled
		record.SettledAt = &settledAt
		require.NoError(t, p.SaveTransaction(record))

		loaded, err := p.LoadTransaction("0xaa")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, persistence.TransactionStatus_Settled, loaded.Status)
		require.NotNil(t, loaded.SettledAt)
		assert.True(t, settledAt.Equal(*loaded.SettledAt))

		all, err := p.ListTransactions()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Should list transactions by submission time", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		base := time.Unix(1700000000, 0)
		require.NoError(t, p.SaveTransaction(NewTransactionRecord("0x03", base.Add(2*time.Second))))
		require.NoError(t, p.SaveTransaction(NewTransactionRecord("0x01", base)))
		require.NoError(t, p.SaveTransaction(NewTransactionRecord("0x02", base.Add(time.Second))))

		txns, err := p.ListTransactions()
		require.NoError(t, err)
		require.Len(t, txns, 3)
		assert.Equal(t, "0x01", txns[0].Hash)
		assert.Equal(t, "0x02", txns[1].Hash)
		assert.Equal(t, "0x03", txns[2].Hash)
	})

	t.Run("Should handle concurrent writers", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, p.SaveAccount(NewAccountRecord(fmt.Sprintf("account-%02d", i))))
				assert.NoError(t, p.SaveTransaction(NewTransactionRecord(fmt.Sprintf("0x%02d", i), time.Now())))
			}(i)
		}
		wg.Wait()

		accounts, err := p.ListAccounts()
		require.NoError(t, err)
		assert.Len(t, accounts, 20)

		txns, err := p.ListTransactions()
		require.NoError(t, err)
		assert.Len(t, txns, 20)
	})

	t.Run("Should fail every operation after close", func(t *testing.T) {
		p := newBackend(t)

		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())

		assert.Error(t, p.HealthCheck())
		assert.Error(t, p.SaveAccount(NewAccountRecord("alice")))
		_, err := p.LoadAccount("alice")
		assert.Error(t, err)
		_, err = p.ListAccounts()
		assert.Error(t, err)
		assert.Error(t, p.DeleteAccount("alice"))
		assert.Error(t, p.SaveTransaction(NewTransactionRecord("0x1", time.Now())))
		_, err = p.LoadTransaction("0x1")
		assert.Error(t, err)
		_, err = p.ListTransactions()
		assert.Error(t, err)
	})
}
