package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/persistencetest"
)

func TestMemoryPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.IWalletPersistence {
		return NewMemoryPersistence()
	})
}

func TestMemoryPersistence_CopiesRecords(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	record := persistencetest.NewAccountRecord("alice")
	require.NoError(t, mp.SaveAccount(record))

	record.Address = "mutated"
	loaded, err := mp.LoadAccount("alice")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", loaded.Address)

	loaded.Seed = "mutated"
	again, err := mp.LoadAccount("alice")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Seed)
}
