package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/persistencetest"
)

func TestBadgerPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.IWalletPersistence {
		bp, err := NewBadgerPersistence(t.TempDir(), zaptest.NewLogger(t))
		require.NoError(t, err)
		return bp
	})
}

func TestBadgerPersistence_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	logger := zaptest.NewLogger(t)

	bp, err := NewBadgerPersistence(tmpDir, logger)
	require.NoError(t, err)
	require.NoError(t, bp.SaveAccount(persistencetest.NewAccountRecord("alice")))
	require.NoError(t, bp.Close())

	reopened, err := NewBadgerPersistence(tmpDir, logger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadAccount("alice")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "alice", loaded.Name)
}

func TestBadgerPersistence_RejectsUnknownSchema(t *testing.T) {
	tmpDir := t.TempDir()
	logger := zaptest.NewLogger(t)

	bp, err := NewBadgerPersistence(tmpDir, logger)
	require.NoError(t, err)
	require.NoError(t, bp.put(keySchemaVersion, []byte("v0")))
	require.NoError(t, bp.Close())

	_, err = NewBadgerPersistence(tmpDir, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestBadgerPersistence_PrefixesDoNotOverlap(t *testing.T) {
	bp, err := NewBadgerPersistence(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.SaveAccount(persistencetest.NewAccountRecord("txn:lookalike")))

	txns, err := bp.ListTransactions()
	require.NoError(t, err)
	assert.Empty(t, txns)
}
