package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/account"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/testutil"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"aptos-transfer"}, args...))
	return out.String(), err
}

func TestTransferClientCommands(t *testing.T) {
	node := testutil.NewFakeNode(t, nil)
	dataPath := t.TempDir()

	global := []string{
		"--network", "local",
		"--node-url", node.URL,
		"--faucet-url", node.URL,
		"--persistence-type", "badger",
		"--data-path", dataPath,
	}
	with := func(args ...string) []string {
		return append(append([]string{}, global...), args...)
	}

	seed := strings.Repeat("01", 32)
	expected, err := account.NewAccountFromHexSeed(seed)
	require.NoError(t, err)

	t.Run("Should create an account from a seed", func(t *testing.T) {
		out, err := runApp(t, with("new-account", "--name", "alice", "--seed", seed)...)
		require.NoError(t, err)
		assert.Contains(t, out, "Created account alice")
		assert.Contains(t, out, expected.Address())
	})

	t.Run("Should list the stored account", func(t *testing.T) {
		out, err := runApp(t, with("list-accounts")...)
		require.NoError(t, err)
		assert.Contains(t, out, "alice")
		assert.Contains(t, out, expected.Address())
	})

	t.Run("Should delete an account", func(t *testing.T) {
		_, err := runApp(t, with("new-account", "--name", "scratch")...)
		require.NoError(t, err)

		out, err := runApp(t, with("delete-account", "--name", "scratch")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted account scratch")

		out, err = runApp(t, with("list-accounts")...)
		require.NoError(t, err)
		assert.NotContains(t, out, "scratch")
		assert.Contains(t, out, "alice")

		_, err = runApp(t, with("delete-account", "--name", "scratch")...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account not found")
	})

	t.Run("Should fund and read the balance", func(t *testing.T) {
		_, err := runApp(t, with("fund", "--name", "alice", "--amount", "300")...)
		require.NoError(t, err)

		out, err := runApp(t, with("balance", "--name", "alice")...)
		require.NoError(t, err)
		assert.Contains(t, out, "alice: 300")
	})

	t.Run("Should transfer and journal", func(t *testing.T) {
		_, err := runApp(t, with("new-account", "--name", "bob")...)
		require.NoError(t, err)

		out, err := runApp(t, with("transfer", "--from", "alice", "--to", "bob", "--amount", "100", "--wait")...)
		require.NoError(t, err)
		assert.Contains(t, out, "settled")

		out, err = runApp(t, with("history")...)
		require.NoError(t, err)
		assert.Contains(t, out, expected.Address())
		assert.Contains(t, out, "settled")

		balance, ok := node.Balance(expected.Address())
		require.True(t, ok)
		assert.Equal(t, uint64(200), balance)
	})

	t.Run("Should wait on a journaled hash", func(t *testing.T) {
		out, err := runApp(t, with("transfer", "--from", "alice", "--to", "bob", "--amount", "50")...)
		require.NoError(t, err)
		hash := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "📤 Submitted"))
		require.NotEmpty(t, hash)

		out, err = runApp(t, with("wait", "--hash", hash)...)
		require.NoError(t, err)
		assert.Contains(t, out, hash+" settled")

		_, err = runApp(t, with("wait", "--hash", "0xdeadbeef")...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in the journal")
	})

	t.Run("Should run the demo", func(t *testing.T) {
		out, err := runApp(t, with("demo")...)
		require.NoError(t, err)
		assert.Contains(t, out, "=== Final Balances ===")
		assert.Contains(t, out, "Alice: 4000")
		assert.Contains(t, out, "Bob: 1000")
	})
}

func TestTransferClientConfigErrors(t *testing.T) {
	t.Run("Should reject an unknown persistence type", func(t *testing.T) {
		_, err := runApp(t, "--persistence-type", "postgres", "list-accounts")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Should reject an unknown network", func(t *testing.T) {
		_, err := runApp(t, "--network", "mainnet", "--persistence-type", "memory", "list-accounts")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Should reject a malformed seed", func(t *testing.T) {
		_, err := runApp(t, "--persistence-type", "memory", "new-account", "--seed", "zz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid seed")
	})
}
