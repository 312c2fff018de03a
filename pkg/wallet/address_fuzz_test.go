package wallet

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzNormalizeAddress(f *testing.F) {
	f.Add("")
	f.Add("0x")
	f.Add("0xabcd")
	f.Add(strings.Repeat("ab", 32))
	f.Add("0X" + strings.Repeat("CD", 32))

	f.Fuzz(func(t *testing.T, address string) {
		normalized, err := normalizeAddress(address)
		if err != nil {
			return
		}
		require.Len(t, normalized, 64)
		require.Equal(t, strings.ToLower(normalized), normalized)

		raw, err := hex.DecodeString(normalized)
		require.NoError(t, err)
		require.Len(t, raw, 32)

		again, err := normalizeAddress("0x" + normalized)
		require.NoError(t, err)
		require.Equal(t, normalized, again)
	})
}
