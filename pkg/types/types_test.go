package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountInfo_GetSequenceNumber(t *testing.T) {
	var info AccountInfo
	require.NoError(t, json.Unmarshal([]byte(`{"sequence_number":"17","authentication_key":"0xabc"}`), &info))

	seq, err := info.GetSequenceNumber()
	require.NoError(t, err)
	assert.Equal(t, uint64(17), seq)

	info.SequenceNumber = "seventeen"
	_, err = info.GetSequenceNumber()
	assert.Error(t, err)
}

func TestAccountResource_CoinStoreValue(t *testing.T) {
	var resource AccountResource
	body := `{"type":"0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>","data":{"coin":{"value":"5000"}}}`
	require.NoError(t, json.Unmarshal([]byte(body), &resource))

	value, err := resource.CoinStoreValue()
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), value)

	_, err = (&AccountResource{Type: "0x1::account::Account", Data: map[string]any{}}).CoinStoreValue()
	assert.Error(t, err)
}

func TestSignedTransaction_JSONShape(t *testing.T) {
	signed := &SignedTransaction{
		TransactionRequest: TransactionRequest{
			Sender:                  "0xabc",
			SequenceNumber:          "3",
			MaxGasAmount:            "2000",
			GasUnitPrice:            "1",
			GasCurrencyCode:         "XUS",
			ExpirationTimestampSecs: "1700000600",
			Payload:                 NewScriptFunctionPayload("0x1::coin::transfer", []string{"0x1::aptos_coin::AptosCoin"}, []string{"0xdef", "10"}),
		},
		Signature: &TransactionSignature{Type: Ed25519SignatureType, PublicKey: "0x01", Signature: "0x02"},
	}

	raw, err := json.Marshal(signed)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "0xabc", flat["sender"])
	assert.Equal(t, "3", flat["sequence_number"])
	assert.Equal(t, "XUS", flat["gas_currency_code"])

	payload := flat["payload"].(map[string]any)
	assert.Equal(t, ScriptFunctionPayloadType, payload["type"])
	assert.Equal(t, []any{"0xdef", "10"}, payload["arguments"])

	signature := flat["signature"].(map[string]any)
	assert.Equal(t, Ed25519SignatureType, signature["type"])
}

func TestTransaction_Markers(t *testing.T) {
	var pending Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"type":"pending_transaction","hash":"0x1"}`), &pending))
	assert.True(t, pending.IsPending())
	assert.False(t, pending.HasSuccessMarker())

	var committed Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"type":"user_transaction","hash":"0x1","success":false}`), &committed))
	assert.False(t, committed.IsPending())
	require.True(t, committed.HasSuccessMarker())
	assert.False(t, *committed.Success)
}

func TestNewCoinTransferPayload(t *testing.T) {
	payload := NewCoinTransferPayload("abcd", 1000)
	assert.Equal(t, ScriptFunctionPayloadType, payload.Type)
	assert.Equal(t, "0x1::coin::transfer", payload.Function)
	assert.Equal(t, []string{"0x1::aptos_coin::AptosCoin"}, payload.TypeArguments)
	assert.Equal(t, []string{"0xabcd", "1000"}, payload.Arguments)
}
