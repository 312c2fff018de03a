package types

import (
	"strconv"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/config"
)

const (
	ScriptFunctionPayloadType = "script_function_payload"
	Ed25519SignatureType      = "ed25519_signature"
	PendingTransactionType    = "pending_transaction"
)

// ScriptFunctionPayload describes an entry function call. The server interprets it, the client
// only forwards it.
type ScriptFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// NewScriptFunctionPayload builds a payload for function with the given type arguments and arguments
func NewScriptFunctionPayload(function string, typeArguments []string, arguments []string) *ScriptFunctionPayload {
	if typeArguments == nil {
		typeArguments = []string{}
	}
	if arguments == nil {
		arguments = []string{}
	}
	return &ScriptFunctionPayload{
		Type:          ScriptFunctionPayloadType,
		Function:      function,
		TypeArguments: typeArguments,
		Arguments:     arguments,
	}
}

// NewCoinTransferPayload moves amount of the native coin to recipient (hex address without 0x)
func NewCoinTransferPayload(recipient string, amount uint64) *ScriptFunctionPayload {
	return NewScriptFunctionPayload(
		config.CoinTransferFunction,
		[]string{config.AptosCoinTypeTag},
		[]string{"0x" + recipient, strconv.FormatUint(amount, 10)},
	)
}

// TransactionRequest is the unsigned transaction envelope. Numeric fields travel as decimal strings.
type TransactionRequest struct {
	Sender                  string                 `json:"sender"`
	SequenceNumber          string                 `json:"sequence_number"`
	MaxGasAmount            string                 `json:"max_gas_amount"`
	GasUnitPrice            string                 `json:"gas_unit_price"`
	GasCurrencyCode         string                 `json:"gas_currency_code"`
	ExpirationTimestampSecs string                 `json:"expiration_timestamp_secs"`
	Payload                 *ScriptFunctionPayload `json:"payload"`
}

// GetSequenceNumber parses the request's sequence number
func (tr *TransactionRequest) GetSequenceNumber() (uint64, error) {
	return strconv.ParseUint(tr.SequenceNumber, 10, 64)
}

type TransactionSignature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// SignedTransaction is a TransactionRequest with its signature attached
type SignedTransaction struct {
	TransactionRequest
	Signature *TransactionSignature `json:"signature"`
}

// SigningMessageResponse carries the canonical bytes to sign as 0x-prefixed hex
type SigningMessageResponse struct {
	Message string `json:"message"`
}

type SubmitTransactionResponse struct {
	Hash string `json:"hash"`
}

// Transaction is the subset of GET /transactions/{hash} this client reads.
type Transaction struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Version  string `json:"version,omitempty"`
	Success  *bool  `json:"success,omitempty"`
	VmStatus string `json:"vm_status,omitempty"`
}

func (t *Transaction) IsPending() bool {
	return t.Type == PendingTransactionType
}

// HasSuccessMarker reports whether the record carries a success field at all.
func (t *Transaction) HasSuccessMarker() bool {
	return t.Success != nil
}
