package types

import (
	"fmt"
	"strconv"
)

// AccountInfo is returned by GET /accounts/{address}
type AccountInfo struct {
	SequenceNumber    string `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

// GetSequenceNumber parses the decimal sequence number string
func (ai *AccountInfo) GetSequenceNumber() (uint64, error) {
	seq, err := strconv.ParseUint(ai.SequenceNumber, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence number %q: %w", ai.SequenceNumber, err)
	}
	return seq, nil
}

// AccountResource is a single typed on-chain resource, e.g. "0x1::coin::CoinStore<...>"
type AccountResource struct {
	Type string `json:"type"`

	// Decoded Move struct data, shape depends on Type
	Data map[string]any `json:"data"`
}

// CoinStoreValue reads data.coin.value of a CoinStore resource
func (ar *AccountResource) CoinStoreValue() (uint64, error) {
	coin, ok := ar.Data["coin"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("resource %s has no coin field", ar.Type)
	}
	raw, ok := coin["value"].(string)
	if !ok {
		return 0, fmt.Errorf("resource %s has no coin.value string", ar.Type)
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coin value %q: %w", raw, err)
	}
	return value, nil
}
