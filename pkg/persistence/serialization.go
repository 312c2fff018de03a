package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalAccountRecord serializes an AccountRecord to JSON bytes.
func MarshalAccountRecord(r *AccountRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil AccountRecord")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal AccountRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalAccountRecord deserializes an AccountRecord from JSON bytes.
func UnmarshalAccountRecord(data []byte) (*AccountRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r AccountRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to AccountRecord: %w", err)
	}

	return &r, nil
}

// MarshalTransactionRecord serializes a TransactionRecord to JSON bytes.
func MarshalTransactionRecord(r *TransactionRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil TransactionRecord")
	}

	return json.Marshal(r)
}

// UnmarshalTransactionRecord deserializes a TransactionRecord from JSON bytes.
func UnmarshalTransactionRecord(data []byte) (*TransactionRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r TransactionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to TransactionRecord: %w", err)
	}

	return &r, nil
}
