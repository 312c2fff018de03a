package persistence

import (
	"fmt"
	"sort"
	"time"
)

// AccountRecord is a named key pair kept by the wallet.
type AccountRecord struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`

	// Seed is the hex encoded 32-byte Ed25519 seed. Stored unencrypted.
	Seed string `json:"seed"`

	CreatedAt time.Time `json:"createdAt"`
}

func (r *AccountRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if r.Address == "" {
		return fmt.Errorf("account address is required")
	}
	if r.Seed == "" {
		return fmt.Errorf("account seed is required")
	}
	return nil
}

type TransactionStatus string

const (
	TransactionStatus_Submitted TransactionStatus = "submitted"
	TransactionStatus_Settled   TransactionStatus = "settled"
	TransactionStatus_Failed    TransactionStatus = "failed"
	TransactionStatus_TimedOut  TransactionStatus = "timed_out"
)

// TransactionRecord journals a transfer submitted by the wallet and its last known outcome.
type TransactionRecord struct {
	Hash           string            `json:"hash"`
	Sender         string            `json:"sender"`
	Recipient      string            `json:"recipient"`
	Amount         uint64            `json:"amount"`
	SequenceNumber uint64            `json:"sequenceNumber"`
	Status         TransactionStatus `json:"status"`
	SubmittedAt    time.Time         `json:"submittedAt"`
	SettledAt      *time.Time        `json:"settledAt,omitempty"`
	Error          string            `json:"error,omitempty"`
}

func (r *TransactionRecord) Validate() error {
	if r.Hash == "" {
		return fmt.Errorf("transaction hash is required")
	}
	switch r.Status {
	case TransactionStatus_Submitted, TransactionStatus_Settled, TransactionStatus_Failed, TransactionStatus_TimedOut:
	default:
		return fmt.Errorf("invalid transaction status %q", r.Status)
	}
	return nil
}

// IsFinal is true once the chain has executed the transaction. A timed out transaction may still
// commit, so it is not final.
func (r *TransactionRecord) IsFinal() bool {
	return r.Status == TransactionStatus_Settled || r.Status == TransactionStatus_Failed
}

// SortAccountRecords orders records by name.
func SortAccountRecords(records []*AccountRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
}

// SortTransactionRecords orders records by submission time, then hash.
func SortTransactionRecords(records []*TransactionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].SubmittedAt.Equal(records[j].SubmittedAt) {
			return records[i].Hash < records[j].Hash
		}
		return records[i].SubmittedAt.Before(records[j].SubmittedAt)
	})
}
