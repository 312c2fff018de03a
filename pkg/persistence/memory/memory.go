package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IWalletPersistence.
//
// All data is lost when the process exits. Records are copied on the way in and out so callers
// cannot mutate stored state.
type MemoryPersistence struct {
	mu sync.RWMutex

	// name -> AccountRecord
	accounts map[string]*persistence.AccountRecord

	// hash -> TransactionRecord
	transactions map[string]*persistence.TransactionRecord

	closed bool
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		accounts:     make(map[string]*persistence.AccountRecord),
		transactions: make(map[string]*persistence.TransactionRecord),
	}
}

func (m *MemoryPersistence) SaveAccount(record *persistence.AccountRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil AccountRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.accounts[record.Name] = copyAccount(record)
	return nil
}

func (m *MemoryPersistence) LoadAccount(name string) (*persistence.AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, exists := m.accounts[name]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return copyAccount(record), nil
}

func (m *MemoryPersistence) ListAccounts() ([]*persistence.AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.AccountRecord, 0, len(m.accounts))
	for _, record := range m.accounts {
		result = append(result, copyAccount(record))
	}
	persistence.SortAccountRecords(result)
	return result, nil
}

func (m *MemoryPersistence) DeleteAccount(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.accounts, name)
	return nil
}

func (m *MemoryPersistence) SaveTransaction(record *persistence.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil TransactionRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.transactions[record.Hash] = copyTransaction(record)
	return nil
}

func (m *MemoryPersistence) LoadTransaction(hash string) (*persistence.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, exists := m.transactions[hash]
	if !exists {
		return nil, nil
	}
	return copyTransaction(record), nil
}

func (m *MemoryPersistence) ListTransactions() ([]*persistence.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.TransactionRecord, 0, len(m.transactions))
	for _, record := range m.transactions {
		result = append(result, copyTransaction(record))
	}
	persistence.SortTransactionRecords(result)
	return result, nil
}

// Close shuts down the persistence layer.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}

func copyAccount(r *persistence.AccountRecord) *persistence.AccountRecord {
	c := *r
	return &c
}

func copyTransaction(r *persistence.TransactionRecord) *persistence.TransactionRecord {
	c := *r
	if r.SettledAt != nil {
		settledAt := *r.SettledAt
		c.SettledAt = &settledAt
	}
	return &c
}
