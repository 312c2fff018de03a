package persistence

// IWalletPersistence stores named accounts and a journal of submitted transfers.
// All implementations must be thread-safe; the CLI and wallet may call them concurrently.
type IWalletPersistence interface {
	// Accounts

	// SaveAccount persists an account record keyed by name, overwriting any existing record.
	SaveAccount(record *AccountRecord) error

	// LoadAccount retrieves an account by name.
	// Returns nil if the account doesn't exist, error only on storage failure.
	LoadAccount(name string) (*AccountRecord, error)

	// ListAccounts returns all accounts sorted by name.
	ListAccounts() ([]*AccountRecord, error)

	// DeleteAccount removes an account. Idempotent.
	DeleteAccount(name string) error

	// Transaction journal

	// SaveTransaction persists a transaction record keyed by hash, overwriting any existing record.
	SaveTransaction(record *TransactionRecord) error

	// LoadTransaction retrieves a transaction by hash.
	// Returns nil if the transaction doesn't exist, error only on storage failure.
	LoadTransaction(hash string) (*TransactionRecord, error)

	// ListTransactions returns all transactions sorted by SubmittedAt (ascending).
	ListTransactions() ([]*TransactionRecord, error)

	// Lifecycle

	// Close shuts down the persistence layer. Idempotent.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck returns nil if the backend is operational.
	HealthCheck() error
}
