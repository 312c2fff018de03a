// Package wallet ties key management, the node and faucet clients and the journal together.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/account"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/clients/restClient"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/types"
)

// ChainClient is the subset of *restClient.Client the wallet uses
type ChainClient interface {
	AccountBalance(ctx context.Context, address string) (uint64, bool, error)
	Transfer(ctx context.Context, sender restClient.Signer, recipient string, amount uint64) (string, *types.TransactionRequest, error)
	WaitForTransaction(ctx context.Context, hash string) (*types.Transaction, error)
}

// Faucet is the subset of *faucetClient.Client the wallet uses
type Faucet interface {
	FundAccount(ctx context.Context, address string, amount uint64) ([]string, error)
}

type Config struct {
	RestClient   ChainClient
	FaucetClient Faucet
	Persistence  persistence.IWalletPersistence
	Logger       *zap.Logger

	// Optional clock for journal timestamps
	Now func() time.Time
}

type Wallet struct {
	chain  ChainClient
	faucet Faucet
	store  persistence.IWalletPersistence
	logger *zap.Logger
	now    func() time.Time
}

var ErrAccountNotFound = errors.New("account not found")

func NewWallet(cfg *Config) (*Wallet, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.RestClient == nil {
		return nil, fmt.Errorf("rest client is required")
	}
	if cfg.Persistence == nil {
		return nil, fmt.Errorf("persistence is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Wallet{
		chain:  cfg.RestClient,
		faucet: cfg.FaucetClient,
		store:  cfg.Persistence,
		logger: cfg.Logger,
		now:    now,
	}, nil
}

// CreateAccount generates (or derives from seed, when given) a key pair and stores it under name.
// An empty name becomes "account-<uuid>".
func (w *Wallet) CreateAccount(ctx context.Context, name string, seed []byte) (*persistence.AccountRecord, error) {
	if name == "" {
		name = fmt.Sprintf("account-%s", uuid.New().String())
	}

	existing, err := w.store.LoadAccount(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("account %q already exists", name)
	}

	var acct *account.Account
	if seed == nil {
		acct, err = account.NewAccount()
	} else {
		acct, err = account.NewAccountFromSeed(seed)
	}
	if err != nil {
		return nil, err
	}

	record := &persistence.AccountRecord{
		Name:      name,
		Address:   acct.Address(),
		PublicKey: acct.PublicKey(),
		Seed:      hex.EncodeToString(acct.Seed()),
		CreatedAt: w.now().UTC(),
	}
	if err := w.store.SaveAccount(record); err != nil {
		return nil, fmt.Errorf("failed to save account %s: %w", name, err)
	}

	w.logger.Sugar().Infow("Account created", "name", name, "address", record.Address)
	return record, nil
}

// LoadAccount rebuilds the signing key of a stored account
func (w *Wallet) LoadAccount(name string) (*account.Account, error) {
	record, err := w.store.LoadAccount(name)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}

	acct, err := account.NewAccountFromHexSeed(record.Seed)
	if err != nil {
		return nil, fmt.Errorf("stored seed for %s is invalid: %w", name, err)
	}
	if acct.Address() != record.Address {
		return nil, fmt.Errorf("stored address for %s does not match its seed", name)
	}
	return acct, nil
}

func (w *Wallet) ListAccounts() ([]*persistence.AccountRecord, error) {
	return w.store.ListAccounts()
}

// DeleteAccount forgets the named account and its key. Journal entries that reference it are kept.
func (w *Wallet) DeleteAccount(name string) error {
	if _, err := w.addressOf(name); err != nil {
		return err
	}
	if err := w.store.DeleteAccount(name); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", name, err)
	}
	w.logger.Sugar().Infow("Account deleted", "name", name)
	return nil
}

// Fund mints amount into the named account through the faucet
func (w *Wallet) Fund(ctx context.Context, name string, amount uint64) ([]string, error) {
	if w.faucet == nil {
		return nil, fmt.Errorf("no faucet configured")
	}
	address, err := w.addressOf(name)
	if err != nil {
		return nil, err
	}
	return w.faucet.FundAccount(ctx, address, amount)
}

// Balance returns the coin balance of the named account; an account without a coin store holds 0
func (w *Wallet) Balance(ctx context.Context, name string) (uint64, error) {
	address, err := w.addressOf(name)
	if err != nil {
		return 0, err
	}
	balance, _, err := w.chain.AccountBalance(ctx, address)
	return balance, err
}

// Transfer submits a coin transfer from the named account and journals it as submitted.
// recipient is either the name of a wallet account or a hex address.
func (w *Wallet) Transfer(ctx context.Context, fromName string, recipient string, amount uint64) (*persistence.TransactionRecord, error) {
	sender, err := w.LoadAccount(fromName)
	if err != nil {
		return nil, err
	}
	to, err := w.resolveRecipient(recipient)
	if err != nil {
		return nil, err
	}

	hash, request, err := w.chain.Transfer(ctx, sender, to, amount)
	if err != nil {
		return nil, err
	}
	seq, err := request.GetSequenceNumber()
	if err != nil {
		return nil, err
	}

	record := &persistence.TransactionRecord{
		Hash:           hash,
		Sender:         sender.Address(),
		Recipient:      to,
		Amount:         amount,
		SequenceNumber: seq,
		Status:         persistence.TransactionStatus_Submitted,
		SubmittedAt:    w.now().UTC(),
	}
	if err := w.store.SaveTransaction(record); err != nil {
		return record, fmt.Errorf("transaction %s submitted but not journaled: %w", hash, err)
	}

	w.logger.Sugar().Infow("Transfer submitted",
		"from", fromName,
		"to", to,
		"amount", amount,
		"sequence_number", seq,
		"hash", hash,
	)
	return record, nil
}

// Wait blocks until a journaled transaction settles and records the outcome. A timeout or failure is
// journaled and also returned as an error. Cancellation and transport errors leave the record as
// submitted. Settled and failed records are answered from the journal without polling.
func (w *Wallet) Wait(ctx context.Context, hash string) (*persistence.TransactionRecord, error) {
	record, err := w.store.LoadTransaction(hash)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("transaction %s is not in the journal", hash)
	}
	if record.IsFinal() {
		if record.Status == persistence.TransactionStatus_Failed {
			return record, fmt.Errorf("transaction %s already failed: %s", hash, record.Error)
		}
		return record, nil
	}

	txn, waitErr := w.chain.WaitForTransaction(ctx, hash)

	var settlementErr *restClient.SettlementError
	settledAt := w.now().UTC()
	switch {
	case restClient.IsTimeout(waitErr):
		record.Status = persistence.TransactionStatus_TimedOut
		record.Error = waitErr.Error()
	case errors.As(waitErr, &settlementErr):
		record.Status = persistence.TransactionStatus_Failed
		record.Error = waitErr.Error()
		record.SettledAt = &settledAt
	case waitErr != nil:
		// transport failures and cancellation say nothing about the transaction itself
		return record, waitErr
	case txn.Success != nil && !*txn.Success:
		record.Status = persistence.TransactionStatus_Failed
		record.Error = txn.VmStatus
		record.SettledAt = &settledAt
		waitErr = fmt.Errorf("transaction %s executed unsuccessfully: %s", hash, txn.VmStatus)
	default:
		record.Status = persistence.TransactionStatus_Settled
		record.Error = ""
		record.SettledAt = &settledAt
	}

	if err := w.store.SaveTransaction(record); err != nil {
		return record, fmt.Errorf("failed to journal outcome of %s: %w", hash, err)
	}

	w.logger.Sugar().Infow("Transaction finished", "hash", hash, "status", record.Status)
	return record, waitErr
}

// History returns the journal ordered by submission time
func (w *Wallet) History() ([]*persistence.TransactionRecord, error) {
	return w.store.ListTransactions()
}

func (w *Wallet) addressOf(name string) (string, error) {
	record, err := w.store.LoadAccount(name)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	return record.Address, nil
}

func (w *Wallet) resolveRecipient(recipient string) (string, error) {
	record, err := w.store.LoadAccount(recipient)
	if err != nil {
		return "", err
	}
	if record != nil {
		return record.Address, nil
	}
	return normalizeAddress(recipient)
}

// normalizeAddress accepts a 32-byte hex address with or without 0x and returns it lowercase without 0x
func normalizeAddress(address string) (string, error) {
	raw, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.ToLower(address), "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("invalid address %q: expected 32 bytes, got %d", address, len(raw))
	}
	return hex.EncodeToString(raw), nil
}
