package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type DemoConfig struct {
	FundAmount     uint64
	TransferAmount uint64
}

var DefaultDemoConfig = DemoConfig{
	FundAmount:     5000,
	TransferAmount: 1000,
}

type DemoBalances struct {
	Alice uint64 `json:"alice"`
	Bob   uint64 `json:"bob"`
}

type DemoReport struct {
	AliceName       string       `json:"aliceName"`
	AliceAddress    string       `json:"aliceAddress"`
	BobName         string       `json:"bobName"`
	BobAddress      string       `json:"bobAddress"`
	Initial         DemoBalances `json:"initial"`
	Final           DemoBalances `json:"final"`
	TransactionHash string       `json:"transactionHash"`
}

// RunTransferDemo creates two fresh accounts, funds the first, moves TransferAmount to the second
// and reports balances before and after. Bob is funded with zero so the faucet creates his account.
func (w *Wallet) RunTransferDemo(ctx context.Context, cfg DemoConfig) (*DemoReport, error) {
	if cfg.FundAmount == 0 && cfg.TransferAmount == 0 {
		cfg = DefaultDemoConfig
	}

	suffix := uuid.New().String()[:8]
	alice, err := w.CreateAccount(ctx, "alice-"+suffix, nil)
	if err != nil {
		return nil, err
	}
	bob, err := w.CreateAccount(ctx, "bob-"+suffix, nil)
	if err != nil {
		return nil, err
	}

	report := &DemoReport{
		AliceName:    alice.Name,
		AliceAddress: alice.Address,
		BobName:      bob.Name,
		BobAddress:   bob.Address,
	}
	w.logger.Sugar().Infow("Demo accounts", "alice", alice.Address, "bob", bob.Address)

	if _, err := w.Fund(ctx, alice.Name, cfg.FundAmount); err != nil {
		return report, fmt.Errorf("failed to fund alice: %w", err)
	}
	if _, err := w.Fund(ctx, bob.Name, 0); err != nil {
		return report, fmt.Errorf("failed to fund bob: %w", err)
	}

	if report.Initial, err = w.demoBalances(ctx, alice.Name, bob.Name); err != nil {
		return report, err
	}
	w.logger.Sugar().Infow("Initial balances", "alice", report.Initial.Alice, "bob", report.Initial.Bob)

	record, err := w.Transfer(ctx, alice.Name, bob.Name, cfg.TransferAmount)
	if err != nil {
		return report, fmt.Errorf("failed to transfer: %w", err)
	}
	report.TransactionHash = record.Hash

	if _, err := w.Wait(ctx, record.Hash); err != nil {
		return report, err
	}

	if report.Final, err = w.demoBalances(ctx, alice.Name, bob.Name); err != nil {
		return report, err
	}
	w.logger.Sugar().Infow("Final balances", "alice", report.Final.Alice, "bob", report.Final.Bob)

	return report, nil
}

func (w *Wallet) demoBalances(ctx context.Context, alice, bob string) (DemoBalances, error) {
	aliceBalance, err := w.Balance(ctx, alice)
	if err != nil {
		return DemoBalances{}, err
	}
	bobBalance, err := w.Balance(ctx, bob)
	if err != nil {
		return DemoBalances{}, err
	}
	return DemoBalances{Alice: aliceBalance, Bob: bobBalance}, nil
}
