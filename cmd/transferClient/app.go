package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/account"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/clients/faucetClient"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/clients/restClient"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/config"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/logger"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/metrics"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/badger"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/memory"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/persistence/redis"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/wallet"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "aptos-transfer",
		Usage: "Create accounts, fund them from a faucet and transfer coins on a Move-based chain",
		Description: `A client for a Move-based chain's REST API.

Keys are generated locally and kept in the configured persistence backend. Transactions are
signed locally over the signing message returned by the node, submitted, and journaled.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "network",
				Usage:   fmt.Sprintf("Network preset: %s", config.GetSupportedNetworksString()),
				Value:   string(config.NetworkName_Devnet),
				EnvVars: []string{config.EnvAptosNetwork},
			},
			&cli.StringFlag{
				Name:    "node-url",
				Usage:   "Node REST endpoint, overrides the network preset",
				EnvVars: []string{config.EnvAptosNodeURL},
			},
			&cli.StringFlag{
				Name:    "faucet-url",
				Usage:   "Faucet endpoint, overrides the network preset",
				EnvVars: []string{config.EnvAptosFaucetURL},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Where accounts and the transaction journal are kept: memory, badger, redis",
				Value:   string(config.PersistenceType_Badger),
				EnvVars: []string{config.EnvAptosPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				Value:   "./aptos-wallet",
				EnvVars: []string{config.EnvAptosDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis host:port",
				EnvVars: []string{config.EnvAptosRedisAddress},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address while the command runs (e.g. :9090)",
				EnvVars: []string{config.EnvAptosMetricsAddr},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAptosVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "new-account",
				Usage: "Generate a key pair and store it under a name",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Account name (default: account-<uuid>)"},
					&cli.StringFlag{Name: "seed", Usage: "32-byte Ed25519 seed as hex, for deterministic keys"},
				},
				Action: withWallet(newAccountCommand),
			},
			{
				Name:  "delete-account",
				Usage: "Remove a stored account and its key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Account name", Required: true},
				},
				Action: withWallet(deleteAccountCommand),
			},
			{
				Name:   "list-accounts",
				Usage:  "List stored accounts",
				Action: withWallet(listAccountsCommand),
			},
			{
				Name:  "fund",
				Usage: "Mint coins into an account through the faucet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Account name", Required: true},
					&cli.Uint64Flag{Name: "amount", Usage: "Amount to mint", Required: true},
				},
				Action: withWallet(fundCommand),
			},
			{
				Name:  "balance",
				Usage: "Show the coin balance of an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Account name", Required: true},
				},
				Action: withWallet(balanceCommand),
			},
			{
				Name:  "transfer",
				Usage: "Transfer coins from a stored account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Sender account name", Required: true},
					&cli.StringFlag{Name: "to", Usage: "Recipient account name or address", Required: true},
					&cli.Uint64Flag{Name: "amount", Usage: "Amount to transfer", Required: true},
					&cli.BoolFlag{Name: "wait", Usage: "Wait for settlement"},
				},
				Action: withWallet(transferCommand),
			},
			{
				Name:  "wait",
				Usage: "Wait for a journaled transaction to settle",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hash", Usage: "Transaction hash", Required: true},
				},
				Action: withWallet(waitCommand),
			},
			{
				Name:   "history",
				Usage:  "Show the transaction journal",
				Action: withWallet(historyCommand),
			},
			{
				Name:  "demo",
				Usage: "Create two accounts, fund one and transfer between them",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "fund-amount", Value: wallet.DefaultDemoConfig.FundAmount, Usage: "Amount minted to the sender"},
					&cli.Uint64Flag{Name: "transfer-amount", Value: wallet.DefaultDemoConfig.TransferAmount, Usage: "Amount transferred"},
				},
				Action: withWallet(demoCommand),
			},
		},
	}
}

func parseClientConfig(c *cli.Context) (*config.ClientConfig, error) {
	cfg := &config.ClientConfig{
		Network:         config.NetworkName(c.String("network")),
		NodeUrl:         c.String("node-url"),
		FaucetUrl:       c.String("faucet-url"),
		PersistenceType: config.PersistenceType(c.String("persistence-type")),
		DataPath:        c.String("data-path"),
		RedisAddress:    c.String("redis-address"),
		MetricsAddr:     c.String("metrics-addr"),
		Verbose:         c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newPersistence(cfg *config.ClientConfig, l *zap.Logger) (persistence.IWalletPersistence, error) {
	switch cfg.PersistenceType {
	case config.PersistenceType_Badger:
		return badger.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceType_Redis:
		return redis.NewRedisPersistence(&redis.RedisConfig{Address: cfg.RedisAddress}, l)
	case config.PersistenceType_Memory:
		l.Sugar().Warnw("Using in-memory persistence; accounts are lost when the command exits")
		return memory.NewMemoryPersistence(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.PersistenceType)
	}
}

type walletAction func(c *cli.Context, w *wallet.Wallet) error

// withWallet builds the logger, clients and persistence from global flags, runs action, and tears
// everything down afterwards.
func withWallet(action walletAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := parseClientConfig(c)
		if err != nil {
			return err
		}

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = l.Sync() }()

		var m *metrics.Metrics
		if cfg.MetricsAddr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m = metrics.NewMetrics(reg)
			stop := serveMetrics(cfg.MetricsAddr, reg, l)
			defer stop()
		}

		rc, err := restClient.NewClient(&restClient.ClientConfig{
			NodeUrl: cfg.NodeUrl,
			Logger:  l,
			Metrics: m,
		})
		if err != nil {
			return fmt.Errorf("failed to create node client: %w", err)
		}

		fc, err := faucetClient.NewClient(&faucetClient.ClientConfig{
			FaucetUrl: cfg.FaucetUrl,
			Logger:    l,
			Waiter:    rc,
			Metrics:   m,
		})
		if err != nil {
			return fmt.Errorf("failed to create faucet client: %w", err)
		}

		store, err := newPersistence(cfg, l)
		if err != nil {
			return fmt.Errorf("failed to open persistence: %w", err)
		}
		defer func() { _ = store.Close() }()

		if err := store.HealthCheck(); err != nil {
			return fmt.Errorf("persistence health check failed: %w", err)
		}

		w, err := wallet.NewWallet(&wallet.Config{
			RestClient:   rc,
			FaucetClient: fc,
			Persistence:  store,
			Logger:       l,
		})
		if err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}

		l.Sugar().Debugw("Using network", "node_url", cfg.NodeUrl, "faucet_url", cfg.FaucetUrl)
		return action(c, w)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, l *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Sugar().Warnw("Metrics server stopped", "error", err)
		}
	}()
	l.Sugar().Infow("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func newAccountCommand(c *cli.Context, w *wallet.Wallet) error {
	var seed []byte
	if raw := c.String("seed"); raw != "" {
		acct, err := account.NewAccountFromHexSeed(raw)
		if err != nil {
			return fmt.Errorf("invalid seed: %w", err)
		}
		seed = acct.Seed()
	}

	record, err := w.CreateAccount(c.Context, c.String("name"), seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "✅ Created account %s\n", record.Name)
	fmt.Fprintf(c.App.Writer, "   address:    %s\n", record.Address)
	fmt.Fprintf(c.App.Writer, "   public key: %s\n", record.PublicKey)
	return nil
}

func deleteAccountCommand(c *cli.Context, w *wallet.Wallet) error {
	name := c.String("name")
	if err := w.DeleteAccount(name); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "🗑️  Deleted account %s\n", name)
	return nil
}

func listAccountsCommand(c *cli.Context, w *wallet.Wallet) error {
	accounts, err := w.ListAccounts()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(c.App.Writer, "No accounts")
		return nil
	}
	for _, a := range accounts {
		fmt.Fprintf(c.App.Writer, "%-24s %s\n", a.Name, a.Address)
	}
	return nil
}

func fundCommand(c *cli.Context, w *wallet.Wallet) error {
	name := c.String("name")
	hashes, err := w.Fund(c.Context, name, c.Uint64("amount"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "✅ Funded %s with %d (%d faucet transactions)\n", name, c.Uint64("amount"), len(hashes))
	return nil
}

func balanceCommand(c *cli.Context, w *wallet.Wallet) error {
	name := c.String("name")
	balance, err := w.Balance(c.Context, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %d\n", name, balance)
	return nil
}

func transferCommand(c *cli.Context, w *wallet.Wallet) error {
	record, err := w.Transfer(c.Context, c.String("from"), c.String("to"), c.Uint64("amount"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "📤 Submitted %s\n", record.Hash)

	if !c.Bool("wait") {
		return nil
	}
	record, err = w.Wait(c.Context, record.Hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "✅ %s %s\n", record.Hash, record.Status)
	return nil
}

func waitCommand(c *cli.Context, w *wallet.Wallet) error {
	record, err := w.Wait(c.Context, c.String("hash"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "✅ %s %s\n", record.Hash, record.Status)
	return nil
}

func historyCommand(c *cli.Context, w *wallet.Wallet) error {
	records, err := w.History()
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(c.App.Writer, "%s  %-9s  %s -> %s  %d  seq=%d  %s\n",
			r.SubmittedAt.Format(time.RFC3339), r.Status, r.Sender, r.Recipient, r.Amount, r.SequenceNumber, r.Hash)
	}
	return nil
}

func demoCommand(c *cli.Context, w *wallet.Wallet) error {
	report, err := w.RunTransferDemo(c.Context, wallet.DemoConfig{
		FundAmount:     c.Uint64("fund-amount"),
		TransferAmount: c.Uint64("transfer-amount"),
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, "\n=== Addresses ===")
	fmt.Fprintf(out, "Alice: %s\n", report.AliceAddress)
	fmt.Fprintf(out, "Bob: %s\n", report.BobAddress)
	fmt.Fprintln(out, "\n=== Initial Balances ===")
	fmt.Fprintf(out, "Alice: %d\n", report.Initial.Alice)
	fmt.Fprintf(out, "Bob: %d\n", report.Initial.Bob)
	fmt.Fprintln(out, "\n=== Final Balances ===")
	fmt.Fprintf(out, "Alice: %d\n", report.Final.Alice)
	fmt.Fprintf(out, "Bob: %d\n", report.Final.Bob)
	return nil
}
