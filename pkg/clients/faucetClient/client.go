package faucetClient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/clients/restClient"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/metrics"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/types"
)

const opMint = "mint"

// TransactionWaiter blocks until a transaction settles. *restClient.Client satisfies it.
type TransactionWaiter interface {
	WaitForTransaction(ctx context.Context, hash string) (*types.Transaction, error)
}

// ClientConfig holds the configuration for the faucet client
type ClientConfig struct {
	FaucetUrl string
	Logger    *zap.Logger
	Waiter    TransactionWaiter

	// Optional, defaults to a client with a 30s timeout
	HttpClient *http.Client

	Metrics *metrics.Metrics
}

// Client mints test coins through a faucet service
type Client struct {
	http    *resty.Client
	waiter  TransactionWaiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new faucet client instance with dependency injection
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.FaucetUrl == "" {
		return nil, fmt.Errorf("faucet URL is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Waiter == nil {
		return nil, fmt.Errorf("transaction waiter is required")
	}

	hc := cfg.HttpClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		http:    resty.NewWithClient(hc).SetBaseURL(strings.TrimRight(cfg.FaucetUrl, "/")),
		waiter:  cfg.Waiter,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// FundAccount asks the faucet to mint amount into address and waits for every transaction the faucet
// reports, in order. The first hash that fails to settle aborts the call; later hashes are not waited on.
func (c *Client) FundAccount(ctx context.Context, address string, amount uint64) ([]string, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"amount":  strconv.FormatUint(amount, 10),
			"address": address,
		}).
		Post("/mint")
	if err != nil {
		c.metrics.ObserveRequest(opMint, metrics.StatusError, time.Since(start))
		return nil, fmt.Errorf("%s: request failed: %w", opMint, err)
	}
	c.metrics.ObserveRequest(opMint, strconv.Itoa(resp.StatusCode()), time.Since(start))

	if resp.StatusCode() != http.StatusOK {
		return nil, &restClient.RemoteError{
			Operation:  opMint,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	var hashes []string
	if err := json.Unmarshal(resp.Body(), &hashes); err != nil {
		return nil, fmt.Errorf("%s: failed to decode transaction hashes: %w", opMint, err)
	}

	c.logger.Sugar().Infow("Faucet mint accepted",
		"address", address,
		"amount", amount,
		"transactions", len(hashes),
	)

	for _, hash := range hashes {
		if _, err := c.waiter.WaitForTransaction(ctx, hash); err != nil {
			return hashes, fmt.Errorf("faucet transaction %s failed: %w", hash, err)
		}
	}
	return hashes, nil
}
