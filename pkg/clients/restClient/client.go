package restClient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/config"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/metrics"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/types"
)

const (
	opAccount           = "account"
	opAccountResource   = "account_resource"
	opSigningMessage    = "signing_message"
	opSubmit            = "submit_transaction"
	opTransactionByHash = "transaction_by_hash"
)

// Signer is the key material a transaction is signed with. *account.Account satisfies it.
type Signer interface {
	Address() string
	PublicKeyBytes() []byte
	Sign(message []byte) []byte
}

// ClientConfig holds the configuration for the node REST client
type ClientConfig struct {
	NodeUrl string
	Logger  *zap.Logger

	// Optional, defaults to a client with a 30s timeout
	HttpClient *http.Client

	// Optional, default to config.DefaultGasConfig / config.DefaultPollConfig
	Gas  *config.GasConfig
	Poll *config.PollConfig

	// RequestsPerSecond caps the outgoing request rate. Zero means unlimited.
	RequestsPerSecond float64

	Metrics *metrics.Metrics

	// Now supplies the wall clock used for transaction expiration
	Now func() time.Time
}

// Client talks to a node's REST API. Apart from the rate limiter it holds no mutable state.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	gas     config.GasConfig
	poll    config.PollConfig
	limiter *rate.Limiter
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewClient creates a new node client instance with dependency injection
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.NodeUrl == "" {
		return nil, fmt.Errorf("node URL is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	hc := cfg.HttpClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	gas := config.DefaultGasConfig
	if cfg.Gas != nil {
		gas = *cfg.Gas
	}
	poll := config.DefaultPollConfig
	if cfg.Poll != nil {
		poll = *cfg.Poll
	}
	if poll.MaxAttempts < 1 {
		return nil, fmt.Errorf("poll max attempts must be at least 1")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		http: resty.NewWithClient(hc).
			SetBaseURL(strings.TrimRight(cfg.NodeUrl, "/")).
			SetHeader("Accept", "application/json"),
		logger:  cfg.Logger,
		gas:     gas,
		poll:    poll,
		limiter: rate.NewLimiter(limit, 1),
		metrics: cfg.Metrics,
		now:     now,
	}, nil
}

// do issues a single request. No retries are attempted at this layer.
func (c *Client) do(ctx context.Context, operation string, req *resty.Request, method, path string) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", operation, err)
	}

	start := time.Now()
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		c.metrics.ObserveRequest(operation, metrics.StatusError, time.Since(start))
		return nil, fmt.Errorf("%s: request failed: %w", operation, err)
	}
	c.metrics.ObserveRequest(operation, strconv.Itoa(resp.StatusCode()), time.Since(start))

	c.logger.Sugar().Debugw("Node request completed",
		"operation", operation,
		"method", method,
		"path", resp.Request.URL,
		"status", resp.StatusCode(),
	)
	return resp, nil
}

func remoteError(operation string, resp *resty.Response) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}
}

func decode(operation string, resp *resty.Response, out any) error {
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	return nil
}

// Account returns the sequence number and authentication key of address.
func (c *Client) Account(ctx context.Context, address string) (*types.AccountInfo, error) {
	resp, err := c.do(ctx, opAccount, c.http.R().SetPathParam("address", address), http.MethodGet, "/accounts/{address}")
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &NotFoundError{Resource: fmt.Sprintf("account %s", address)}
	default:
		return nil, remoteError(opAccount, resp)
	}

	info := &types.AccountInfo{}
	if err := decode(opAccount, resp, info); err != nil {
		return nil, err
	}
	return info, nil
}

// AccountResource returns a single resource of address. A missing resource is reported as (nil, nil).
func (c *Client) AccountResource(ctx context.Context, address string, resourceType string) (*types.AccountResource, error) {
	req := c.http.R().SetPathParams(map[string]string{
		"address": address,
		"type":    resourceType,
	})
	resp, err := c.do(ctx, opAccountResource, req, http.MethodGet, "/accounts/{address}/resource/{type}")
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, remoteError(opAccountResource, resp)
	}

	resource := &types.AccountResource{}
	if err := decode(opAccountResource, resp, resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// AccountBalance reads the native coin balance of address. found is false when the account holds no
// coin store yet.
func (c *Client) AccountBalance(ctx context.Context, address string) (balance uint64, found bool, err error) {
	resource, err := c.AccountResource(ctx, address, config.AptosCoinStoreResource)
	if err != nil {
		return 0, false, err
	}
	if resource == nil {
		return 0, false, nil
	}
	balance, err = resource.CoinStoreValue()
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

// GenerateTransaction builds an unsigned request for sender using its current sequence number.
//
// The sequence number is read fresh on every call, so two concurrent calls for one sender can
// produce the same number.
func (c *Client) GenerateTransaction(ctx context.Context, sender string, payload *types.ScriptFunctionPayload) (*types.TransactionRequest, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is required")
	}
	info, err := c.Account(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sender account: %w", err)
	}
	seq, err := info.GetSequenceNumber()
	if err != nil {
		return nil, err
	}

	return &types.TransactionRequest{
		Sender:                  "0x" + sender,
		SequenceNumber:          strconv.FormatUint(seq, 10),
		MaxGasAmount:            strconv.FormatUint(c.gas.MaxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(c.gas.GasUnitPrice, 10),
		GasCurrencyCode:         c.gas.GasCurrencyCode,
		ExpirationTimestampSecs: strconv.FormatInt(c.now().Unix()+c.gas.ExpirationSecs, 10),
		Payload:                 payload,
	}, nil
}

// SignTransaction asks the node for the canonical signing message of request and signs it locally.
func (c *Client) SignTransaction(ctx context.Context, signer Signer, request *types.TransactionRequest) (*types.SignedTransaction, error) {
	req := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(request)
	resp, err := c.do(ctx, opSigningMessage, req, http.MethodPost, "/transactions/signing_message")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, remoteError(opSigningMessage, resp)
	}

	msg := &types.SigningMessageResponse{}
	if err := decode(opSigningMessage, resp, msg); err != nil {
		return nil, err
	}
	toSign, err := hexutil.Decode(msg.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing message %q: %w", msg.Message, err)
	}

	return &types.SignedTransaction{
		TransactionRequest: *request,
		Signature: &types.TransactionSignature{
			Type:      types.Ed25519SignatureType,
			PublicKey: hexutil.Encode(signer.PublicKeyBytes()),
			Signature: hexutil.Encode(signer.Sign(toSign)),
		},
	}, nil
}

// SubmitTransaction posts a signed transaction. The node accepts it with 202; any other status is a
// *RemoteError carrying the rejected transaction.
func (c *Client) SubmitTransaction(ctx context.Context, signed *types.SignedTransaction) (*types.SubmitTransactionResponse, error) {
	req := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(signed)
	resp, err := c.do(ctx, opSubmit, req, http.MethodPost, "/transactions")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusAccepted {
		c.logger.Sugar().Warnw("Transaction rejected",
			"sender", signed.Sender,
			"sequence_number", signed.SequenceNumber,
			"status", resp.StatusCode(),
			"body", resp.String(),
		)
		rejected := remoteError(opSubmit, resp)
		if raw, err := json.Marshal(signed); err == nil {
			rejected.Transaction = string(raw)
		}
		return nil, rejected
	}

	submitted := &types.SubmitTransactionResponse{}
	if err := decode(opSubmit, resp, submitted); err != nil {
		return nil, err
	}
	if submitted.Hash == "" {
		return nil, fmt.Errorf("%s: response has no hash: %s", opSubmit, resp.String())
	}
	return submitted, nil
}

func (c *Client) fetchTransaction(ctx context.Context, hash string) (*types.Transaction, error) {
	resp, err := c.do(ctx, opTransactionByHash, c.http.R().SetPathParam("hash", hash), http.MethodGet, "/transactions/{hash}")
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, remoteError(opTransactionByHash, resp)
	}

	txn := &types.Transaction{}
	if err := decode(opTransactionByHash, resp, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// TransactionByHash returns the node's record of hash.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*types.Transaction, error) {
	txn, err := c.fetchTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, &NotFoundError{Resource: fmt.Sprintf("transaction %s", hash)}
	}
	return txn, nil
}

// TransactionPending reports whether hash is still in flight. An unknown hash counts as pending.
func (c *Client) TransactionPending(ctx context.Context, hash string) (bool, error) {
	txn, err := c.fetchTransaction(ctx, hash)
	if err != nil {
		return false, err
	}
	if txn == nil {
		return true, nil
	}
	return txn.IsPending(), nil
}

// WaitForTransaction polls hash at a fixed interval until it leaves the pending state. It gives up
// with a *TimeoutError once the configured number of polls all report pending, and returns a
// *SettlementError when the final record has no success field.
//
// A record with success=false is returned without error; callers decide what a failed execution means.
func (c *Client) WaitForTransaction(ctx context.Context, hash string) (*types.Transaction, error) {
	for attempt := 1; ; attempt++ {
		pending, err := c.TransactionPending(ctx, hash)
		if err != nil {
			c.metrics.ObserveSettlement(metrics.SettlementOutcome_Failed)
			return nil, err
		}
		if !pending {
			break
		}
		if attempt >= c.poll.MaxAttempts {
			c.metrics.ObserveSettlement(metrics.SettlementOutcome_TimedOut)
			return nil, &TimeoutError{Hash: hash, Attempts: attempt}
		}

		c.logger.Sugar().Debugw("Transaction pending", "hash", hash, "attempt", attempt)
		if err := sleep(ctx, c.poll.Interval); err != nil {
			return nil, err
		}
	}

	txn, err := c.TransactionByHash(ctx, hash)
	if err != nil {
		c.metrics.ObserveSettlement(metrics.SettlementOutcome_Failed)
		return nil, err
	}
	if !txn.HasSuccessMarker() {
		body, _ := json.Marshal(txn)
		c.metrics.ObserveSettlement(metrics.SettlementOutcome_Failed)
		return nil, &SettlementError{Hash: hash, Body: string(body)}
	}

	if *txn.Success {
		c.metrics.ObserveSettlement(metrics.SettlementOutcome_Settled)
	} else {
		c.metrics.ObserveSettlement(metrics.SettlementOutcome_Failed)
		c.logger.Sugar().Warnw("Transaction executed unsuccessfully", "hash", hash, "vm_status", txn.VmStatus)
	}
	return txn, nil
}

// Transfer moves amount of the native coin from sender to recipient. It returns the transaction hash
// and the request that was signed, and does not wait for settlement.
func (c *Client) Transfer(ctx context.Context, sender Signer, recipient string, amount uint64) (string, *types.TransactionRequest, error) {
	request, err := c.GenerateTransaction(ctx, sender.Address(), types.NewCoinTransferPayload(recipient, amount))
	if err != nil {
		return "", nil, err
	}
	signed, err := c.SignTransaction(ctx, sender, request)
	if err != nil {
		return "", nil, err
	}
	submitted, err := c.SubmitTransaction(ctx, signed)
	if err != nil {
		return "", nil, err
	}

	c.logger.Sugar().Infow("Transfer submitted",
		"sender", sender.Address(),
		"recipient", recipient,
		"amount", amount,
		"sequence_number", request.SequenceNumber,
		"hash", submitted.Hash,
	)
	return submitted.Hash, request, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
