package testutil

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/aptos-transfer-go/pkg/config"
	"github.com/Layr-Labs/aptos-transfer-go/pkg/types"
)

// Route names accepted by FakeNode.ForceStatus
const (
	RouteAccount        = "account"
	RouteResource       = "resource"
	RouteSigningMessage = "signing_message"
	RouteSubmit         = "submit"
	RouteTransaction    = "transaction"
	RouteMint           = "mint"
)

// FakeNodeConfig controls how the fake node reports transactions
type FakeNodeConfig struct {
	// NotFoundPolls is how many lookups of a fresh hash answer 404 before it becomes visible
	NotFoundPolls int

	// PendingPolls is how many further lookups report pending_transaction before the record commits
	PendingPolls int

	// HashesPerMint is how many transaction hashes each faucet mint returns. Defaults to 1.
	HashesPerMint int

	// StallMintHashAt makes the n-th hash (1-based) of every mint stay pending forever. 0 disables it.
	StallMintHashAt int
}

type fakeAccount struct {
	sequenceNumber uint64
	balance        uint64
}

type fakeTransaction struct {
	polls    int
	stalled  bool
	success  bool
	vmStatus string
	version  uint64
}

// FakeNode is an in-process node and faucet serving the subset of the REST API the clients use.
// Balances and sequence numbers live in memory. Submitted transfers take effect immediately; only
// the transaction lookup simulates settlement latency.
type FakeNode struct {
	URL string

	cfg      FakeNodeConfig
	app      *fiber.App
	listener net.Listener

	mu            sync.Mutex
	accounts      map[string]*fakeAccount
	transactions  map[string]*fakeTransaction
	forced        map[string]int
	omitSuccess   bool
	nextVersion   uint64
	mintCounter   uint64
	submitRequest int
}

// NewFakeNode starts a fake node on a loopback port and stops it when the test ends
func NewFakeNode(t *testing.T, cfg *FakeNodeConfig) *FakeNode {
	t.Helper()

	if cfg == nil {
		cfg = &FakeNodeConfig{}
	}
	if cfg.HashesPerMint <= 0 {
		cfg.HashesPerMint = 1
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	n := &FakeNode{
		URL:          "http://" + ln.Addr().String(),
		cfg:          *cfg,
		listener:     ln,
		accounts:     make(map[string]*fakeAccount),
		transactions: make(map[string]*fakeTransaction),
		forced:       make(map[string]int),
	}

	n.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
	})
	n.app.Get("/accounts/:address", n.force(RouteAccount, n.handleAccount))
	n.app.Get("/accounts/:address/resource/:type", n.force(RouteResource, n.handleResource))
	n.app.Post("/transactions/signing_message", n.force(RouteSigningMessage, n.handleSigningMessage))
	n.app.Post("/transactions", n.force(RouteSubmit, n.handleSubmit))
	n.app.Get("/transactions/:hash", n.force(RouteTransaction, n.handleTransaction))
	n.app.Post("/mint", n.force(RouteMint, n.handleMint))

	go func() {
		_ = n.app.Listener(ln)
	}()

	t.Cleanup(n.Close)
	return n
}

func (n *FakeNode) Close() {
	_ = n.app.Shutdown()
}

// CreateAccount registers address with a coin store holding balance
func (n *FakeNode) CreateAccount(address string, balance uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts[normalize(address)] = &fakeAccount{balance: balance}
}

// Balance returns the coin balance of address and whether the account exists
func (n *FakeNode) Balance(address string) (uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acct, ok := n.accounts[normalize(address)]
	if !ok {
		return 0, false
	}
	return acct.balance, true
}

func (n *FakeNode) SequenceNumber(address string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if acct, ok := n.accounts[normalize(address)]; ok {
		return acct.sequenceNumber
	}
	return 0
}

// Polls returns how many times hash has been looked up
func (n *FakeNode) Polls(hash string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if txn, ok := n.transactions[hash]; ok {
		return txn.polls
	}
	return 0
}

// ForceStatus makes route answer status with a fixed error body. A status of 0 clears it.
func (n *FakeNode) ForceStatus(route string, status int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status == 0 {
		delete(n.forced, route)
		return
	}
	n.forced[route] = status
}

// OmitSuccess drops the success field from committed transaction records
func (n *FakeNode) OmitSuccess(omit bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.omitSuccess = omit
}

// SubmitCount returns the number of POST /transactions requests received
func (n *FakeNode) SubmitCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.submitRequest
}

// SigningMessage is the canonical message the fake node hands out for request
func SigningMessage(request *types.TransactionRequest) ([]byte, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	digest := sha3.Sum256(append([]byte("RawTransaction::"), raw...))
	return digest[:], nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimPrefix(address, "0x"))
}

func (n *FakeNode) force(route string, next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n.mu.Lock()
		status, ok := n.forced[route]
		n.mu.Unlock()
		if ok {
			return c.Status(status).SendString(fmt.Sprintf("forced %s failure", route))
		}
		return next(c)
	}
}

func (n *FakeNode) handleAccount(c *fiber.Ctx) error {
	address := normalize(c.Params("address"))

	n.mu.Lock()
	defer n.mu.Unlock()
	acct, ok := n.accounts[address]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "account not found"})
	}
	return c.JSON(types.AccountInfo{
		SequenceNumber:    strconv.FormatUint(acct.sequenceNumber, 10),
		AuthenticationKey: "0x" + address,
	})
}

func (n *FakeNode) handleResource(c *fiber.Ctx) error {
	address := normalize(c.Params("address"))
	resourceType, err := url.PathUnescape(c.Params("type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	acct, ok := n.accounts[address]
	if !ok || resourceType != config.AptosCoinStoreResource {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "resource not found"})
	}
	return c.JSON(fiber.Map{
		"type": resourceType,
		"data": fiber.Map{
			"coin": fiber.Map{"value": strconv.FormatUint(acct.balance, 10)},
		},
	})
}

func (n *FakeNode) handleSigningMessage(c *fiber.Ctx) error {
	request := &types.TransactionRequest{}
	if err := json.Unmarshal(c.Body(), request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	msg, err := SigningMessage(request)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(types.SigningMessageResponse{Message: hexutil.Encode(msg)})
}

func (n *FakeNode) handleSubmit(c *fiber.Ctx) error {
	n.mu.Lock()
	n.submitRequest++
	n.mu.Unlock()

	signed := &types.SignedTransaction{}
	if err := json.Unmarshal(c.Body(), signed); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := verifySignature(signed); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	recipient, amount, err := parseTransfer(signed.Payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	sender, ok := n.accounts[normalize(signed.Sender)]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "sender account does not exist"})
	}
	seq, err := signed.GetSequenceNumber()
	if err != nil || seq != sender.sequenceNumber {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": fmt.Sprintf("invalid sequence number %s, expected %d", signed.SequenceNumber, sender.sequenceNumber),
		})
	}

	txn := &fakeTransaction{success: true, vmStatus: "Executed successfully"}
	sender.sequenceNumber++
	if sender.balance < amount {
		txn.success = false
		txn.vmStatus = "Move abort: EINSUFFICIENT_BALANCE"
	} else {
		sender.balance -= amount
		to, ok := n.accounts[recipient]
		if !ok {
			to = &fakeAccount{}
			n.accounts[recipient] = to
		}
		to.balance += amount
	}

	digest := sha3.Sum256(c.Body())
	hash := "0x" + hex.EncodeToString(digest[:])
	n.transactions[hash] = txn
	return c.Status(fiber.StatusAccepted).JSON(types.SubmitTransactionResponse{Hash: hash})
}

func (n *FakeNode) handleTransaction(c *fiber.Ctx) error {
	hash := c.Params("hash")

	n.mu.Lock()
	defer n.mu.Unlock()
	txn, ok := n.transactions[hash]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "transaction not found"})
	}
	txn.polls++

	if txn.polls <= n.cfg.NotFoundPolls {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "transaction not found"})
	}
	if txn.stalled || txn.polls <= n.cfg.NotFoundPolls+n.cfg.PendingPolls {
		return c.JSON(fiber.Map{"type": types.PendingTransactionType, "hash": hash})
	}

	if txn.version == 0 {
		n.nextVersion++
		txn.version = n.nextVersion
	}
	body := fiber.Map{
		"type":      "user_transaction",
		"hash":      hash,
		"version":   strconv.FormatUint(txn.version, 10),
		"vm_status": txn.vmStatus,
	}
	if !n.omitSuccess {
		body["success"] = txn.success
	}
	return c.JSON(body)
}

func (n *FakeNode) handleMint(c *fiber.Ctx) error {
	amount, err := strconv.ParseUint(c.Query("amount"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid amount")
	}
	address := normalize(c.Query("address"))
	if address == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing address")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	acct, ok := n.accounts[address]
	if !ok {
		acct = &fakeAccount{}
		n.accounts[address] = acct
	}
	acct.balance += amount

	hashes := make([]string, 0, n.cfg.HashesPerMint)
	for i := 1; i <= n.cfg.HashesPerMint; i++ {
		n.mintCounter++
		digest := sha3.Sum256([]byte(fmt.Sprintf("mint-%d-%s", n.mintCounter, address)))
		hash := "0x" + hex.EncodeToString(digest[:])
		n.transactions[hash] = &fakeTransaction{
			success:  true,
			vmStatus: "Executed successfully",
			stalled:  i == n.cfg.StallMintHashAt,
		}
		hashes = append(hashes, hash)
	}
	return c.JSON(hashes)
}

func verifySignature(signed *types.SignedTransaction) error {
	if signed.Signature == nil {
		return fmt.Errorf("missing signature")
	}
	if signed.Signature.Type != types.Ed25519SignatureType {
		return fmt.Errorf("unsupported signature type %q", signed.Signature.Type)
	}
	pub, err := hexutil.Decode(signed.Signature.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key")
	}
	sig, err := hexutil.Decode(signed.Signature.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding")
	}

	authKey := sha3.Sum256(append(append([]byte{}, pub...), 0x00))
	if hex.EncodeToString(authKey[:]) != normalize(signed.Sender) {
		return fmt.Errorf("public key does not match sender authentication key")
	}

	msg, err := SigningMessage(&signed.TransactionRequest)
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

func parseTransfer(payload *types.ScriptFunctionPayload) (string, uint64, error) {
	if payload == nil || payload.Function != config.CoinTransferFunction || len(payload.Arguments) != 2 {
		return "", 0, fmt.Errorf("unsupported payload")
	}
	amount, err := strconv.ParseUint(payload.Arguments[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid amount %q", payload.Arguments[1])
	}
	return normalize(payload.Arguments[0]), amount, nil
}
