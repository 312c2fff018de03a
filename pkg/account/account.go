// Package account holds Ed25519 key pairs and derives their on-chain addresses.
//
// The address of an account is its authentication key, SHA3-256(publicKey || 0x00). This only holds
// for accounts that have never rotated their authentication key; rotation is not handled here.
package account

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// ed25519SingleKeyScheme is the scheme byte appended to the public key when deriving the auth key
const ed25519SingleKeyScheme byte = 0x00

// InvalidSeedError is returned when key material is not exactly ed25519.SeedSize bytes.
type InvalidSeedError struct {
	Length int
}

func (e *InvalidSeedError) Error() string {
	return fmt.Sprintf("invalid seed: expected %d bytes, got %d", ed25519.SeedSize, e.Length)
}

// Account is an immutable Ed25519 key pair.
type Account struct {
	signingKey   ed25519.PrivateKey
	verifyingKey ed25519.PublicKey
}

// NewAccount generates an account from a cryptographically random seed
func NewAccount() (*Account, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read random seed: %w", err)
	}
	return NewAccountFromSeed(seed)
}

// NewAccountFromSeed deterministically derives the key pair from a 32 byte seed
func NewAccountFromSeed(seed []byte) (*Account, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, &InvalidSeedError{Length: len(seed)}
	}

	signingKey := ed25519.NewKeyFromSeed(seed)
	return &Account{
		signingKey:   signingKey,
		verifyingKey: signingKey.Public().(ed25519.PublicKey),
	}, nil
}

// NewAccountFromHexSeed accepts the seed as hex, with or without a 0x prefix
func NewAccountFromHexSeed(seedHex string) (*Account, error) {
	if !strings.HasPrefix(seedHex, "0x") {
		seedHex = "0x" + seedHex
	}
	seed, err := hexutil.Decode(seedHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed hex: %w", err)
	}
	return NewAccountFromSeed(seed)
}

// Address returns the account address as 64 lowercase hex characters without a 0x prefix.
func (a *Account) Address() string {
	return a.AuthKey()
}

// AuthKey returns SHA3-256(publicKey || 0x00) as lowercase hex.
func (a *Account) AuthKey() string {
	hasher := sha3.New256()
	hasher.Write(a.verifyingKey)
	hasher.Write([]byte{ed25519SingleKeyScheme})
	return hex.EncodeToString(hasher.Sum(nil))
}

// PublicKey returns the raw public key as 64 lowercase hex characters.
func (a *Account) PublicKey() string {
	return hex.EncodeToString(a.verifyingKey)
}

func (a *Account) PublicKeyBytes() []byte {
	return append([]byte{}, a.verifyingKey...)
}

// Seed returns a copy of the 32 byte private seed.
func (a *Account) Seed() []byte {
	return append([]byte{}, a.signingKey.Seed()...)
}

// Sign returns the 64 byte Ed25519 signature of message. Signing is deterministic.
func (a *Account) Sign(message []byte) []byte {
	return ed25519.Sign(a.signingKey, message)
}

func (a *Account) Verify(message []byte, signature []byte) bool {
	return ed25519.Verify(a.verifyingKey, message, signature)
}
