// Package wallet connects Ethereum wallets by verifying a personal_sign
// signature over a message the wallet was asked to sign.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/questhub/ports"
)

var (
	// ErrNoProof is returned by Connect when no signed message was presented.
	ErrNoProof = errors.New("no signed message presented")

	// ErrInvalidSignature is returned when the signature cannot be recovered.
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignatureConnector implements the WalletConnector interface on top of
// signed messages presented by the front end.
type SignatureConnector struct {
	mu        sync.Mutex
	message   string
	signature string
	pending   bool
	address   string
}

// NewSignatureConnector creates a disconnected connector
func NewSignatureConnector() *SignatureConnector {
	return &SignatureConnector{}
}

var _ ports.WalletConnector = (*SignatureConnector)(nil)

// Present stores the proof that the next Connect verifies.
func (c *SignatureConnector) Present(message, signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = message
	c.signature = signature
	c.pending = true
}

// Connect verifies the presented proof and returns the signer's address.
func (c *SignatureConnector) Connect(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		return "", ErrNoProof
	}
	c.pending = false

	addr, err := Recover(c.message, c.signature)
	if err != nil {
		return "", err
	}

	c.address = addr.Hex()
	return c.address, nil
}

func (c *SignatureConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = ""
	return nil
}

func (c *SignatureConnector) Address() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address, c.address != ""
}

// Recover returns the address that produced an EIP-191 personal_sign
// signature over message.
func Recover(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, ErrInvalidSignature)
	}

	// wallets report V as 27/28
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", ErrInvalidSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
