// Package wallet implements the desk's wallet session on top of a local key.
package wallet

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/params"
	"github.com/uhyunpark/otcdesk/pkg/crypto"
	"github.com/uhyunpark/otcdesk/pkg/order"
)

var ErrNoKey = errors.New("no wallet key configured")

// KeyWallet is a connect/disconnect session around a secp256k1 key.
// While disconnected it reports no address and declines to sign.
type KeyWallet struct {
	mu        sync.RWMutex
	signer    *crypto.Signer
	connected bool
	log       *zap.SugaredLogger
}

func New(signer *crypto.Signer, logger *zap.SugaredLogger) *KeyWallet {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &KeyWallet{signer: signer, log: logger}
}

// FromConfig loads the key from a keystore file or a raw hex key, keystore first.
// A config without either yields a wallet that cannot connect.
func FromConfig(cfg params.Wallet, logger *zap.SugaredLogger) (*KeyWallet, error) {
	var (
		signer *crypto.Signer
		err    error
	)
	switch {
	case cfg.KeystorePath != "":
		signer, err = crypto.FromKeystore(cfg.KeystorePath, cfg.KeystorePassphrase)
	case cfg.PrivateKeyHex != "":
		signer, err = crypto.FromPrivateKeyHex(cfg.PrivateKeyHex)
	}
	if err != nil {
		return nil, err
	}

	w := New(signer, logger)
	if cfg.AutoConnect && signer != nil {
		if err := w.Connect(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *KeyWallet) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.signer == nil {
		return ErrNoKey
	}
	if !w.connected {
		w.connected = true
		w.log.Infow("wallet_connected", "address", w.signer.Address().Hex())
	}
	return nil
}

func (w *KeyWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connected {
		w.connected = false
		w.log.Infow("wallet_disconnected")
	}
}

func (w *KeyWallet) Session() order.Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.connected || w.signer == nil {
		return order.Session{}
	}
	addr := w.signer.Address()
	return order.Session{Address: &addr, Connected: true}
}

// From returns the signing address regardless of connection state.
func (w *KeyWallet) From() (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.signer == nil {
		return common.Address{}, false
	}
	return w.signer.Address(), true
}

// SignTx signs tx, declining with order.ErrSignatureDeclined while disconnected.
func (w *KeyWallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	w.mu.RLock()
	signer, connected := w.signer, w.connected
	w.mu.RUnlock()

	if !connected || signer == nil {
		return nil, fmt.Errorf("wallet disconnected: %w", order.ErrSignatureDeclined)
	}
	return signer.SignTx(tx, chainID)
}
