// Package chain submits desk orders to the on-chain order book contract.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/uhyunpark/otcdesk/pkg/order"
	"github.com/uhyunpark/otcdesk/pkg/settings"
	"github.com/uhyunpark/otcdesk/pkg/util"
)

var (
	ErrReverted = errors.New("transaction reverted")
	ErrNoSigner = errors.New("wallet has no signing key")
)

// Backend is the slice of the JSON-RPC client the gateway needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// TxSigner is the wallet side of a submission.
type TxSigner interface {
	From() (common.Address, bool)
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// GasPolicy supplies the user's gas preference at submission time.
type GasPolicy interface {
	GasPreference() settings.GasPreference
}

type Config struct {
	Contract     common.Address
	ChainID      *big.Int // nil = ask the backend
	GasLimit     uint64   // 0 = estimate
	PollInterval time.Duration
	Wire         order.WireFormat
	Clock        util.Clock
	Gas          GasPolicy // nil = standard
}

type Gateway struct {
	cfg     Config
	backend Backend
	signer  TxSigner
	abi     abi.ABI
	log     *zap.SugaredLogger
}

func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return client, nil
}

func NewGateway(cfg Config, backend Backend, signer TxSigner, logger *zap.SugaredLogger) (*Gateway, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gateway{cfg: cfg, backend: backend, signer: signer, abi: parsed, log: logger}, nil
}

var _ order.Gateway = (*Gateway)(nil)

func (g *Gateway) SubmitOrder(ctx context.Context, req order.Request) (order.Handle, error) {
	wire, err := g.cfg.Wire.Encode(req)
	if err != nil {
		return nil, err
	}
	data, err := g.abi.Pack(methodCreate, wire.Symbol, wire.Amount, wire.Price, wire.Side)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", methodCreate, err)
	}
	return g.transact(ctx, methodCreate, data)
}

// CancelOrder deactivates an on-chain order through the same sign and poll path.
func (g *Gateway) CancelOrder(ctx context.Context, orderID *big.Int) (order.Handle, error) {
	data, err := g.abi.Pack(methodCancel, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", methodCancel, err)
	}
	return g.transact(ctx, methodCancel, data)
}

type OnchainOrder struct {
	ID        *big.Int       `json:"id"`
	Trader    common.Address `json:"trader"`
	Symbol    string         `json:"symbol"`
	Side      order.Side     `json:"side"`
	Active    bool           `json:"active"`
	Timestamp time.Time      `json:"timestamp"`
}

func (g *Gateway) GetOrder(ctx context.Context, orderID *big.Int) (OnchainOrder, error) {
	data, err := g.abi.Pack(methodGet, orderID)
	if err != nil {
		return OnchainOrder{}, fmt.Errorf("failed to pack %s: %w", methodGet, err)
	}
	out, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &g.cfg.Contract, Data: data}, nil)
	if err != nil {
		return OnchainOrder{}, fmt.Errorf("failed to call %s: %w", methodGet, err)
	}
	vals, err := g.abi.Unpack(methodGet, out)
	if err != nil {
		return OnchainOrder{}, fmt.Errorf("failed to unpack %s: %w", methodGet, err)
	}
	if len(vals) != 5 {
		return OnchainOrder{}, fmt.Errorf("getOrder returned %d values, want 5", len(vals))
	}

	trader, _ := vals[0].(common.Address)
	symbol, _ := vals[1].(string)
	side, _ := vals[2].(uint8)
	active, _ := vals[3].(bool)
	ts, _ := vals[4].(*big.Int)

	o := OnchainOrder{
		ID:     new(big.Int).Set(orderID),
		Trader: trader,
		Symbol: symbol,
		Side:   order.Side(side),
		Active: active,
	}
	if ts != nil && ts.IsInt64() {
		o.Timestamp = time.Unix(ts.Int64(), 0).UTC()
	}
	return o, nil
}

func (g *Gateway) transact(ctx context.Context, method string, data []byte) (order.Handle, error) {
	from, ok := g.signer.From()
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrNoSigner, order.ErrSignatureDeclined)
	}

	chainID, err := g.chainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	gasPrice = g.adjustGasPrice(gasPrice)

	gas := g.cfg.GasLimit
	if gas == 0 {
		gas, err = g.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			To:       &g.cfg.Contract,
			GasPrice: gasPrice,
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &g.cfg.Contract,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := g.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", method, err)
	}
	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to broadcast %s: %w", method, err)
	}

	g.log.Infow("tx_broadcast",
		"method", method,
		"tx", signed.Hash().Hex(),
		"nonce", nonce,
		"gas", gas,
		"gas_price", gasPrice.String())

	h := newHandle(signed.Hash())
	go g.poll(ctx, h)
	return h, nil
}

func (g *Gateway) chainID(ctx context.Context) (*big.Int, error) {
	if g.cfg.ChainID != nil {
		return g.cfg.ChainID, nil
	}
	id, err := g.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

func (g *Gateway) adjustGasPrice(price *big.Int) *big.Int {
	pref := settings.GasStandard
	if g.cfg.Gas != nil {
		pref = g.cfg.Gas.GasPreference()
	}
	num, den := pref.GasMultiplier()
	out := new(big.Int).Mul(price, big.NewInt(num))
	return out.Quo(out, big.NewInt(den))
}
